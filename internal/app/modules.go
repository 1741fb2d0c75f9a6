package app

import (
	"github.com/nk/detstrap/internal/registry"
	"github.com/nk/detstrap/modules/fetch"
	"github.com/nk/detstrap/modules/pip"
	"github.com/nk/detstrap/modules/preflight"
	"github.com/nk/detstrap/modules/stage"
)

// coreModules is the definitive list of all step modules that are compiled
// into the detstrap binary.
var coreModules = []registry.Module{
	&preflight.Module{},
	&pip.Module{},
	&stage.Module{},
	&fetch.Module{},
}
