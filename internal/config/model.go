package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ConflictPolicy controls what happens when a staging or download step finds
// its destination file already present.
type ConflictPolicy string

const (
	// Overwrite replaces the existing file. This is the default: it keeps
	// re-running a plan usable on an already-bootstrapped host.
	Overwrite ConflictPolicy = "overwrite"
	// Skip leaves the existing file in place and continues.
	Skip ConflictPolicy = "skip"
	// Fail aborts the run.
	Fail ConflictPolicy = "fail"
)

// ParseConflictPolicy validates a user-supplied policy string. An empty
// string selects the default.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "":
		return Overwrite, nil
	case Overwrite, Skip, Fail:
		return ConflictPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid on_conflict policy %q: must be 'overwrite', 'skip', or 'fail'", s)
	}
}

// Model is the unified, format-agnostic representation of a bootstrap plan:
// its settings block plus the ordered step sequence.
type Model struct {
	Settings *Settings
	Steps    []*Step
}

// Settings holds plan-level options from the `bootstrap` block.
type Settings struct {
	// Home overrides the destination directory for staged and downloaded
	// files. Empty means the invoking user's home directory.
	Home string
	// OnConflict is the destination-collision policy for every staging and
	// download step in the plan.
	OnConflict ConflictPolicy
}

// Step is the format-agnostic representation of a single `step` block.
// Steps execute strictly in declaration order; there is no dependency
// graph and no reordering.
type Step struct {
	// Kind names the registered handler that executes this step, e.g.
	// "pip_install" or "download".
	Kind string
	// Name is the user-chosen instance label, unique within the plan.
	Name string
	// Body is the undecoded step body. The executor decodes it into the
	// handler's input struct via the plan's Decoder.
	Body hcl.Body
	// DeclFile is the plan file this step was declared in, used to resolve
	// relative source paths.
	DeclFile string
}
