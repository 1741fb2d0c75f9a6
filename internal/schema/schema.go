// Package schema defines the HCL surface of a bootstrap plan file. These
// structs carry the hcl struct tags and nothing else; the loader translates
// them into the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Settings represents the optional top-level `bootstrap` block.
type Settings struct {
	Home       string `hcl:"home,optional"`
	OnConflict string `hcl:"on_conflict,optional"`
}

// Step represents a `step` block from a plan file. The body is left
// undecoded; each step kind's handler declares its own input struct.
type Step struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Plan represents the top-level structure of a plan file.
type Plan struct {
	Settings *Settings `hcl:"bootstrap,block"`
	Steps    []*Step   `hcl:"step,block"`
}
