// Package registry provides the central "glue" for the step-module system.
//
// The Registry stores mappings between the step kinds used in plan files
// (e.g. "pip_install") and the compiled Go handlers that implement them.
// During application startup the registry is populated by the core modules
// and then checked against the loaded plan, so that a plan referencing an
// unknown step kind fails before anything executes.
package registry
