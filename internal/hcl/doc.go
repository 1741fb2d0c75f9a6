// Package hcl provides the concrete HCL implementation for the plan loading
// and data binding interfaces defined in the `config` package. It is
// responsible for all file parsing, HCL-to-model translation, and
// expression evaluation for step bodies.
package hcl
