// Package config defines the format-agnostic model of a bootstrap plan,
// along with the core interfaces (Loader, Decoder) for loading and
// interpreting plan files from various sources.
//
// The `config.Model` is the single source of truth for the `executor`
// package. Concrete implementations of the interfaces, such as for HCL,
// are provided in separate packages.
package config
