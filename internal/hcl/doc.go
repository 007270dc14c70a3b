// Package hcl provides the concrete HCL implementation of config.Loader. It
// parses a stack file, decodes it with gohcl, and overlays what the file sets
// onto the built-in stack defaults.
package hcl
