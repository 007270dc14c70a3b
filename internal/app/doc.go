// Package app contains the bring-up lifecycle: load the stack file, select
// the backend, resolve the descriptions, build parameters and the process
// graph, launch it and report the result. It is decoupled from any specific
// entrypoint like a CLI.
package app
