// Package testutil holds fakes and fixtures shared by the test suites: an
// in-memory spawner, a minimal arm configuration directory and helpers for
// installing stand-in executables into an ament prefix.
package testutil
