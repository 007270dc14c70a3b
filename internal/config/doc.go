// Package config defines the format-agnostic stack model: what robot is
// being brought up, where its templates and static configuration live, which
// binaries each backend runs, and per-process launch settings.
//
// Every field has a built-in default matching the stock arm_config launch, so
// a loader only needs to overlay what a stack file actually sets. Concrete
// loaders, such as the HCL one, live in separate packages.
package config
