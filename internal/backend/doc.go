// Package backend selects the hardware backend for a bring-up. A Mode is the
// single runtime switch between the simulated and the physical hardware
// interface; the Profile it selects supplies the hardware-type substitution
// for the kinematic description, the executable of the hardware-interface
// process, and any argument augmentation that only the physical driver needs.
//
// Selection is a pure function of the mode and the profile table.
package backend
