// Package srs implements the SM-2 scheduling law and the due-set selection
// policy. Everything here is pure: no clock access, no I/O, no shared mutable
// state, so it is safe to call from any number of goroutines.
package srs
