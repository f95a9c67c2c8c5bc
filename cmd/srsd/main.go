// Package main is the entry point for srsd, the spaced-repetition review
// service. It serves the review session API and manages the database schema.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
