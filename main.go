// The main package for the bidsweep executable.
package main

import (
	"github.com/govharvest/bidsweep/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
