// The main package for the inkbot executable.
package main

import (
	"github.com/inklinks/inkbot/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
