package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/temirov/gitfleet/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
	failureExitCodeConstant   = 1
)

// main runs gitfleet and exits non-zero when configuration fails or any repository fails to synchronize.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(failureExitCodeConstant)
	}
}
