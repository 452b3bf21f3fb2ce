package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	boldred   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	grey      = color.New(color.FgHiBlack).SprintFunc()
	boldwhite = color.New(color.FgHiWhite).SprintFunc()
	green     = color.New(color.FgGreen).SprintFunc()

	logLevel = 1
)

func logVerbose(a ...any) {
	if logLevel >= 3 {
		fmt.Println(a...)
	}
}

// applyVerbose sets logLevel from the global -v flag count.
func applyVerbose() {
	if len(globalOpts.Verbose) >= 1 {
		logLevel = 3
	}
}

func init() {
	color.NoColor = false
}
