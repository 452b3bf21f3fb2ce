package main

import (
	"fmt"
	"os"

	buildversion "github.com/gwillem/go-buildversion"
	"github.com/jessevdk/go-flags"
)

type globalOpt struct {
	Verbose []bool `short:"v" long:"verbose" description:"Verbose output"`
	Version bool   `long:"version" description:"Print version and exit"`
}

var (
	globalOpts     globalOpt
	cli            = flags.NewParser(&globalOpts, flags.Default)
	bideltaVersion = buildversion.String()
)

func main() {
	if len(os.Args) == 2 && os.Args[1] == "--version" {
		fmt.Println("bidelta", bideltaVersion)
		return
	}
	cli.SubcommandsOptional = false
	if _, err := cli.Parse(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}
