package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/bidelta/internal/diffengine"
	"github.com/gwillem/bidelta/internal/patch"
	"github.com/gwillem/bidelta/internal/path"
)

type patchArg struct {
	Threads int `long:"threads" description:"Worker goroutines (0 = GOMAXPROCS)"`
	Args    struct {
		Old   string `positional-arg-name:"OLD" required:"1"`
		Patch string `positional-arg-name:"PATCH" required:"1"`
		Out   string `positional-arg-name:"OUT" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (a *patchArg) Execute(_ []string) error {
	applyVerbose()

	if err := path.RequireFile(a.Args.Old, patch.ErrConfigInvalid); err != nil {
		return err
	}
	if err := path.RequireFile(a.Args.Patch, patch.ErrConfigInvalid); err != nil {
		return err
	}
	if err := path.RequireNewFile(a.Args.Out, patch.ErrConfigInvalid); err != nil {
		return err
	}

	older, err := readFile(a.Args.Old)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", patch.ErrIO, a.Args.Old, err)
	}

	start := time.Now()
	if err := diffengine.Apply(context.Background(), older, a.Args.Patch, a.Args.Out, a.Threads); err != nil {
		return err
	}

	logVerbose(grey(fmt.Sprintf("applied %s to %s in %s", a.Args.Patch, a.Args.Old, time.Since(start))))
	fmt.Println(boldwhite(a.Args.Out), green("written"))
	return nil
}

func init() {
	cli.AddCommand("patch", "Apply a binary delta patch", "Apply PATCH to OLD and write the result to OUT.", &patchArg{})
}
