package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/bidelta/internal/diffengine"
	"github.com/gwillem/bidelta/internal/patch"
	"github.com/gwillem/bidelta/internal/path"
)

type diffArg struct {
	engineOpt
	Args struct {
		Old   string `positional-arg-name:"OLD" required:"1"`
		New   string `positional-arg-name:"NEW" required:"1"`
		Patch string `positional-arg-name:"PATCH" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (a *diffArg) Execute(_ []string) error {
	applyVerbose()

	if err := path.RequireFile(a.Args.Old, patch.ErrConfigInvalid); err != nil {
		return err
	}
	if err := path.RequireFile(a.Args.New, patch.ErrConfigInvalid); err != nil {
		return err
	}
	if err := path.RequireNewFile(a.Args.Patch, patch.ErrConfigInvalid); err != nil {
		return err
	}

	older, err := readFile(a.Args.Old)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", patch.ErrIO, a.Args.Old, err)
	}
	newer, err := readFile(a.Args.New)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", patch.ErrIO, a.Args.New, err)
	}

	start := time.Now()
	if err := diffengine.Diff(context.Background(), older, newer, a.Args.Patch, a.toOptions()); err != nil {
		return err
	}

	logVerbose(grey(fmt.Sprintf("diffed %s -> %s in %s", a.Args.Old, a.Args.New, time.Since(start))))
	fmt.Println(boldwhite(a.Args.Patch), green("written"))
	return nil
}

func init() {
	cli.AddCommand("diff", "Produce a binary delta patch", "Diff OLD against NEW and write a patch container to PATCH.", &diffArg{})
}
