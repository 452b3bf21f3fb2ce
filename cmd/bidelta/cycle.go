package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/bidelta/internal/diffengine"
	"github.com/gwillem/bidelta/internal/patch"
	"github.com/gwillem/bidelta/internal/path"
)

type cycleArg struct {
	engineOpt
	Args struct {
		Old string `positional-arg-name:"OLD" required:"1"`
		New string `positional-arg-name:"NEW" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (a *cycleArg) Execute(_ []string) error {
	applyVerbose()

	if err := path.RequireFile(a.Args.Old, patch.ErrConfigInvalid); err != nil {
		return err
	}
	if err := path.RequireFile(a.Args.New, patch.ErrConfigInvalid); err != nil {
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
	if err := diffengine.Cycle(context.Background(), older, newer, a.toOptions()); err != nil {
		return err
	}

	fmt.Println(green("OK"), grey(fmt.Sprintf("round-trip verified in %s", time.Since(start))))
	return nil
}

func init() {
	cli.AddCommand("cycle", "Diff then patch, verifying the round trip", "Diff OLD against NEW, apply the result, and confirm it reproduces NEW exactly.", &cycleArg{})
}
