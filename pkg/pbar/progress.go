// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package pbar

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Container renders bars to out. A quiet container only hands out bars
// that render nothing.
type Container struct {
	p     *mpb.Progress
	out   io.Writer
	quiet bool
}

func NewContainer(out io.Writer, quiet bool) *Container {
	return &Container{
		out:   out,
		quiet: quiet,
	}
}

// NewBar adds a bar counting up to total. The count is shown without a
// percentage if total is not positive.
func (c *Container) NewBar(total int64, name string) Bar {
	if c.quiet {
		return &noopBar{}
	}
	if c.p == nil {
		c.p = mpb.New(mpb.WithOutput(c.out))
	}
	options := []mpb.BarOption{
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight}),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.BarRemoveOnComplete(),
	}
	if total > 0 {
		options = append(options,
			mpb.AppendDecorators(decor.Percentage(decor.WC{W: 5, C: decor.DidentRight}), decor.Elapsed(decor.ET_STYLE_GO)),
		)
	} else {
		options = append(options, mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO)))
	}
	b := c.p.New(total,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		options...,
	)
	b.EnableTriggerComplete()
	return &bar{b: b, c: c}
}

func (c *Container) Wait() {
	if c.p == nil {
		return
	}
	c.p.Wait()
	c.p = nil
}
