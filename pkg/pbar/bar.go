// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package pbar

import (
	"github.com/vbauerster/mpb/v8"
)

// Bar tracks the number of rows processed by a long running write
type Bar interface {
	IncrBy(n int)
	Done()
	Abort()
}

type noopBar struct{}

func (b *noopBar) IncrBy(n int) {}
func (b *noopBar) Done()        {}
func (b *noopBar) Abort()       {}

func NewNoopBar() Bar {
	return &noopBar{}
}

type bar struct {
	b *mpb.Bar
	c *Container
}

func (b *bar) IncrBy(n int) {
	b.b.IncrBy(n)
}

func (b *bar) Done() {
	if b.b.IsRunning() {
		b.b.SetTotal(-1, true)
		b.b.Wait()
	}
	b.c.Wait()
}

func (b *bar) Abort() {
	if b.b.IsRunning() {
		b.b.Abort(true)
		b.b.Wait()
	}
	b.c.Wait()
}
