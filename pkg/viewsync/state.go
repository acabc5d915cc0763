// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package viewsync

type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Refetching
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Refetching:
		return "refetching"
	}
	return "unknown"
}
