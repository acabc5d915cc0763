// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/fvbommel/sortorder"
	"github.com/gobwas/glob"
)

// Compare orders two cell values. nil sorts before everything else and
// strings use natural order so "emp2" < "emp10".
func Compare(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return compareStrings(x, y)
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return compareFloats(float64(x), float64(y))
		case float64:
			return compareFloats(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return compareFloats(x, float64(y))
		case float64:
			return compareFloats(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			switch {
			case x.Equal(y):
				return 0
			case x.Before(y):
				return -1
			default:
				return 1
			}
		}
	}
	return compareStrings(FormatValue(a), FormatValue(b))
}

func compareStrings(a, b string) int {
	switch {
	case a == b:
		return 0
	case sortorder.NaturalLess(a, b):
		return -1
	default:
		return 1
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether row a sorts before row b under m
func (m SortModel) Less(a, b Row) bool {
	for _, item := range m {
		c := Compare(a.Get(item.Field), b.Get(item.Field))
		if c == 0 {
			continue
		}
		if item.Direction == SortDesc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// Matcher evaluates a FilterModel against rows. Build it once per query so
// filter values are parsed and glob patterns compiled a single time.
type Matcher struct {
	link  LinkOperator
	preds []func(Row) bool
}

func NewMatcher(m FilterModel, cols Columns) (*Matcher, error) {
	mt := &Matcher{link: m.Link()}
	for _, item := range m.Items {
		col, ok := cols.Lookup(item.Field)
		if !ok {
			return nil, fmt.Errorf("unknown filter field %q", item.Field)
		}
		pred, err := predicate(item, col)
		if err != nil {
			return nil, err
		}
		mt.preds = append(mt.preds, pred)
	}
	return mt, nil
}

func (mt *Matcher) Match(row Row) bool {
	if len(mt.preds) == 0 {
		return true
	}
	for _, pred := range mt.preds {
		ok := pred(row)
		if ok && mt.link == LinkOr {
			return true
		}
		if !ok && mt.link == LinkAnd {
			return false
		}
	}
	return mt.link == LinkAnd
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func predicate(item FilterItem, col Column) (func(Row) bool, error) {
	field := item.Field
	if IsTextOperator(item.Operator) && !col.Type.IsText() {
		return nil, fmt.Errorf("operator %q needs a text field, %q is %s", item.Operator, field, col.Type)
	}
	text := func(r Row) string {
		return strings.ToLower(FormatValue(r.Get(field)))
	}
	needle := strings.ToLower(item.Value)
	switch item.Operator {
	case OpIsEmpty:
		return func(r Row) bool { return isEmptyValue(r.Get(field)) }, nil
	case OpIsNotEmpty:
		return func(r Row) bool { return !isEmptyValue(r.Get(field)) }, nil
	case OpContains:
		return func(r Row) bool { return strings.Contains(text(r), needle) }, nil
	case OpStartsWith:
		return func(r Row) bool { return strings.HasPrefix(text(r), needle) }, nil
	case OpEndsWith:
		return func(r Row) bool { return strings.HasSuffix(text(r), needle) }, nil
	case OpMatches:
		g, err := glob.Compile(item.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %v", item.Value, err)
		}
		return func(r Row) bool { return g.Match(FormatValue(r.Get(field))) }, nil
	case OpIsAnyOf:
		vals := make([]interface{}, 0, len(item.Values))
		for _, s := range item.Values {
			v, err := ParseValue(col.Type, s)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q for field %q: %v", s, field, err)
			}
			vals = append(vals, v)
		}
		return func(r Row) bool {
			for _, v := range vals {
				if Compare(r.Get(field), v) == 0 {
					return true
				}
			}
			return false
		}, nil
	case OpEquals, OpNotEquals, OpGreater, OpGreaterEquals, OpLess, OpLessEquals:
		v, err := ParseValue(col.Type, item.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for field %q: %v", item.Value, field, err)
		}
		var accept func(int) bool
		switch item.Operator {
		case OpEquals:
			accept = func(c int) bool { return c == 0 }
		case OpNotEquals:
			accept = func(c int) bool { return c != 0 }
		case OpGreater:
			accept = func(c int) bool { return c > 0 }
		case OpGreaterEquals:
			accept = func(c int) bool { return c >= 0 }
		case OpLess:
			accept = func(c int) bool { return c < 0 }
		default:
			accept = func(c int) bool { return c <= 0 }
		}
		return func(r Row) bool {
			cell := r.Get(field)
			if cell == nil {
				return item.Operator == OpNotEquals
			}
			return accept(Compare(cell, v))
		}, nil
	}
	return nil, fmt.Errorf("unsupported filter operator %q", item.Operator)
}
