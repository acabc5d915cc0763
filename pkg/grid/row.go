// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package grid

import (
	"fmt"
	"strconv"
	"time"
)

type RowID string

// Row is a single record. Values are keyed by Column.Field and are one of
// string, int64, float64, bool or time.Time.
type Row struct {
	ID     RowID
	Values map[string]interface{}
}

func (r Row) Get(field string) interface{} {
	if r.Values == nil {
		return nil
	}
	return r.Values[field]
}

type ColumnType string

func (t ColumnType) String() string {
	return string(t)
}

// IsText reports whether values of t are compared and matched as text.
// Untyped columns hold strings.
func (t ColumnType) IsText() bool {
	switch t {
	case ColumnString, ColumnDate, "":
		return true
	}
	return false
}

const (
	ColumnString ColumnType = "string"
	ColumnInt    ColumnType = "int"
	ColumnFloat  ColumnType = "float"
	ColumnBool   ColumnType = "bool"
	ColumnDate   ColumnType = "date"
)

const DateLayout = "2006-01-02"

type Column struct {
	Field      string
	HeaderName string
	Type       ColumnType
	Width      int
}

func (c Column) Title() string {
	if c.HeaderName != "" {
		return c.HeaderName
	}
	return c.Field
}

// Columns is an ordered column set
type Columns []Column

func (cols Columns) Lookup(field string) (Column, bool) {
	for _, c := range cols {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

func (cols Columns) Fields() []string {
	sl := make([]string, len(cols))
	for i, c := range cols {
		sl[i] = c.Field
	}
	return sl
}

// FormatValue renders v the way a grid cell displays it
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(DateLayout)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParseValue converts s into the Go value stored for columns of type t
func ParseValue(t ColumnType, s string) (interface{}, error) {
	switch t {
	case ColumnInt:
		return strconv.ParseInt(s, 10, 64)
	case ColumnFloat:
		return strconv.ParseFloat(s, 64)
	case ColumnBool:
		return strconv.ParseBool(s)
	case ColumnDate:
		return time.Parse(DateLayout, s)
	default:
		return s, nil
	}
}
