// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package grid

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRange = errors.New("invalid row range")

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SortItem struct {
	Field     string        `json:"field" yaml:"field"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// SortModel is applied in order, earlier items take precedence
type SortModel []SortItem

func (m SortModel) String() string {
	strs := make([]string, len(m))
	for i, item := range m {
		strs[i] = item.Field + " " + string(item.Direction)
	}
	return strings.Join(strs, ", ")
}

type LinkOperator string

const (
	LinkAnd LinkOperator = "and"
	LinkOr  LinkOperator = "or"
)

const (
	OpEquals        = "equals"
	OpNotEquals     = "notEquals"
	OpContains      = "contains"
	OpStartsWith    = "startsWith"
	OpEndsWith      = "endsWith"
	OpIsEmpty       = "isEmpty"
	OpIsNotEmpty    = "isNotEmpty"
	OpIsAnyOf       = "isAnyOf"
	OpMatches       = "matches"
	OpGreater       = ">"
	OpGreaterEquals = ">="
	OpLess          = "<"
	OpLessEquals    = "<="
)

// IsTextOperator reports whether op matches against the text of a cell.
// These operators are only accepted on text columns.
func IsTextOperator(op string) bool {
	switch op {
	case OpContains, OpStartsWith, OpEndsWith, OpMatches:
		return true
	}
	return false
}

type FilterItem struct {
	Field    string   `json:"field" yaml:"field"`
	Operator string   `json:"operator" yaml:"operator"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
}

func (item FilterItem) String() string {
	switch item.Operator {
	case OpIsEmpty, OpIsNotEmpty:
		return item.Field + " " + item.Operator
	case OpIsAnyOf:
		return fmt.Sprintf("%s %s %q", item.Field, item.Operator, item.Values)
	}
	return fmt.Sprintf("%s %s %q", item.Field, item.Operator, item.Value)
}

type FilterModel struct {
	Items        []FilterItem `json:"items" yaml:"items"`
	LinkOperator LinkOperator `json:"linkOperator,omitempty" yaml:"linkOperator,omitempty"`
}

func (m FilterModel) IsEmpty() bool {
	return len(m.Items) == 0
}

func (m FilterModel) Link() LinkOperator {
	if m.LinkOperator == LinkOr {
		return LinkOr
	}
	return LinkAnd
}

func (m FilterModel) String() string {
	strs := make([]string, len(m.Items))
	for i, item := range m.Items {
		strs[i] = item.String()
	}
	return strings.Join(strs, " "+strings.ToUpper(string(m.Link()))+" ")
}

// FetchRequest asks for rows in the half-open range [First, Last) of the
// dataset implied by Sort and Filter.
type FetchRequest struct {
	First  int
	Last   int
	Sort   SortModel
	Filter FilterModel
}

func (r FetchRequest) Validate() error {
	if r.First < 0 {
		return fmt.Errorf("%w: first row %d is negative", ErrInvalidRange, r.First)
	}
	if r.First > r.Last {
		return fmt.Errorf("%w: first row %d is after last row %d", ErrInvalidRange, r.First, r.Last)
	}
	return nil
}

func (r FetchRequest) Len() int {
	return r.Last - r.First
}

// DatasetKey identifies the logical dataset. Two requests share a key iff
// they have the same sort and filter.
func (r FetchRequest) DatasetKey() string {
	return "sort[" + r.Sort.String() + "] filter[" + r.Filter.String() + "]"
}

func (r FetchRequest) String() string {
	return fmt.Sprintf("[%d, %d) %s", r.First, r.Last, r.DatasetKey())
}

type FetchResult struct {
	Rows  []Row
	Total int
}
