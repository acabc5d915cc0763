// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package grid

import (
	"fmt"
	"strconv"
	"strings"

	"go.einride.tech/aip/filtering"
	"go.einride.tech/aip/ordering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ParseSort parses an AIP-132 order_by string such as "name, salary desc"
func ParseSort(s string) (SortModel, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var orderBy ordering.OrderBy
	if err := orderBy.UnmarshalString(s); err != nil {
		return nil, fmt.Errorf("parse sort: %w", err)
	}
	m := make(SortModel, 0, len(orderBy.Fields))
	for _, f := range orderBy.Fields {
		dir := SortAsc
		if f.Desc {
			dir = SortDesc
		}
		m = append(m, SortItem{Field: f.Path, Direction: dir})
	}
	return m, nil
}

func declarations(cols Columns) (*filtering.Declarations, error) {
	decls := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, col := range cols {
		switch col.Type {
		case ColumnInt:
			decls = append(decls, filtering.DeclareIdent(col.Field, filtering.TypeInt))
		case ColumnFloat:
			decls = append(decls, filtering.DeclareIdent(col.Field, filtering.TypeFloat))
		case ColumnBool:
			decls = append(decls, filtering.DeclareIdent(col.Field, filtering.TypeBool))
		default:
			decls = append(decls, filtering.DeclareIdent(col.Field, filtering.TypeString))
		}
	}
	return filtering.NewDeclarations(decls...)
}

// ParseFilter parses an AIP-160 filter expression and lowers it into a
// FilterModel. Only flat conjunctions or flat disjunctions of comparisons
// can be represented.
func ParseFilter(s string, cols Columns) (FilterModel, error) {
	if strings.TrimSpace(s) == "" {
		return FilterModel{}, nil
	}
	decls, err := declarations(cols)
	if err != nil {
		return FilterModel{}, err
	}
	f, err := filtering.ParseFilter(filterRequest(s), decls)
	if err != nil {
		return FilterModel{}, fmt.Errorf("parse filter: %w", err)
	}
	m := FilterModel{}
	if err := lowerExpr(f.CheckedExpr.GetExpr(), &m); err != nil {
		return FilterModel{}, fmt.Errorf("parse filter: %w", err)
	}
	return m, nil
}

// filterRequest adapts a filter string to filtering.Request.
type filterRequest string

func (r filterRequest) GetFilter() string { return string(r) }

var comparisonOperators = map[string]string{
	"=":  OpEquals,
	"!=": OpNotEquals,
	">":  OpGreater,
	">=": OpGreaterEquals,
	"<":  OpLess,
	"<=": OpLessEquals,
	":":  OpContains,
}

func lowerExpr(e *expr.Expr, m *FilterModel) error {
	call := e.GetCallExpr()
	if call == nil {
		return fmt.Errorf("expected a comparison, got %v", e)
	}
	switch call.GetFunction() {
	case "AND", "OR":
		link := LinkAnd
		if call.GetFunction() == "OR" {
			link = LinkOr
		}
		for _, arg := range call.GetArgs() {
			sub := FilterModel{}
			if err := lowerExpr(arg, &sub); err != nil {
				return err
			}
			if len(sub.Items) > 1 && sub.LinkOperator != link {
				return fmt.Errorf("mixing AND and OR is not supported")
			}
			m.Items = append(m.Items, sub.Items...)
		}
		m.LinkOperator = link
		return nil
	case "NOT":
		return fmt.Errorf("NOT is not supported")
	}
	op, ok := comparisonOperators[call.GetFunction()]
	if !ok {
		return fmt.Errorf("unsupported function %q", call.GetFunction())
	}
	args := call.GetArgs()
	if len(args) != 2 || args[0].GetIdentExpr() == nil || args[1].GetConstExpr() == nil {
		return fmt.Errorf("comparison must be between a field and a constant")
	}
	m.Items = append(m.Items, FilterItem{
		Field:    args[0].GetIdentExpr().GetName(),
		Operator: op,
		Value:    constantString(args[1].GetConstExpr()),
	})
	return nil
}

func constantString(c *expr.Constant) string {
	switch v := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return v.StringValue
	case *expr.Constant_Int64Value:
		return strconv.FormatInt(v.Int64Value, 10)
	case *expr.Constant_Uint64Value:
		return strconv.FormatUint(v.Uint64Value, 10)
	case *expr.Constant_DoubleValue:
		return strconv.FormatFloat(v.DoubleValue, 'f', -1, 64)
	case *expr.Constant_BoolValue:
		return strconv.FormatBool(v.BoolValue)
	}
	return ""
}
