// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package sqlsource

import (
	"fmt"
	"strings"

	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func lookup(cols grid.Columns, field string) (grid.Column, error) {
	c, ok := cols.Lookup(field)
	if !ok {
		return c, fmt.Errorf("%w: %q", rowsource.ErrUnknownField, field)
	}
	return c, nil
}

func typedArg(c grid.Column, s string) (interface{}, error) {
	v, err := grid.ParseValue(c.Type, s)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for field %q: %v", s, c.Field, err)
	}
	return toSQLValue(c.Type, v), nil
}

func itemClause(cols grid.Columns, item grid.FilterItem) (string, []interface{}, error) {
	c, err := lookup(cols, item.Field)
	if err != nil {
		return "", nil, err
	}
	if grid.IsTextOperator(item.Operator) && !c.Type.IsText() {
		return "", nil, fmt.Errorf("operator %q needs a text field, %q is %s", item.Operator, c.Field, c.Type)
	}
	col := quoteIdent(c.Field)
	cmp := col
	if sqlType(c.Type) == "TEXT" {
		cmp += " COLLATE NATURAL"
	}
	like := func(pattern string) (string, []interface{}, error) {
		return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col), []interface{}{pattern}, nil
	}
	needle := likeEscaper.Replace(strings.ToLower(item.Value))
	switch item.Operator {
	case grid.OpIsEmpty:
		return fmt.Sprintf(`(%s IS NULL OR %s = '')`, col, col), nil, nil
	case grid.OpIsNotEmpty:
		return fmt.Sprintf(`(%s IS NOT NULL AND %s != '')`, col, col), nil, nil
	case grid.OpContains:
		return like("%" + needle + "%")
	case grid.OpStartsWith:
		return like(needle + "%")
	case grid.OpEndsWith:
		return like("%" + needle)
	case grid.OpMatches:
		return col + ` GLOB ?`, []interface{}{item.Value}, nil
	case grid.OpIsAnyOf:
		if len(item.Values) == 0 {
			return `0 = 1`, nil, nil
		}
		args := make([]interface{}, len(item.Values))
		marks := make([]string, len(item.Values))
		for i, s := range item.Values {
			if args[i], err = typedArg(c, s); err != nil {
				return "", nil, err
			}
			marks[i] = "?"
		}
		return fmt.Sprintf(`%s IN (%s)`, cmp, strings.Join(marks, ", ")), args, nil
	case grid.OpEquals, grid.OpGreater, grid.OpGreaterEquals, grid.OpLess, grid.OpLessEquals:
		arg, err := typedArg(c, item.Value)
		if err != nil {
			return "", nil, err
		}
		op := item.Operator
		if op == grid.OpEquals {
			op = "="
		}
		return fmt.Sprintf(`%s %s ?`, cmp, op), []interface{}{arg}, nil
	case grid.OpNotEquals:
		arg, err := typedArg(c, item.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf(`(%s IS NULL OR %s != ?)`, col, cmp), []interface{}{arg}, nil
	}
	return "", nil, fmt.Errorf("unsupported filter operator %q", item.Operator)
}

func whereClause(cols grid.Columns, m grid.FilterModel) (string, []interface{}, error) {
	if m.IsEmpty() {
		return "", nil, nil
	}
	parts := make([]string, 0, len(m.Items))
	args := []interface{}{}
	for _, item := range m.Items {
		part, itemArgs, err := itemClause(cols, item)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, part)
		args = append(args, itemArgs...)
	}
	sep := " AND "
	if m.Link() == grid.LinkOr {
		sep = " OR "
	}
	return " WHERE " + strings.Join(parts, sep), args, nil
}

func orderByClause(cols grid.Columns, m grid.SortModel) (string, error) {
	parts := make([]string, 0, len(m)+1)
	for _, item := range m {
		c, err := lookup(cols, item.Field)
		if err != nil {
			return "", err
		}
		part := quoteIdent(c.Field)
		if sqlType(c.Type) == "TEXT" {
			part += " COLLATE NATURAL"
		}
		if item.Direction == grid.SortDesc {
			part += " DESC"
		} else {
			part += " ASC"
		}
		parts = append(parts, part)
	}
	parts = append(parts, "ord ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
