// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

// Package employee generates a deterministic fake employee dataset
package employee

import (
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/wrgl/gridsync/pkg/grid"
)

const DefaultRowLength = 10000

var namespace = uuid.MustParse("5c4a0e36-3b0c-4f8e-9a55-0f1d2c4b7e21")

func Columns() grid.Columns {
	return grid.Columns{
		{Field: "name", HeaderName: "Name", Type: grid.ColumnString, Width: 20},
		{Field: "email", HeaderName: "Email", Type: grid.ColumnString, Width: 28},
		{Field: "position", HeaderName: "Position", Type: grid.ColumnString, Width: 22},
		{Field: "company", HeaderName: "Company", Type: grid.ColumnString, Width: 20},
		{Field: "salary", HeaderName: "Salary", Type: grid.ColumnInt, Width: 8},
		{Field: "country", HeaderName: "Country", Type: grid.ColumnString, Width: 16},
		{Field: "city", HeaderName: "City", Type: grid.ColumnString, Width: 14},
		{Field: "phone", HeaderName: "Phone", Type: grid.ColumnString, Width: 14},
		{Field: "dateCreated", HeaderName: "Date Created", Type: grid.ColumnDate, Width: 12},
		{Field: "isAdmin", HeaderName: "Is Admin", Type: grid.ColumnBool, Width: 8},
		{Field: "rating", HeaderName: "Rating", Type: grid.ColumnInt, Width: 6},
	}
}

// RowID returns the stable id of the i-th generated employee
func RowID(i int) grid.RowID {
	return grid.RowID(uuid.NewSHA1(namespace, []byte(strconv.Itoa(i))).String())
}

var (
	epochStart = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	epochEnd   = time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Generate returns n employees. The same seed always yields the same rows.
func Generate(n int, seed int64) []grid.Row {
	f := gofakeit.New(seed)
	rows := make([]grid.Row, n)
	for i := 0; i < n; i++ {
		created := f.DateRange(epochStart, epochEnd).UTC().Truncate(24 * time.Hour)
		rows[i] = grid.Row{
			ID: RowID(i),
			Values: map[string]interface{}{
				"name":        f.Name(),
				"email":       f.Email(),
				"position":    f.JobTitle(),
				"company":     f.Company(),
				"salary":      int64(f.Number(30, 300) * 1000),
				"country":     f.Country(),
				"city":        f.City(),
				"phone":       f.Phone(),
				"dateCreated": created,
				"isAdmin":     f.Bool(),
				"rating":      int64(f.Number(1, 5)),
			},
		}
	}
	return rows
}
