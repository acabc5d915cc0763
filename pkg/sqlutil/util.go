// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package sqlutil

import (
	"context"
	"database/sql"
)

type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func RunInTx(ctx context.Context, db *sql.DB, run func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = run(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// QueryRows runs query and calls cb after scanning each row into scans
func QueryRows(ctx context.Context, db DB, query string, args []interface{}, scans []interface{}, cb func() error) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := rows.Scan(scans...); err != nil {
			return err
		}
		if err = cb(); err != nil {
			return err
		}
	}
	return rows.Err()
}
