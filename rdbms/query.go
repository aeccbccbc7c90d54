package rdbms

import (
	"context"
	"fmt"

	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

// SqlResultHandler receives the column names followed by each row of a query.
type SqlResultHandler interface {
	HandleHeader(i []string) error
	HandleRow(i []interface{}) error
}

// SqlQuery runs sqltext and streams the result set to i.
func SqlQuery(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, i SqlResultHandler) error {
	rows, err := db.QueryContext(ctx, sqltext)
	if err != nil {
		return fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	log.Debug("query columns: ", cols)
	scanPtrs := make([]interface{}, len(cols))
	scanVals := make([]interface{}, len(cols))
	for idx := range cols {
		scanPtrs[idx] = &scanVals[idx]
	}
	if err = i.HandleHeader(cols); err != nil {
		return err
	}
	for rows.Next() {
		if err = ctx.Err(); err != nil { // quit if asked to...
			return err
		}
		if err = rows.Scan(scanPtrs...); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		row := make([]interface{}, len(cols))
		copy(row, scanVals)
		if err = i.HandleRow(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SqlQueryInt64 returns the single integer produced by sqltext, e.g. a count(*).
func SqlQueryInt64(ctx context.Context, db shared.Connector, sqltext string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, sqltext).Scan(&n); err != nil {
		return 0, fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	return n, nil
}
