package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams rows into table over COPY on a pool or open transaction.
// A short count is an error: checklist rows are written all or nothing.
func CopyFrom(ctx context.Context, q Querier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copied, err := q.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	switch {
	case err != nil:
		return 0, eris.Wrapf(err, "db: copy into %s", table)
	case copied != int64(len(rows)):
		return copied, eris.Errorf("db: copy into %s: wrote %d of %d rows", table, copied, len(rows))
	}
	return copied, nil
}
