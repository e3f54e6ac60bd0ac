// Package db provides shared bulk-write helpers for the Postgres store,
// adapted from the teacher's generic COPY/upsert helpers for LeadPipe's
// bulk lead ingestion path (SPEC_FULL.md §12).
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool (and pgxmock.Pool, for tests) that
// CopyFrom/CopyFromSchema need.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyFrom bulk-inserts rows into a table using PostgreSQL's COPY protocol.
// This is the fastest way to insert large volumes of data when the caller
// doesn't need the generated ids back.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

// CopyFromSchema bulk-inserts rows into a schema-qualified table using
// PostgreSQL's COPY protocol.
func CopyFromSchema(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := pool.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
	}

	return n, nil
}

// BulkInsertReturningIDs bulk-inserts rows into table via a temp table
// populated with COPY, then a single `INSERT ... SELECT ... RETURNING id`
// that moves the staged rows into the target table in one round trip and
// reports back the generated id for each row in input order. This is the
// bulk-lead-ingestion path from SPEC_FULL.md §12: COPY alone can't return
// generated ids and the caller needs one per lead to enqueue its job.
func BulkInsertReturningIDs(ctx context.Context, pool *pgxpool.Pool, table string, columns []string, rows [][]any) ([]int64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: begin tx", table)
	}
	defer tx.Rollback(ctx)

	tempTable := fmt.Sprintf("_tmp_insert_%s", table)
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: create temp table", table)
	}

	// seq carries each row's input-order position through the temp table so
	// the final SELECT can RETURNING ids in the same order the caller
	// passed rows in, regardless of what order Postgres materializes them.
	seqCols := append(append([]string{}, columns...), "_seq")
	seqRows := make([][]any, len(rows))
	for i, row := range rows {
		seqRows[i] = append(append([]any{}, row...), i)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN _seq INT", pgx.Identifier{tempTable}.Sanitize())); err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: add sequencing column", table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, seqCols, pgx.CopyFromRows(seqRows)); err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: COPY into temp table", table)
	}

	colList := quoteAndJoin(columns)
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ORDER BY _seq RETURNING id",
		pgx.Identifier{table}.Sanitize(), colList, colList, pgx.Identifier{tempTable}.Sanitize(),
	)
	rowsReturned, err := tx.Query(ctx, insertSQL)
	if err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: INSERT RETURNING", table)
	}
	ids := make([]int64, 0, len(rows))
	for rowsReturned.Next() {
		var id int64
		if err := rowsReturned.Scan(&id); err != nil {
			rowsReturned.Close()
			return nil, eris.Wrapf(err, "db: bulk insert %s: scan returned id", table)
		}
		ids = append(ids, id)
	}
	rowsReturned.Close()
	if err := rowsReturned.Err(); err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: iterate returned ids", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrapf(err, "db: bulk insert %s: commit tx", table)
	}
	return ids, nil
}

func quoteAndJoin(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return joinComma(out)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
