package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultBatchSize is the cursor fetch size used when the caller does not
// tune one.
const DefaultBatchSize = 1000

// DB is a read-only connection to a backup's manifest database.
type DB struct {
	*sql.DB
}

// Open opens the manifest database at the given path. The backup is
// read-only input, so the connection is opened in read-only mode.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("manifest database not found: %s", path)
	}
	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening manifest database: %w", err)
	}
	return &DB{sqlDB}, nil
}

// Row is one raw manifest row, before resolution into a Record.
type Row struct {
	FileID       string
	Domain       string
	RelativePath string
	Flags        int
	Metadata     []byte
}

// Content executes the filter and returns a cursor over matching rows.
// batchSize tunes how many rows are fetched per round trip; values <= 0 use
// DefaultBatchSize.
func (db *DB) Content(ctx context.Context, f Filter, batchSize int) (*Cursor, error) {
	query, args, err := f.contentQuery()
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	conn, err := db.conn(ctx, f.CaseSensitive)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("querying manifest: %w", err)
	}
	return &Cursor{rows: rows, conn: conn, batchSize: batchSize, pos: -1}, nil
}

// Count executes the count variant of the filter.
func (db *DB) Count(ctx context.Context, f Filter) (int64, error) {
	query, args, err := f.countQuery()
	if err != nil {
		return 0, err
	}
	conn, err := db.conn(ctx, f.CaseSensitive)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	var count int64
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting manifest rows: %w", err)
	}
	return count, nil
}

// Domains lists the distinct top-level domains in the manifest.
func (db *DB) Domains(ctx context.Context) ([]string, error) {
	return db.stringQuery(ctx, domainsQuery)
}

// Namespaces lists the distinct namespaces under the given domain.
func (db *DB) Namespaces(ctx context.Context, domain string) ([]string, error) {
	query, args := namespacesQuery(domain)
	return db.stringQuery(ctx, query, args...)
}

// stringQuery runs an aggregate query on a connection pinned to
// case-insensitive matching. Pooled connections may carry a previous query's
// case_sensitive_like pragma, so the sensitivity must be set explicitly here
// too, never inherited.
func (db *DB) stringQuery(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	conn, err := db.conn(ctx, false)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying manifest: %w", err)
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// conn checks a connection out of the pool with the query's case-sensitivity
// pragma applied. The pragma is per-connection state, so it must be pinned to
// the same connection the query runs on.
func (db *DB) conn(ctx context.Context, caseSensitive bool) (*sql.Conn, error) {
	conn, err := db.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA case_sensitive_like = %t", caseSensitive)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting case sensitivity: %w", err)
	}
	return conn, nil
}

// Cursor streams manifest rows in fixed-size batches. It is single-pass and
// finite: once exhausted it cannot be rewound without re-issuing the query.
// The cursor pins one pooled connection until Close.
type Cursor struct {
	rows      *sql.Rows
	conn      *sql.Conn
	batchSize int
	batch     []Row
	pos       int
	err       error
	done      bool
}

// Next advances to the following row, fetching the next batch from the
// backend when the buffered one is consumed.
func (c *Cursor) Next() bool {
	c.pos++
	if c.pos < len(c.batch) {
		return true
	}
	if c.done || c.err != nil {
		return false
	}
	c.fetch()
	return c.pos < len(c.batch)
}

func (c *Cursor) fetch() {
	c.batch = c.batch[:0]
	c.pos = 0
	for len(c.batch) < c.batchSize && c.rows.Next() {
		var r Row
		if err := c.rows.Scan(&r.FileID, &r.Domain, &r.RelativePath, &r.Flags, &r.Metadata); err != nil {
			c.err = err
			return
		}
		c.batch = append(c.batch, r)
	}
	if len(c.batch) < c.batchSize {
		c.done = true
		if err := c.rows.Err(); err != nil {
			c.err = err
		}
	}
}

// Row returns the current row. Valid only after a true Next.
func (c *Cursor) Row() Row {
	return c.batch[c.pos]
}

// Err reports the first error encountered while streaming.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the cursor's connection back to the pool.
func (c *Cursor) Close() error {
	err := c.rows.Close()
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
