package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
)

// tokenFixture is an in-memory database/sql driver that answers the token
// queries and records every statement it sees.
type tokenFixture struct {
	mu       sync.Mutex
	execErr  error
	queryErr error
	rows     [][]driver.Value
	executed []string
}

func (f *tokenFixture) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

var fixtureSeq atomic.Int64

// open registers f under a unique driver name and returns a manager that
// already holds the resulting *sql.DB.
func (f *tokenFixture) open(t *testing.T) *DB {
	t.Helper()
	name := fmt.Sprintf("tokenfixture_%d", fixtureSeq.Add(1))
	sql.Register(name, fixtureDriver{f})
	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &DB{db: db, dsn: name}
}

type fixtureDriver struct{ f *tokenFixture }

func (d fixtureDriver) Open(string) (driver.Conn, error) { return fixtureConn{d.f}, nil }

type fixtureConn struct{ f *tokenFixture }

func (fixtureConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare unsupported")
}
func (fixtureConn) Close() error              { return nil }
func (fixtureConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions unsupported") }

func (c fixtureConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.executed = append(c.f.executed, query)
	if c.f.execErr != nil {
		return nil, c.f.execErr
	}
	return driver.RowsAffected(0), nil
}

func (c fixtureConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.executed = append(c.f.executed, query)
	if c.f.queryErr != nil {
		return nil, c.f.queryErr
	}
	return &fixtureRows{data: c.f.rows}, nil
}

type fixtureRows struct {
	data [][]driver.Value
	next int
}

func (r *fixtureRows) Columns() []string { return []string{"token", "rate_limit", "scope"} }
func (r *fixtureRows) Close() error      { return nil }

func (r *fixtureRows) Next(dest []driver.Value) error {
	if r.next >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.next])
	r.next++
	return nil
}

func tokenRow(token string, limit int64, scope string) []driver.Value {
	var raw any
	if scope != "" {
		raw = []byte(scope)
	}
	return []driver.Value{token, limit, raw}
}
