// Package testutil provides a statement-recording stub database for postgres
// store tests that run without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Rows is a canned result set returned for SELECTs against one table.
type Rows struct {
	Columns []string
	Values  [][]driver.Value
}

// StubConn records every statement sent by the store.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Queries    []string
	Tables     map[string]Rows
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	FailTables map[string]bool
	Commits    int
	Rollbacks  int
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string]Rows)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailExec {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	if table := TableOf(query); c.FailTables[table] {
		return nil, fmt.Errorf("exec fail for %s", table)
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queries = append(c.Queries, query)
	table := TableOf(query)
	if c.FailTables[table] {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	canned := c.Tables[table]
	return &stubRows{cols: canned.Columns, rows: canned.Values}, nil
}

// Statements returns the recorded exec statements mentioning table.
func (c *StubConn) Statements(prefix, table string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, q := range c.Execs {
		if strings.HasPrefix(q, prefix) && TableOf(q) == table {
			out = append(out, q)
		}
	}
	return out
}

// Reset forgets every recorded statement.
func (c *StubConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs, c.Queries = nil, nil
	c.Commits, c.Rollbacks = 0, 0
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.Commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.Rollbacks++
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

// TableOf returns the first table named after INTO or FROM, unquoted.
func TableOf(query string) string {
	lower := strings.ToLower(query)
	for _, token := range []string{"insert into ", "delete from ", " from "} {
		if i := strings.Index(lower, token); i >= 0 {
			fields := strings.Fields(query[i+len(token):])
			if len(fields) == 0 {
				return ""
			}
			return strings.Trim(fields[0], `"`)
		}
	}
	return ""
}
