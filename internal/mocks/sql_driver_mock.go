package mocks

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"sync"
)

// MockSQLResult is the row set returned for a query.
type MockSQLResult struct {
	Columns []string
	Rows    [][]driver.Value
}

// MockSQLExec records one statement executed against the mock database.
type MockSQLExec struct {
	Query string
	Args  []driver.Value
}

// MockSQLDriver backs a *sql.DB with scripted results so repositories can be
// tested without PostgreSQL. Query answers every read; a nil result with a
// nil error yields no rows.
type MockSQLDriver struct {
	mu sync.Mutex

	Query func(query string, args []driver.Value) (*MockSQLResult, error)

	// Error injection. ExecErrors is keyed by a substring of the statement.
	ExecErrors  map[string]error
	BeginError  error
	CommitError error

	execs     []MockSQLExec
	commits   int
	rollbacks int
}

func NewMockSQLDriver() *MockSQLDriver {
	return &MockSQLDriver{ExecErrors: make(map[string]error)}
}

// NewMockDB opens a *sql.DB served by d.
func NewMockDB(d *MockSQLDriver) *sql.DB {
	return sql.OpenDB(mockConnector{d: d})
}

// Execs returns a copy of the executed statements.
func (d *MockSQLDriver) Execs() []MockSQLExec {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MockSQLExec, len(d.execs))
	copy(out, d.execs)
	return out
}

func (d *MockSQLDriver) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

func (d *MockSQLDriver) Rollbacks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollbacks
}

func (d *MockSQLDriver) Open(string) (driver.Conn, error) {
	return &mockConn{d: d}, nil
}

func (d *MockSQLDriver) query(query string, args []driver.Value) (driver.Rows, error) {
	d.mu.Lock()
	fn := d.Query
	d.mu.Unlock()

	var result *MockSQLResult
	if fn != nil {
		var err error
		if result, err = fn(query, args); err != nil {
			return nil, err
		}
	}
	if result == nil {
		result = &MockSQLResult{}
	}
	return &mockRows{columns: result.Columns, rows: result.Rows}, nil
}

func (d *MockSQLDriver) exec(query string, args []driver.Value) (driver.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.execs = append(d.execs, MockSQLExec{Query: query, Args: args})
	for fragment, err := range d.ExecErrors {
		if strings.Contains(query, fragment) {
			return nil, err
		}
	}
	return driver.RowsAffected(1), nil
}

type mockConnector struct {
	d *MockSQLDriver
}

func (c mockConnector) Connect(context.Context) (driver.Conn, error) {
	return c.d.Open("")
}

func (c mockConnector) Driver() driver.Driver {
	return c.d
}

type mockConn struct {
	d *MockSQLDriver
}

var (
	_ driver.QueryerContext = (*mockConn)(nil)
	_ driver.ExecerContext  = (*mockConn)(nil)
	_ driver.ConnBeginTx    = (*mockConn)(nil)
)

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return &mockStmt{d: c.d, query: query}, nil
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *mockConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if c.d.BeginError != nil {
		return nil, c.d.BeginError
	}
	return &mockTx{d: c.d}, nil
}

func (c *mockConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.d.query(query, values(args))
}

func (c *mockConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return c.d.exec(query, values(args))
}

func values(named []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(named))
	for i, nv := range named {
		out[i] = nv.Value
	}
	return out
}

type mockStmt struct {
	d     *MockSQLDriver
	query string
}

func (s *mockStmt) Close() error  { return nil }
func (s *mockStmt) NumInput() int { return -1 }

func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.d.exec(s.query, args)
}

func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.d.query(s.query, args)
}

type mockTx struct {
	d *MockSQLDriver
}

func (t *mockTx) Commit() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if t.d.CommitError != nil {
		return t.d.CommitError
	}
	t.d.commits++
	return nil
}

func (t *mockTx) Rollback() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.rollbacks++
	return nil
}

type mockRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *mockRows) Columns() []string { return r.columns }
func (r *mockRows) Close() error      { return nil }

func (r *mockRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}
