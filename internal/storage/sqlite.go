package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/mobproto/internal/model"
)

// SQLTable is the table name the cache exposes to queries.
const SQLTable = "mobs"

// SQLCache mirrors a mob table into an in-memory SQLite database so it
// can be queried with SQL. It is rebuilt from the document on Load and
// never written back.
type SQLCache struct {
	db     *sql.DB
	schema *model.Schema
}

// NewSQLCache opens an empty in-memory cache for schema.
func NewSQLCache(s *model.Schema) (*SQLCache, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// each connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &SQLCache{db: db, schema: s}
	if err := c.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection.
func (c *SQLCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func sqlType(k model.Kind) string {
	switch k {
	case model.KindInt:
		return "INTEGER"
	case model.KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (c *SQLCache) createTable() error {
	defs := make([]string, len(c.schema.Columns))
	for i, col := range c.schema.Columns {
		defs[i] = quoteIdent(col.Name) + " " + sqlType(col.Kind)
		if col.Name == c.schema.Key {
			defs[i] += " PRIMARY KEY"
		}
	}
	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(SQLTable), strings.Join(defs, ",\n\t"))
	if _, err := c.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// sqlValue converts a cell to its SQL value. Blank cells are NULL.
func sqlValue(v model.Value) interface{} {
	switch x := v.(type) {
	case model.IntValue:
		if x.Blank() {
			return nil
		}
		return x.N
	case model.RealValue:
		if x.Blank() {
			return nil
		}
		return x.F
	case model.TextValue:
		return x.S
	}
	return nil
}

// Load replaces the cached rows with records.
func (c *SQLCache) Load(records iter.Seq[*model.Record]) (err error) {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM " + quoteIdent(SQLTable)); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	cols := make([]string, len(c.schema.Columns))
	marks := make([]string, len(c.schema.Columns))
	for i, col := range c.schema.Columns {
		cols[i] = quoteIdent(col.Name)
		marks[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(SQLTable), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(c.schema.Columns))
	for r := range records {
		for i, v := range r.Values() {
			args[i] = sqlValue(v)
		}
		if _, err = stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert VNUM %d: %w", r.VNUM(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CountRecords returns the number of cached rows.
func (c *SQLCache) CountRecords() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(SQLTable)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// ErrInvalidQuery is returned for SQL that is not a single read-only query.
var ErrInvalidQuery = errors.New("invalid query")

// checkReadOnly rejects anything but a single SELECT (or WITH ... SELECT).
func checkReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if strings.Contains(q, ";") {
		return fmt.Errorf("%w: only a single statement is allowed", ErrInvalidQuery)
	}
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: only SELECT queries are allowed", ErrInvalidQuery)
	}
	return nil
}

// RawQuery executes a read-only SQL query and returns results as maps.
// Column order is returned separately.
func (c *SQLCache) RawQuery(query string) ([]map[string]interface{}, []string, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, nil, err
	}
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			val := values[i]
			// []byte to string for readability
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return results, columns, nil
}

// SelectVNUMs runs a read-only query whose first column holds VNUMs.
func (c *SQLCache) SelectVNUMs(query string) ([]int64, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	var out []int64
	for rows.Next() {
		var vnum sql.NullInt64
		rest := make([]interface{}, len(columns))
		rest[0] = &vnum
		for i := 1; i < len(rest); i++ {
			rest[i] = new(interface{})
		}
		if err := rows.Scan(rest...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if vnum.Valid {
			out = append(out, vnum.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return out, nil
}
