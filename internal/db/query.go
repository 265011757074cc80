package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Row is one result row keyed by column name.
type Row map[string]any

// errorKey marks the sentinel row returned by ExecuteRows on failure.
const errorKey = "error"

// QueryError is the value stored under "error" in the sentinel row. Scanned
// columns are never this type, so a real column named error is not mistaken
// for a failure. It marshals as a plain JSON string.
type QueryError string

var writeKeyword = regexp.MustCompile(`(?i)\b(insert|update|delete|merge|drop|alter|create|truncate|grant|revoke|copy|vacuum|attach|pragma)\b`)

// CheckReadOnly rejects anything but a single SELECT or WITH statement.
func CheckReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, "; \n\t"))
	if q == "" {
		return fmt.Errorf("empty query")
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("only a single statement is allowed")
	}
	lower := strings.ToLower(q)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	if kw := writeKeyword.FindString(q); kw != "" {
		return fmt.Errorf("query contains disallowed keyword %q", strings.ToUpper(kw))
	}
	return nil
}

// Execute runs a read-only query and returns every row. On PostgreSQL the
// query runs inside a READ ONLY transaction that is always rolled back.
func (d *DB) Execute(ctx context.Context, query string) ([]Row, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}
	query = strings.TrimRight(strings.TrimSpace(query), "; \n\t")

	if d.driver != DriverPgx {
		rows, err := d.QueryContext(ctx, query)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRows(rows)
	}

	tx, err := d.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning read-only transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// ExecuteRows is Execute with failures folded into a single sentinel row
// {"error": msg}. Use ErrorOf to detect it.
func (d *DB) ExecuteRows(ctx context.Context, query string) []Row {
	rows, err := d.Execute(ctx, query)
	if err != nil {
		return []Row{{errorKey: QueryError(err.Error())}}
	}
	return rows
}

// ErrorOf reports whether rows is the failure sentinel and returns its message.
func ErrorOf(rows []Row) (string, bool) {
	if len(rows) != 1 || len(rows[0]) != 1 {
		return "", false
	}
	msg, ok := rows[0][errorKey].(QueryError)
	return string(msg), ok
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
