package store

import (
	"fmt"
	"strings"
	"time"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS verification_records (
	id               TEXT PRIMARY KEY,
	ts               TEXT NOT NULL,
	product_id       TEXT NOT NULL,
	product_category TEXT NOT NULL,
	record           %s NOT NULL
)`

// dialect covers the differences between the SQL backends.
type dialect struct {
	placeholder func(n int) string
	recordType  string
}

var (
	postgresDialect = dialect{
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		recordType:  "JSONB",
	}
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
		recordType:  "TEXT",
	}
)

func (d dialect) createTable() string {
	return fmt.Sprintf(createTableSQL, d.recordType)
}

func (d dialect) insert() string {
	return fmt.Sprintf(
		"INSERT INTO verification_records (id, ts, product_id, product_category, record) VALUES (%s, %s, %s, %s, %s)",
		d.placeholder(1), d.placeholder(2), d.placeholder(3), d.placeholder(4), d.placeholder(5),
	)
}

func (d dialect) get() string {
	return fmt.Sprintf("SELECT record FROM verification_records WHERE id = %s", d.placeholder(1))
}

// list builds the history query. ts holds RFC3339 UTC text, so string
// comparison orders correctly.
func (d dialect) list(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, d.placeholder(len(args))))
	}

	if f.ProductID != "" {
		add("product_id = %s", f.ProductID)
	}
	if c := f.category(); c != "" {
		add("product_category = %s", c)
	}
	if !f.From.IsZero() {
		add("ts >= %s", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		add("ts <= %s", f.To.UTC().Format(time.RFC3339))
	}

	var b strings.Builder
	b.WriteString("SELECT record FROM verification_records")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY ts DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT %s", d.placeholder(len(args)))
	}
	return b.String(), args
}
