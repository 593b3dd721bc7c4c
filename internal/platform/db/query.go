package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder and pattern-matching syntax.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

func (d Dialect) like() string {
	if d == SQLite {
		return "LIKE"
	}
	return "ILIKE"
}

// SearchQuery accumulates the WHERE clause shared by a list query and its
// COUNT.
type SearchQuery struct {
	dialect Dialect
	table   string
	cols    string
	where   string
	args    []interface{}
	orderBy string
}

func NewSearchQuery(d Dialect, table, cols string) *SearchQuery {
	return &SearchQuery{dialect: d, table: table, cols: cols}
}

func (q *SearchQuery) next(v interface{}) string {
	q.args = append(q.args, v)
	return q.dialect.placeholder(len(q.args))
}

// Eq adds "column = value".
func (q *SearchQuery) Eq(column string, v interface{}) {
	q.where += " AND " + column + " = " + q.next(v)
}

// Contains adds a case-insensitive substring match of term against any of
// the columns. An empty term adds nothing.
func (q *SearchQuery) Contains(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	pattern := LikePattern(term)
	var ph string
	parts := make([]string, len(columns))
	for i, col := range columns {
		if ph == "" || q.dialect == SQLite {
			ph = q.next(pattern)
		}
		parts[i] = fmt.Sprintf(`%s %s %s ESCAPE '\'`, col, q.dialect.like(), ph)
	}
	q.where += " AND (" + strings.Join(parts, " OR ") + ")"
}

func (q *SearchQuery) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

func (q *SearchQuery) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

func (q *SearchQuery) CountArgs() []interface{} {
	return q.args
}

func (q *SearchQuery) DataSQL(limit, offset int) string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	n := len(q.args)
	sql += fmt.Sprintf(" LIMIT %s OFFSET %s", q.dialect.placeholder(n+1), q.dialect.placeholder(n+2))
	return sql
}

func (q *SearchQuery) DataArgs(limit, offset int) []interface{} {
	args := make([]interface{}, 0, len(q.args)+2)
	args = append(args, q.args...)
	return append(args, limit, offset)
}
