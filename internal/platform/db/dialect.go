package db

import (
	"strconv"
	"strings"
)

// Dialect adapts '?' placeholders to the connected driver.
type Dialect string

const (
	Postgres Dialect = DriverPostgres
	SQLite   Dialect = DriverSQLite
)

// DialectFor maps a database/sql driver name to a Dialect.
func DialectFor(driver string) Dialect {
	if driver == DriverPostgres {
		return Postgres
	}
	return SQLite
}

// Rebind rewrites '?' placeholders to $1..$n for PostgreSQL.
// Queries must not contain literal question marks.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns "?, ?, ..." with n markers for IN (...) lists; pass
// the finished query through Rebind. Only the marker structure is
// interpolated, values stay parameterized.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
