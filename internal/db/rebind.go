package db

import (
	"strconv"
	"strings"
)

// Rebind converts '?' placeholders to the driver-specific format.
// For Postgres (pgx), it rewrites to $1, $2, ...; for SQLite it returns unchanged.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	// Replace each '?' with $n in order
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}
