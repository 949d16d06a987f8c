package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2...) instead of "?".
	Numbered bool
	// Returning uses "RETURNING id" instead of LastInsertId.
	Returning bool
	// LikeEscape is appended to LIKE clauses that use a backslash escape.
	LikeEscape string
}

var (
	MySQL    = Dialect{Name: "mysql"}
	Postgres = Dialect{Name: "postgres", Numbered: true, Returning: true}
	SQLite   = Dialect{Name: "sqlite3", LikeEscape: ` ESCAPE '\'`}
)

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
