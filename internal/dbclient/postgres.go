package dbclient

import (
	"net/url"

	_ "github.com/lib/pq"
)

// buildPostgresDSN turns a postgres URL into a lib/pq connection string.
// The tcp:// form (tcp://user@host/db) is accepted as an alias and sslmode
// defaults to disable.
func buildPostgresDSN(u *url.URL) string {
	dsn := *u
	dsn.Scheme = "postgres"
	q := dsn.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	dsn.RawQuery = q.Encode()
	return dsn.String()
}
