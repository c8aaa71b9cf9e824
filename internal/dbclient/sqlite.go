package dbclient

import (
	"strings"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN sets a busy timeout so a lookup waits out concurrent
// writers instead of failing with SQLITE_BUSY.
func buildSQLiteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}
