package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"passengerexport/internal/domain"
)

// SQLUsers looks users up in the Users table of a MySQL, Postgres or
// SQLite database. It holds a single connection for the whole run.
type SQLUsers struct {
	driver Driver
	db     *sql.DB
	query  string
	log    *logrus.Entry
}

// ConnectUsers parses uri, opens the database and verifies connectivity.
func ConnectUsers(ctx context.Context, uri string, log *logrus.Entry) (*SQLUsers, error) {
	target, err := ParseRelationalURI(uri)
	if err != nil {
		return nil, err
	}
	return ConnectSQL(ctx, target, log)
}

// ConnectSQL opens target and pings it.
func ConnectSQL(ctx context.Context, target Target, log *logrus.Entry) (*SQLUsers, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"component": "sql", "driver": target.Driver})

	db, err := sql.Open(string(target.Driver), target.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrConnection, target.Driver, err)
	}
	// One outstanding query at a time, for the lifetime of the run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.WithError(err).Error("ping failed")
		return nil, fmt.Errorf("%w: ping %s: %w", domain.ErrConnection, target.Driver, err)
	}

	log.Debug("connected")
	return &SQLUsers{
		driver: target.Driver,
		db:     db,
		query:  lookupQuery(target.Driver),
		log:    log,
	}, nil
}

// LookupUser runs the exact-match query for uid. Rows are streamed; only the
// first is kept, the rest are drained so an error mid-stream still surfaces.
func (c *SQLUsers) LookupUser(ctx context.Context, uid string) (*domain.Passenger, int, error) {
	rows, err := c.db.QueryContext(ctx, c.query, uid)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: lookup uid %q: %w", domain.ErrQuery, uid, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: columns: %w", domain.ErrQuery, err)
	}

	var first *domain.Passenger
	n := 0
	for rows.Next() {
		n++
		if first != nil {
			continue
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, n, fmt.Errorf("%w: scan row: %w", domain.ErrQuery, err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		p := domain.PassengerFromRow(row)
		first = &p
	}
	if err := rows.Err(); err != nil {
		return nil, n, fmt.Errorf("%w: iterate: %w", domain.ErrQuery, err)
	}

	if n > 1 {
		c.log.WithFields(logrus.Fields{"uid": uid, "rows": n}).Warn("multiple users for uid, using the first")
	}
	return first, n, nil
}

// Close closes the underlying database.
func (c *SQLUsers) Close() error {
	return c.db.Close()
}
