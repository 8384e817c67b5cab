package core

import (
	"context"
	"database/sql"
	"time"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// DBPinger is satisfied by *sql.DB and *sqlx.DB.
	DBPinger interface {
		PingContext(ctx context.Context) error
	}
)

var (
	_ DBExecutor = (*sql.DB)(nil)
	_ DBExecutor = (*sql.Tx)(nil)
	_ DBPinger   = (*sql.DB)(nil)
)

// DefaultDBTimeout caps every single statement sent to the database.
var DefaultDBTimeout = 5 * time.Second

// WithDBTimeout derives a context bounded by DefaultDBTimeout, or by the parent's deadline when it is sooner.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
