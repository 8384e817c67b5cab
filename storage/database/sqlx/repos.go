// Package sqlxrepos implements the repositories on PostgreSQL through sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/appel/core"
)

// PostgreSQL error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// pgCode returns the SQLSTATE of a PostgreSQL error from either driver.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// trapNoRowsErr maps "no rows" to core.ErrNotFound and any other failure to a core.StorageError.
func trapNoRowsErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return core.ErrNotFound
	}
	return core.NewStorageError(err, op)
}

// checkAffected reports core.ErrNotFound when a statement matched no row.
func checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError(err, op)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullID(id int64) null.Int64 {
	return null.NewInt64(id, id != 0)
}
