package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when an entity does not exist. Distinct from
// scope.ErrForbidden: a row outside the caller's scope is a 403, a missing
// row is a 404, and neither ever degrades to a silent empty result.
var ErrNotFound = errors.New("record not found")

// uniqueViolationCode is the Postgres error code for a unique constraint hit.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, however deeply wrapped.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
