package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsDuplicate reports whether err is a Postgres unique-constraint
// violation (23505). Double-booking races across processes are resolved by
// the partial unique indexes, so callers map this onto their
// "already recorded" validation error.
func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
