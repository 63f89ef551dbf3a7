package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Services translate this into their own conflict error so raw
// driver errors never reach handlers.
func IsUniqueViolation(err error) bool {
	return isPgErrCode(err, pgUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a Postgres foreign-key
// violation, i.e. a referenced row does not exist.
func IsForeignKeyViolation(err error) bool {
	return isPgErrCode(err, pgForeignKeyViolation)
}

func isPgErrCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
