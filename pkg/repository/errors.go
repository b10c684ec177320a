package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/pulse/pkg/fault"
)

const (
	pgDuplicateKeyCode   = "23505"
	pgCheckViolationCode = "23514"
)

// MapError translates database errors to domain errors.
// It maps sql.ErrNoRows to notFoundErr, PostgreSQL unique violation (23505)
// to duplicateErr, and CHECK violation (23514) to an invalid_param fault.
// Other errors are returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	if IsUniqueViolation(err) {
		return duplicateErr
	}

	if IsCheckViolation(err) {
		return fault.Wrap(fault.InvalidParam, err, "value violates a data constraint")
	}

	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
// The aggregation upsert uses this to degrade a racing insert to an update.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgDuplicateKeyCode
}

// IsCheckViolation reports whether err is a PostgreSQL CHECK violation,
// such as an issue losing its last scoping field.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCheckViolationCode
}
