package errors

// Postgres-specific helpers for mapping pgx errors raised while reading a source

import (
	stderrs "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that mean the source itself cannot be resolved
const (
	pgErrUndefinedTable      = "42P01"
	pgErrUndefinedColumn     = "42703"
	pgErrInvalidCatalogName  = "3D000"
	pgErrInvalidSchemaName   = "3F000"
	pgErrInvalidPassword     = "28P01"
	pgErrInvalidAuthSpec     = "28000"
	pgErrCannotConnectNow    = "57P03"
	pgErrInsufficientPrivile = "42501"
)

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError.
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// DBErrorCode maps a Postgres error to an ErrorCode with an ok flag
// !ok means err wasn't a PgError; caller may fall back to generic handling
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}

	switch pgErr.Code {
	case pgErrUndefinedTable, pgErrUndefinedColumn, pgErrInvalidCatalogName, pgErrInvalidSchemaName,
		pgErrInvalidPassword, pgErrInvalidAuthSpec, pgErrCannotConnectNow, pgErrInsufficientPrivile:
		return ErrorCodeSourceNotFound, true
	}
	return ErrorCodeUnknown, true
}

// FromPostgres wraps a pg error with a mapped ErrorCode and message.
// Connection-level failures without a PgError are treated as an unresolvable source.
// If err is nil, returns nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	var connErr *pgconn.ConnectError
	if stderrs.As(err, &connErr) {
		return Wrap(err, ErrorCodeSourceNotFound, msg)
	}
	return Wrap(err, ErrorCodeUnknown, msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// AttachFieldFromPg enriches an error with the column name reported by Postgres, if any
func AttachFieldFromPg(err error) error {
	pgErr, ok := ExtractPgError(err)
	if !ok || pgErr.ColumnName == "" {
		return err
	}
	return WithField(err, pgErr.ColumnName)
}
