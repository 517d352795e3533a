package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeExclusionViolation  = "23P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ConstraintName returns the violated constraint, if err is a Postgres error.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func IsUniqueViolation(err error) bool     { return pgCode(err) == codeUniqueViolation }
func IsForeignKeyViolation(err error) bool { return pgCode(err) == codeForeignKeyViolation }
func IsCheckViolation(err error) bool      { return pgCode(err) == codeCheckViolation }

// IsExclusionViolation reports a rejected overlapping date range.
func IsExclusionViolation(err error) bool { return pgCode(err) == codeExclusionViolation }

// isTxRetryable restarts a unit of work only on errors that a fresh attempt
// can clear. Business errors returned by the callback are never retried.
func isTxRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch code := pgCode(err); {
	case code == "40001", code == "40P01": // serialization_failure, deadlock_detected
		return true
	case code == "55P03": // lock_not_available
		return true
	case strings.HasPrefix(code, "08"): // connection_exception
		return true
	case code != "":
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection refused", "connection reset", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
