package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type sqlState struct {
	code      ErrorCode
	transient bool
}

// SQLSTATEs we classify; anything else is plain ErrorCodeDB
var sqlStates = map[string]sqlState{
	"23505": {code: ErrorCodeDuplicateKey},    // unique_violation
	"23503": {code: ErrorCodeInvalidArgument}, // foreign_key_violation
	"22001": {code: ErrorCodeInvalidArgument}, // string_data_right_truncation
	"22P02": {code: ErrorCodeInvalidArgument}, // invalid_text_representation
	"22003": {code: ErrorCodeInvalidArgument}, // numeric_value_out_of_range
	"23502": {code: ErrorCodeValidation},      // not_null_violation
	"23514": {code: ErrorCodeValidation},      // check_violation

	"40001": {code: ErrorCodeDB, transient: true}, // serialization_failure
	"40P01": {code: ErrorCodeDB, transient: true}, // deadlock_detected
	"55P03": {code: ErrorCodeDB, transient: true}, // lock_not_available
	"57014": {code: ErrorCodeDB},                  // query_canceled (statement_timeout)

	"25006": {code: ErrorCodeUnavailable},                  // read_only_sql_transaction
	"57P01": {code: ErrorCodeUnavailable, transient: true}, // admin_shutdown
	"57P03": {code: ErrorCodeUnavailable, transient: true}, // cannot_connect_now
	"53300": {code: ErrorCodeUnavailable, transient: true}, // too_many_connections
}

// pgx reports some aborted commits only as text
var transientText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to lock timeout",
	"could not obtain lock on row",
	"terminating connection due to administrator command",
}

func pgState(err error) (sqlState, bool) {
	var pe *pgconn.PgError
	if !stderrs.As(err, &pe) {
		return sqlState{}, false
	}
	if st, ok := sqlStates[pe.Code]; ok {
		return st, true
	}
	return sqlState{code: ErrorCodeDB}, true
}

// FromPostgres codes a driver error: SQLSTATEs by table, dial failures as
// Unavailable, the rest as DB. nil stays nil.
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if st, ok := pgState(err); ok {
		return Wrap(err, st.code, msg)
	}
	var ce *pgconn.ConnectError
	if stderrs.As(err, &ce) || pgconn.SafeToRetry(err) {
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// FromPostgresf is FromPostgres with formatting
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

func transientPG(err error) bool {
	if stderrs.Is(err, context.DeadlineExceeded) || stderrs.Is(err, context.Canceled) {
		return false
	}
	if st, ok := pgState(err); ok {
		return st.transient
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transientText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
