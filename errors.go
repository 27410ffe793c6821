package mysqlkit

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	mysql "github.com/go-sql-driver/mysql"
)

// ErrorClass groups failures by how the retry policy should treat them.
type ErrorClass int

const (
	// ErrClassUnknown is any failure without a more specific classification.
	// Unknown failures are terminal: they are never retried.
	ErrClassUnknown ErrorClass = iota
	// ErrClassRetryable marks transient failures worth re-attempting:
	// deadlocks, lock wait timeouts, lost or refused connections.
	ErrClassRetryable
	// ErrClassConstraint marks statement-level integrity violations
	// (duplicate keys, bad foreign keys). Always terminal.
	ErrClassConstraint
	// ErrClassConnection marks a failure to reach or authenticate with the
	// server before any statement ran. Terminal for the layers above retry.
	ErrClassConnection
)

// MySQL server error numbers this package classifies.
const (
	errDeadlock        = 1213 // ER_LOCK_DEADLOCK
	errLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	errServerReadOnly  = 1290 // ER_OPTION_PREVENTS_STATEMENT
	errTooManyConns    = 1040 // ER_CON_COUNT_ERROR
	errDupEntry        = 1062 // ER_DUP_ENTRY
	errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
	errAccessDenied    = 1045 // ER_ACCESS_DENIED_ERROR
	errBadDB           = 1049 // ER_BAD_DB_ERROR
)

// Classify maps err to an ErrorClass. Only ErrClassRetryable failures are
// re-attempted by the retry policy; everything else is terminal on first
// failure.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrClassUnknown
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDeadlock, errLockWaitTimeout, errServerReadOnly, errTooManyConns:
			return ErrClassRetryable
		case errDupEntry, errNoReferencedRow:
			return ErrClassConstraint
		case errAccessDenied, errBadDB:
			return ErrClassConnection
		}
		return ErrClassUnknown
	}
	// Connection loss below the protocol: worth one more try on a fresh
	// statement execution.
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return ErrClassRetryable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ErrClassRetryable
	}
	return ErrClassUnknown
}

// IsRetryable reports whether err would be re-attempted under a retry policy.
func IsRetryable(err error) bool { return Classify(err) == ErrClassRetryable }
