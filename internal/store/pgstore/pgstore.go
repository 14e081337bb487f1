// Package pgstore implements the account and review repositories on PostgreSQL.
package pgstore

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE raised when a unique index rejects a write.
const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// timestamp is now at the microsecond precision timestamptz keeps.
func timestamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}
