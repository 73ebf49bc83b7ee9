package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	ReasonForeignKey = "foreign_key_violation"
	ReasonUnique     = "unique_violation"
	ReasonNotNull    = "not_null_violation"
	ReasonTooLong    = "value_too_long"
	ReasonTimeout    = "timeout"
	ReasonCanceled   = "canceled"
	ReasonUnknown    = "unknown"
)

// Classify maps a driver error onto a short reason shared by all supported
// databases.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return ReasonForeignKey
		case "23505":
			return ReasonUnique
		case "23502":
			return ReasonNotNull
		case "22001":
			return ReasonTooLong
		}
		return ReasonUnknown
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1451, 1452:
			return ReasonForeignKey
		case 1062:
			return ReasonUnique
		case 1048:
			return ReasonNotNull
		case 1406:
			return ReasonTooLong
		}
		return ReasonUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "foreign key constraint"):
		return ReasonForeignKey
	case strings.Contains(msg, "unique constraint"):
		return ReasonUnique
	case strings.Contains(msg, "not null constraint"):
		return ReasonNotNull
	}
	return ReasonUnknown
}
