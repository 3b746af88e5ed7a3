package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserEmailExists       = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrRaffleNotFound        = errors.New("raffle not found")
	ErrRaffleNotOpen         = errors.New("raffle is not open for sales")
	ErrQuotaNotFound         = errors.New("quota not found")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrInsufficientInventory = errors.New("not enough available quotas")
	ErrOwnershipMismatch     = errors.New("quota is not sold to the given user")
	ErrStatusConflict        = errors.New("raffle status changed concurrently")
	ErrPersistenceTimeout    = errors.New("storage unavailable")
)

// translateErr maps driver level timeouts and outages to ErrPersistenceTimeout and leaves
// every other error untouched.
func translateErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrPersistenceTimeout, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrPersistenceTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.QueryCanceled, pgerrcode.LockNotAvailable,
			pgerrcode.CannotConnectNow, pgerrcode.AdminShutdown, pgerrcode.TooManyConnections:
			return fmt.Errorf("%w: %s", ErrPersistenceTimeout, pgErr.Message)
		}
	}

	return err
}

func isUniqueViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}

	return column == "" || containsFold(pgErr.ConstraintName, column) || containsFold(pgErr.Message, column)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
