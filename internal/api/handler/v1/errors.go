package v1

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/service"
)

// retryAfterSeconds is suggested to clients when the database is saturated.
const retryAfterSeconds = 2

var (
	badRequestErrs = []error{
		service.ErrInvalidInput,
		service.ErrInvalidQuantity,
		service.ErrInvalidQuotaNumber,
	}
	conflictErrs = []error{
		service.ErrInsufficientInventory,
		service.ErrRaffleNotOpen,
		service.ErrReservationNotFound,
		service.ErrOwnershipMismatch,
		service.ErrStatusConflict,
		service.ErrInvalidStatusTransition,
		service.ErrUserEmailExists,
		service.ErrReservationExpired,
		service.ErrReservationReleased,
		service.ErrPaymentAmountMismatch,
	}
	unavailableErrs = []error{
		service.ErrPersistenceTimeout,
		service.ErrPaymentUnavailable,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// publicErr drops the call chain ("s.repo.X -> ...") so only the cause reaches the client.
func publicErr(err error) error {
	msg := err.Error()
	if i := strings.LastIndex(msg, " -> "); i >= 0 {
		msg = msg[i+len(" -> "):]
	}

	return errors.New(msg)
}

// fromServiceErr translates service errors into HTTP errors. op names the failing call and
// only shows up in logs.
func fromServiceErr(err error, op string) *response.Err {
	var vErrs validation.Errors
	switch {
	case errors.As(err, &vErrs), isAny(err, badRequestErrs):
		return response.ErrBadRequest(publicErr(err))
	case errors.Is(err, service.ErrRaffleNotFound),
		errors.Is(err, service.ErrQuotaNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return response.ErrResourceNotFound(publicErr(err))
	case errors.Is(err, service.ErrUserBlocked):
		return response.ErrPermissionDenied(err)
	case isAny(err, conflictErrs):
		return response.ErrConflict(publicErr(err))
	case isAny(err, unavailableErrs):
		return response.ErrServiceUnavailable(fmt.Errorf("%s -> %w", op, err), retryAfterSeconds)
	default:
		return response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err))
	}
}

func renderServiceErr(ctx *gin.Context, err error, op string) {
	response.RenderErr(ctx, fromServiceErr(err, op))
}
