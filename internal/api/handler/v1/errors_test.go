package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rifaonline/rifa-api/internal/service"
)

func TestFromServiceErr(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{fmt.Errorf("%w: 0", service.ErrInvalidQuantity), http.StatusBadRequest, "invalid quota quantity: 0"},
		{fmt.Errorf("s.repo.FindByID -> %w", service.ErrRaffleNotFound), http.StatusNotFound, service.ErrRaffleNotFound.Error()},
		{fmt.Errorf("s.quotas.Reserve -> r.dao.Reserve -> %w", service.ErrInsufficientInventory), http.StatusConflict, service.ErrInsufficientInventory.Error()},
		{fmt.Errorf("x -> %w", service.ErrOwnershipMismatch), http.StatusConflict, service.ErrOwnershipMismatch.Error()},
		{service.ErrInvalidStatusTransition, http.StatusConflict, service.ErrInvalidStatusTransition.Error()},
		{service.ErrUserBlocked, http.StatusForbidden, "permission denied"},
		{fmt.Errorf("x -> %w", service.ErrPersistenceTimeout), http.StatusServiceUnavailable, "service temporarily unavailable, retry later"},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		{context.Canceled, http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			got := fromServiceErr(tc.err, "test")
			assert.Equal(t, tc.wantStatus, got.HTTPStatusCode)
			assert.Equal(t, tc.wantMsg, got.Message)
		})
	}

	assert.Equal(t, retryAfterSeconds, fromServiceErr(service.ErrPersistenceTimeout, "test").RetryAfter)
}
