package v1

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/service"
)

func newPaymentRouter(svc *mockPaymentService) http.Handler {
	h := NewPaymentHandler(svc)
	r := newTestRouter()
	r.POST("/payment/webhook", h.HandleWebhook)

	buyer := r.Group("", asUser(7, false))
	buyer.POST("/payment/create-order", h.HandleCreateOrder)
	buyer.GET("/payment/orders/:reference", h.HandleGetOrder)

	return r
}

func TestPaymentHandler_HandleCreateOrder(t *testing.T) {
	svc := &mockPaymentService{}
	r := newPaymentRouter(svc)

	order := domain.Order{
		Reservation: domain.Reservation{ID: "res-1", RaffleID: 1, BuyerID: 7, Quantity: 10, Status: domain.ReservationPending},
		Payment: domain.PaymentRequest{
			Reference: "res1",
			Amount:    decimal.RequireFromString("25"),
			Payload:   "000201...",
			ExpiresAt: time.Now().Add(15 * time.Minute),
		},
	}
	svc.On("CreateOrder", mock.Anything, uint(1), uint(7), 10).Return(order, nil).Once()
	svc.On("CreateOrder", mock.Anything, uint(1), uint(7), 500).
		Return(domain.Order{}, fmt.Errorf("s.engine.Reserve -> %w", service.ErrInsufficientInventory)).Once()
	svc.On("CreateOrder", mock.Anything, uint(2), uint(7), 1).
		Return(domain.Order{}, fmt.Errorf("s.engine.Reserve -> %w", service.ErrPersistenceTimeout)).Once()

	w := doJSON(t, r, http.MethodPost, "/payment/create-order", map[string]interface{}{"raffle_id": 1, "quantity": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"reference":"res1"`)

	w = doJSON(t, r, http.MethodPost, "/payment/create-order", map[string]interface{}{"raffle_id": 1, "quantity": 500})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, service.ErrInsufficientInventory.Error(), decode(t, w).Message)

	w = doJSON(t, r, http.MethodPost, "/payment/create-order", map[string]interface{}{"raffle_id": 2, "quantity": 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	w = doJSON(t, r, http.MethodPost, "/payment/create-order", map[string]interface{}{"raffle_id": 1, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestPaymentHandler_HandleGetOrder(t *testing.T) {
	svc := &mockPaymentService{}
	r := newPaymentRouter(svc)

	svc.On("GetOrder", mock.Anything, "res1", uint(7), false).Return(domain.Reservation{ID: "res-1", Status: domain.ReservationConfirmed}, nil).Once()
	svc.On("GetOrder", mock.Anything, "other", uint(7), false).Return(domain.Reservation{}, service.ErrReservationNotFound).Once()

	w := doJSON(t, r, http.MethodGet, "/payment/orders/res1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"confirmed"`)

	w = doJSON(t, r, http.MethodGet, "/payment/orders/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.AssertExpectations(t)
}

func TestPaymentHandler_HandleWebhook(t *testing.T) {
	svc := &mockPaymentService{}
	r := newPaymentRouter(svc)

	paid := decimal.RequireFromString("25")
	svc.On("OnPaymentConfirmed", mock.Anything, "ok", mock.MatchedBy(paid.Equal)).
		Return(domain.Reservation{ID: "ok", RaffleID: 1, Quantity: 10, Status: domain.ReservationConfirmed}, nil).Once()
	svc.On("OnPaymentConfirmed", mock.Anything, "short", mock.Anything).
		Return(domain.Reservation{}, service.ErrPaymentAmountMismatch).Once()
	svc.On("OnPaymentConfirmed", mock.Anything, "late", mock.Anything).
		Return(domain.Reservation{}, service.ErrReservationExpired).Once()
	svc.On("OnPaymentConfirmed", mock.Anything, "ghost", mock.Anything).
		Return(domain.Reservation{}, fmt.Errorf("s.reservations.FindByReference -> %w", service.ErrReservationNotFound)).Once()
	svc.On("OnPaymentExpiredOrFailed", mock.Anything, "gone").Return(nil).Once()

	w := doJSON(t, r, http.MethodPost, "/payment/webhook", map[string]string{"reference": "ok", "status": "paid", "amount": "25.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/payment/webhook", map[string]string{"reference": "short", "status": "paid", "amount": "1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/payment/webhook", map[string]string{"reference": "late", "status": "paid", "amount": "25"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/payment/webhook", map[string]string{"reference": "ghost", "status": "paid", "amount": "25"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unknown reference ignored", decode(t, w).Message)

	w = doJSON(t, r, http.MethodPost, "/payment/webhook", map[string]string{"reference": "gone", "status": "expired"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/payment/webhook", map[string]string{"reference": "x", "status": "refunded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}
