package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rifaonline/rifa-api/internal/api/middleware"
	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/service"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.User), args.Error(1)
}

type mockRaffleService struct{ mock.Mock }

func (m *mockRaffleService) Create(ctx context.Context, raffle domain.Raffle, actor uint, activate bool) (domain.Raffle, error) {
	args := m.Called(ctx, raffle, actor, activate)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleService) Get(ctx context.Context, id uint, admin bool) (domain.Raffle, error) {
	args := m.Called(ctx, id, admin)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleService) List(ctx context.Context, admin, includeDeleted bool, limit, offset int) ([]domain.Raffle, int64, error) {
	args := m.Called(ctx, admin, includeDeleted, limit, offset)
	return args.Get(0).([]domain.Raffle), args.Get(1).(int64), args.Error(2)
}

func (m *mockRaffleService) UpdateDetails(ctx context.Context, id uint, update service.RaffleUpdate) (domain.Raffle, error) {
	args := m.Called(ctx, id, update)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleService) Toggle(ctx context.Context, id, actor uint) (domain.Raffle, error) {
	args := m.Called(ctx, id, actor)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleService) Delete(ctx context.Context, id, actor uint) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *mockRaffleService) Stats(ctx context.Context, id uint) (domain.RaffleStats, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.RaffleStats), args.Error(1)
}

type mockQuotaService struct{ mock.Mock }

func (m *mockQuotaService) ListQuotas(ctx context.Context, raffleID uint, status domain.QuotaStatus, limit, offset int) ([]domain.Quota, int64, error) {
	args := m.Called(ctx, raffleID, status, limit, offset)
	return args.Get(0).([]domain.Quota), args.Get(1).(int64), args.Error(2)
}

func (m *mockQuotaService) SwapOwner(ctx context.Context, raffleID uint, number string, fromUserID, toUserID uint) (domain.Quota, error) {
	args := m.Called(ctx, raffleID, number, fromUserID, toUserID)
	return args.Get(0).(domain.Quota), args.Error(1)
}

func (m *mockQuotaService) Release(ctx context.Context, raffleID uint, numbers []string, reservationID string) (int, error) {
	args := m.Called(ctx, raffleID, numbers, reservationID)
	return args.Int(0), args.Error(1)
}

type mockLeadService struct{ mock.Mock }

func (m *mockLeadService) ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *mockLeadService) GetLead(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockLeadService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockLeadService) MyNumbers(ctx context.Context, userID uint) ([]domain.RaffleNumbers, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.RaffleNumbers), args.Error(1)
}

type mockPaymentService struct{ mock.Mock }

func (m *mockPaymentService) CreateOrder(ctx context.Context, raffleID, buyerID uint, quantity int) (domain.Order, error) {
	args := m.Called(ctx, raffleID, buyerID, quantity)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockPaymentService) OnPaymentConfirmed(ctx context.Context, ref string, amount decimal.Decimal) (domain.Reservation, error) {
	args := m.Called(ctx, ref, amount)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *mockPaymentService) OnPaymentExpiredOrFailed(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockPaymentService) GetOrder(ctx context.Context, ref string, requesterID uint, admin bool) (domain.Reservation, error) {
	args := m.Called(ctx, ref, requesterID, admin)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

// asUser stands in for VerifyJWT.
func asUser(userID uint, admin bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextKeyUserID, userID)
		ctx.Set(middleware.ContextKeyIsAdmin, admin)
		ctx.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())

	return e
}
