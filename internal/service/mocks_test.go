package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/rifaonline/rifa-api/internal/domain"
)

type mockAuthUserRepository struct {
	mock.Mock
}

func (m *mockAuthUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthUserRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	args := m.Called(ctx, id, isAdmin)
	return args.Error(0)
}

type mockRaffleRepository struct {
	mock.Mock
}

func (m *mockRaffleRepository) Create(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error) {
	args := m.Called(ctx, raffle)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleRepository) FindByID(ctx context.Context, id uint) (domain.Raffle, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleRepository) FindAll(ctx context.Context, publicOnly, includeDeleted bool, limit, offset int) ([]domain.Raffle, int64, error) {
	args := m.Called(ctx, publicOnly, includeDeleted, limit, offset)
	return args.Get(0).([]domain.Raffle), args.Get(1).(int64), args.Error(2)
}

func (m *mockRaffleRepository) UpdateDetails(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error) {
	args := m.Called(ctx, raffle)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockRaffleRepository) SaveStatus(ctx context.Context, raffle domain.Raffle, from domain.RaffleStatus) error {
	args := m.Called(ctx, raffle, from)
	return args.Error(0)
}

func (m *mockRaffleRepository) CountQuotasByStatus(ctx context.Context, raffleID uint) (map[domain.QuotaStatus]int, error) {
	args := m.Called(ctx, raffleID)
	return args.Get(0).(map[domain.QuotaStatus]int), args.Error(1)
}

type mockPendingCounter struct {
	mock.Mock
}

func (m *mockPendingCounter) CountPending(ctx context.Context, raffleID uint) (int, error) {
	args := m.Called(ctx, raffleID)
	return args.Int(0), args.Error(1)
}

type mockQuotaRepository struct {
	mock.Mock
}

func (m *mockQuotaRepository) Reserve(ctx context.Context, reservationID string, raffleID, buyerID uint, quantity int, at, expiresAt time.Time) (domain.Reservation, error) {
	args := m.Called(ctx, reservationID, raffleID, buyerID, quantity, at, expiresAt)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *mockQuotaRepository) ConfirmSale(ctx context.Context, raffleID, buyerID uint, numbers []string, amount decimal.Decimal, reservationID string, at time.Time) (domain.Raffle, error) {
	args := m.Called(ctx, raffleID, buyerID, numbers, amount, reservationID, at)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockQuotaRepository) Release(ctx context.Context, raffleID uint, numbers []string, reservationID string, at time.Time) (int, domain.Raffle, error) {
	args := m.Called(ctx, raffleID, numbers, reservationID, at)
	return args.Int(0), args.Get(1).(domain.Raffle), args.Error(2)
}

func (m *mockQuotaRepository) SwapOwner(ctx context.Context, raffleID uint, number string, fromUserID, toUserID uint) (domain.Quota, error) {
	args := m.Called(ctx, raffleID, number, fromUserID, toUserID)
	return args.Get(0).(domain.Quota), args.Error(1)
}

func (m *mockQuotaRepository) FindByRaffle(ctx context.Context, raffleID uint, status domain.QuotaStatus, limit, offset int) ([]domain.Quota, int64, error) {
	args := m.Called(ctx, raffleID, status, limit, offset)
	return args.Get(0).([]domain.Quota), args.Get(1).(int64), args.Error(2)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(event domain.RaffleEvent) {
	m.Called(event)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentRequest(ctx context.Context, amount decimal.Decimal, reference string) (domain.PaymentRequest, error) {
	args := m.Called(ctx, amount, reference)
	return args.Get(0).(domain.PaymentRequest), args.Error(1)
}

type mockReservationRepository struct {
	mock.Mock
}

func (m *mockReservationRepository) FindByReference(ctx context.Context, ref string) (domain.Reservation, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) SetPaymentRef(ctx context.Context, id, paymentRef string) error {
	args := m.Called(ctx, id, paymentRef)
	return args.Error(0)
}

func (m *mockReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

type mockQuotaEngine struct {
	mock.Mock
}

func (m *mockQuotaEngine) Reserve(ctx context.Context, raffleID, buyerID uint, quantity int) (domain.Reservation, error) {
	args := m.Called(ctx, raffleID, buyerID, quantity)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *mockQuotaEngine) ConfirmSale(ctx context.Context, raffleID, buyerID uint, numbers []string, amount decimal.Decimal, reservationID string) (domain.Raffle, error) {
	args := m.Called(ctx, raffleID, buyerID, numbers, amount, reservationID)
	return args.Get(0).(domain.Raffle), args.Error(1)
}

func (m *mockQuotaEngine) Release(ctx context.Context, raffleID uint, numbers []string, reservationID string) (int, error) {
	args := m.Called(ctx, raffleID, numbers, reservationID)
	return args.Int(0), args.Error(1)
}

type mockExpirer struct {
	mock.Mock
}

func (m *mockExpirer) ExpireStale(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}
