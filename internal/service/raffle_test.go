package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rifaonline/rifa-api/internal/domain"
)

func newTestRaffleService() (*RaffleService, *mockRaffleRepository, *mockPendingCounter) {
	repo := new(mockRaffleRepository)
	pending := new(mockPendingCounter)
	svc := NewRaffleService(repo, pending)
	svc.now = fixedClock

	return svc, repo, pending
}

func TestRaffleService_CreateValidates(t *testing.T) {
	tests := []struct {
		name   string
		raffle domain.Raffle
	}{
		{name: "short title", raffle: domain.Raffle{Title: "ab", Price: decimal.NewFromInt(1), TotalQuotas: 10}},
		{name: "price below a cent", raffle: domain.Raffle{Title: "Moto", Price: decimal.RequireFromString("0.001"), TotalQuotas: 10}},
		{name: "no quotas", raffle: domain.Raffle{Title: "Moto", Price: decimal.NewFromInt(1), TotalQuotas: 0}},
		{name: "too many quotas", raffle: domain.Raffle{Title: "Moto", Price: decimal.NewFromInt(1), TotalQuotas: MaxTotalQuotas + 1}},
		{name: "package larger than total", raffle: domain.Raffle{Title: "Moto", Price: decimal.NewFromInt(1), TotalQuotas: 10, QuickSelect: []int{5, 20}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestRaffleService()

			_, err := svc.Create(context.Background(), tt.raffle, 1, true)
			assert.ErrorIs(t, err, ErrInvalidInput)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRaffleService_CreateActive(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRaffleService()

	repo.On("Create", ctx, mock.MatchedBy(func(r domain.Raffle) bool {
		return r.PublicID != "" &&
			r.Status == domain.RaffleActive &&
			r.IsActive &&
			r.AvailableQuotas == 100 &&
			len(r.StatusHistory) == 2 &&
			r.StatusHistory[0].Status == domain.RaffleDraft &&
			r.StatusHistory[1].Status == domain.RaffleActive &&
			r.StatusHistory[1].ChangedBy == 9
	})).Return(domain.Raffle{ID: 1, Status: domain.RaffleActive}, nil).Once()

	created, err := svc.Create(ctx, domain.Raffle{
		Title:       "  Moto 0km ",
		Price:       decimal.RequireFromString("2.50"),
		TotalQuotas: 100,
		QuickSelect: []int{10, 50, 100},
	}, 9, true)
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.ID)
	repo.AssertExpectations(t)
}

func TestRaffleService_Toggle(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRaffleService()

	repo.On("FindByID", ctx, uint(4)).Return(domain.Raffle{ID: 4, Status: domain.RaffleActive, IsActive: true}, nil).Once()
	repo.On("SaveStatus", ctx, mock.MatchedBy(func(r domain.Raffle) bool {
		return r.Status == domain.RaffleInactive && !r.IsActive && len(r.StatusHistory) == 1
	}), domain.RaffleActive).Return(nil).Once()

	toggled, err := svc.Toggle(ctx, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RaffleInactive, toggled.Status)
	repo.AssertExpectations(t)
}

func TestRaffleService_DeleteTerminalRaffle(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRaffleService()

	repo.On("FindByID", ctx, uint(4)).Return(domain.Raffle{ID: 4, Status: domain.RaffleCompleted}, nil).Once()

	err := svc.Delete(ctx, 4, 1)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	repo.AssertNotCalled(t, "SaveStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRaffleService_DeleteAlreadyDeleted(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRaffleService()

	repo.On("FindByID", ctx, uint(4)).Return(domain.Raffle{ID: 4, Status: domain.RaffleCancelled, IsDeleted: true}, nil).Once()

	assert.ErrorIs(t, svc.Delete(ctx, 4, 1), ErrRaffleNotFound)
}

func TestRaffleService_GetHidesDeleted(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRaffleService()

	deleted := domain.Raffle{ID: 2, Status: domain.RaffleCancelled, IsDeleted: true}
	repo.On("FindByID", ctx, uint(2)).Return(deleted, nil)

	_, err := svc.Get(ctx, 2, false)
	assert.ErrorIs(t, err, ErrRaffleNotFound)

	found, err := svc.Get(ctx, 2, true)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted)
}

func TestRaffleService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, repo, pending := newTestRaffleService()

	repo.On("FindByID", ctx, uint(3)).Return(domain.Raffle{
		ID:                3,
		Code:              "RFL-000003",
		TotalQuotas:       100,
		AvailableQuotas:   85,
		TotalParticipants: 2,
		TotalRevenue:      decimal.NewFromInt(20),
	}, nil)
	repo.On("CountQuotasByStatus", ctx, uint(3)).Return(map[domain.QuotaStatus]int{
		domain.QuotaAvailable: 85,
		domain.QuotaReserved:  5,
		domain.QuotaSold:      10,
	}, nil)
	pending.On("CountPending", ctx, uint(3)).Return(1, nil)

	stats, err := svc.Stats(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.ReservedQuotas)
	assert.Equal(t, 10, stats.SoldQuotas)
	assert.Equal(t, 85, stats.AvailableQuotas)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, "RFL-000003", stats.Code)
}
