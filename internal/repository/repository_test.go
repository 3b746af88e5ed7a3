package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifaonline/rifa-api/internal/repository/dao"
)

type stubQuotaDAO struct {
	QuotaDAO
	owned []dao.OwnedQuota
	err   error
}

func (s stubQuotaDAO) FindSoldByOwner(context.Context, uint) ([]dao.OwnedQuota, error) {
	return s.owned, s.err
}

type stubUserDAO struct {
	UserDAO
	user dao.User
	err  error
}

func (s stubUserDAO) FindByID(context.Context, uint) (dao.User, error) {
	return s.user, s.err
}

func TestQuotaRepository_FindSoldByOwnerGroupsByRaffle(t *testing.T) {
	repo := NewQuotaRepository(stubQuotaDAO{owned: []dao.OwnedQuota{
		{RaffleID: 1, SequentialID: 1, Title: "Moto", Number: "001"},
		{RaffleID: 1, SequentialID: 1, Title: "Moto", Number: "017"},
		{RaffleID: 4, SequentialID: 3, Title: "Pix", Number: "0420"},
	}})

	grouped, err := repo.FindSoldByOwner(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, grouped, 2)

	assert.Equal(t, "RFL-000001", grouped[0].RaffleCode)
	assert.Equal(t, []string{"001", "017"}, grouped[0].Numbers)
	assert.Equal(t, "RFL-000003", grouped[1].RaffleCode)
	assert.Equal(t, "Pix", grouped[1].RaffleTitle)
	assert.Equal(t, []string{"0420"}, grouped[1].Numbers)
}

func TestQuotaRepository_FindSoldByOwnerWrapsErrors(t *testing.T) {
	repo := NewQuotaRepository(stubQuotaDAO{err: ErrPersistenceTimeout})

	_, err := repo.FindSoldByOwner(context.Background(), 7)
	assert.ErrorIs(t, err, ErrPersistenceTimeout)
}

func TestUserRepository_FindByIDMapsCode(t *testing.T) {
	repo := NewUserRepository(stubUserDAO{user: dao.User{
		ID:           3,
		SequentialID: 42,
		Email:        "maria@example.com",
		Participations: []dao.Participation{
			{RaffleID: 1, QuotasPurchased: 10},
		},
	}})

	user, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "USR-000042", user.Code)
	require.Len(t, user.Participations, 1)
	assert.Equal(t, 10, user.Participations[0].QuotasPurchased)

	repo = NewUserRepository(stubUserDAO{err: dao.ErrUserNotFound})
	_, err = repo.FindByID(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestRaffleRules(t *testing.T) {
	rules := RaffleRules{}
	now := time.Now()
	open := dao.Raffle{Price: decimal.RequireFromString("2.50"), TotalQuotas: 100, Status: "active", IsActive: true}

	assert.True(t, rules.CanReserve(open))
	assert.True(t, decimal.RequireFromString("25").Equal(rules.OrderAmount(open, 10)))
	assert.False(t, rules.Completes(open, 99, now))
	assert.True(t, rules.Completes(open, 100, now))

	paused := open
	paused.Status, paused.IsActive = "inactive", false
	assert.False(t, rules.CanReserve(paused))
	assert.False(t, rules.Completes(paused, 100, now))

	deleted := open
	deleted.IsDeleted = true
	assert.False(t, rules.CanReserve(deleted))

	done := open
	done.Status, done.IsActive = "completed", false
	assert.False(t, rules.Completes(done, 100, now))
}
