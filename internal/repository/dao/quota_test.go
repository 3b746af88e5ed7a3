package dao

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rifaonline/rifa-api/internal/domain"
)

// aggregateRules applies the domain raffle rules to a row, as the repository layer does.
type aggregateRules struct{}

func toAggregate(r Raffle) domain.Raffle {
	return domain.Raffle{
		Price:       r.Price,
		TotalQuotas: r.TotalQuotas,
		Status:      domain.RaffleStatus(r.Status),
		IsActive:    r.IsActive,
		IsDeleted:   r.IsDeleted,
	}
}

func (aggregateRules) CanReserve(raffle Raffle) bool {
	r := toAggregate(raffle)
	return r.CanReserve()
}

func (aggregateRules) OrderAmount(raffle Raffle, quantity int) decimal.Decimal {
	r := toAggregate(raffle)
	return r.OrderAmount(quantity)
}

func (aggregateRules) Completes(raffle Raffle, soldQuotas int, at time.Time) bool {
	r := toAggregate(raffle)
	return r.IsSoldOut(soldQuotas) && r.Complete(0, at) == nil
}

func paddedNumbers(total int) []string {
	width := len(fmt.Sprint(total))
	numbers := make([]string, total)
	for i := range numbers {
		numbers[i] = fmt.Sprintf("%0*d", width, i+1)
	}

	return numbers
}

func createTestUser(t *testing.T, db *gorm.DB, email string) User {
	t.Helper()

	user, err := NewUserDAO(db).Insert(context.Background(), User{
		Email:    email,
		Password: "hash",
		Name:     "Buyer " + email,
	})
	require.NoError(t, err)

	return user
}

func createTestRaffle(t *testing.T, db *gorm.DB, total int, price string) Raffle {
	t.Helper()

	raffle, err := NewRaffleDAO(db).Insert(context.Background(), Raffle{
		PublicID:    uuid.NewString(),
		Title:       "Moto 0km",
		Price:       decimal.RequireFromString(price),
		TotalQuotas: total,
		Status:      RaffleStatusActive,
		IsActive:    true,
	}, paddedNumbers(total))
	require.NoError(t, err)

	return raffle
}

func newClaim(raffleID, buyerID uint, quantity int) Claim {
	now := time.Now().UTC()

	return Claim{
		ReservationID: uuid.NewString(),
		RaffleID:      raffleID,
		BuyerID:       buyerID,
		Quantity:      quantity,
		At:            now,
		ExpiresAt:     now.Add(15 * time.Minute),
	}
}

// assertInventoryConsistent checks the counters and per-quota owner rules of a raffle.
func findQuota(t *testing.T, db *gorm.DB, raffleID uint, number string) Quota {
	t.Helper()

	var quota Quota
	require.NoError(t, db.Where("raffle_id = ? AND number = ?", raffleID, number).First(&quota).Error)

	return quota
}

func assertInventoryConsistent(t *testing.T, db *gorm.DB, raffleID uint) {
	t.Helper()

	var raffle Raffle
	require.NoError(t, db.First(&raffle, raffleID).Error)

	var taken int64
	require.NoError(t, db.Model(&Quota{}).Where("raffle_id = ? AND status <> ?", raffleID, QuotaAvailable).Count(&taken).Error)
	assert.Equal(t, raffle.TotalQuotas-int(taken), raffle.AvailableQuotas)

	var broken int64
	require.NoError(t, db.Model(&Quota{}).
		Where("raffle_id = ? AND status = ? AND (owner_id IS NOT NULL OR reserved_at IS NOT NULL)", raffleID, QuotaAvailable).
		Count(&broken).Error)
	assert.Zero(t, broken)

	require.NoError(t, db.Model(&Quota{}).
		Where("raffle_id = ? AND status = ? AND owner_id IS NULL", raffleID, QuotaSold).
		Count(&broken).Error)
	assert.Zero(t, broken)
}

func TestRaffleDAO_InsertCreatesQuotas(t *testing.T) {
	db := setupDB(t)

	raffle := createTestRaffle(t, db, 100, "2.50")

	assert.Equal(t, int64(1), raffle.SequentialID)
	assert.Equal(t, 100, raffle.AvailableQuotas)

	quotas, total, err := NewQuotaDAO(db, aggregateRules{}).FindByRaffle(context.Background(), raffle.ID, "", 200, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
	require.Len(t, quotas, 100)
	assert.Equal(t, "001", quotas[0].Number)
	assert.Equal(t, "100", quotas[99].Number)
	for _, q := range quotas {
		assert.Equal(t, QuotaAvailable, q.Status)
		assert.Nil(t, q.OwnerID)
	}

	second := createTestRaffle(t, db, 10, "1")
	assert.Equal(t, int64(2), second.SequentialID)
}

func TestRaffleDAO_InsertIsAllOrNothing(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := NewRaffleDAO(db).Insert(ctx, Raffle{
		PublicID:    uuid.NewString(),
		Title:       "Broken",
		Price:       decimal.NewFromInt(1),
		TotalQuotas: 2,
		Status:      RaffleStatusActive,
	}, []string{"1", "1"})
	require.Error(t, err)

	var raffles, quotas int64
	require.NoError(t, db.Model(&Raffle{}).Count(&raffles).Error)
	require.NoError(t, db.Model(&Quota{}).Count(&quotas).Error)
	assert.Zero(t, raffles)
	assert.Zero(t, quotas)

	var sequences int64
	require.NoError(t, db.Model(&Sequence{}).Where("name = ?", SequenceRaffles).Count(&sequences).Error)
	assert.Zero(t, sequences)
}

func TestQuotaDAO_PurchaseScenario(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	buyer := createTestUser(t, db, "a@example.com")
	raffle := createTestRaffle(t, db, 100, "2.50")

	reservation, err := quotaDAO.Reserve(ctx, newClaim(raffle.ID, buyer.ID, 10))
	require.NoError(t, err)
	require.Len(t, reservation.Numbers, 10)
	assert.True(t, decimal.RequireFromString("25").Equal(reservation.Amount))
	assert.Equal(t, ReservationPending, reservation.Status)

	stored, err := NewRaffleDAO(db).FindByID(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, stored.AvailableQuotas)
	assertInventoryConsistent(t, db, raffle.ID)

	updated, err := quotaDAO.ConfirmSale(ctx, Sale{
		RaffleID:      raffle.ID,
		BuyerID:       buyer.ID,
		Numbers:       reservation.Numbers,
		Amount:        reservation.Amount,
		ReservationID: reservation.ID,
		At:            time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.AvailableQuotas)
	assert.Equal(t, 1, updated.TotalParticipants)
	assert.True(t, decimal.RequireFromString("25").Equal(updated.TotalRevenue))
	assertInventoryConsistent(t, db, raffle.ID)

	for _, n := range reservation.Numbers {
		q := findQuota(t, db, raffle.ID, n)
		assert.Equal(t, QuotaSold, q.Status)
		require.NotNil(t, q.OwnerID)
		assert.Equal(t, buyer.ID, *q.OwnerID)
		assert.Nil(t, q.ReservedAt)
	}

	user, err := NewUserDAO(db).FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, user.QuotasPurchased)
	assert.True(t, decimal.RequireFromString("25").Equal(user.TotalSpent))
	require.Len(t, user.Participations, 1)
	assert.Equal(t, 10, user.Participations[0].QuotasPurchased)

	// A repeated confirmation cannot credit anything twice.
	_, err = quotaDAO.ConfirmSale(ctx, Sale{
		RaffleID:      raffle.ID,
		BuyerID:       buyer.ID,
		Numbers:       reservation.Numbers,
		Amount:        reservation.Amount,
		ReservationID: reservation.ID,
		At:            time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	stored, err = NewRaffleDAO(db).FindByID(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalParticipants)
	assert.True(t, decimal.RequireFromString("25").Equal(stored.TotalRevenue))

	// Nothing is outstanding, so releasing is a no-op.
	released, _, err := quotaDAO.Release(ctx, Release{RaffleID: raffle.ID, ReservationID: uuid.NewString(), At: time.Now().UTC()})
	require.NoError(t, err)
	assert.Zero(t, released)
	assertInventoryConsistent(t, db, raffle.ID)

	owned, err := quotaDAO.FindSoldByOwner(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 10)
	assert.Equal(t, "Moto 0km", owned[0].Title)
}

func TestQuotaDAO_ReserveMoreThanAvailable(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	buyer := createTestUser(t, db, "a@example.com")
	raffle := createTestRaffle(t, db, 10, "1")

	_, err := NewQuotaDAO(db, aggregateRules{}).Reserve(ctx, newClaim(raffle.ID, buyer.ID, 11))
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	var reserved, reservations int64
	require.NoError(t, db.Model(&Quota{}).Where("status = ?", QuotaReserved).Count(&reserved).Error)
	require.NoError(t, db.Model(&Reservation{}).Count(&reservations).Error)
	assert.Zero(t, reserved)
	assert.Zero(t, reservations)
	assertInventoryConsistent(t, db, raffle.ID)
}

func TestQuotaDAO_ReserveClosedRaffle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	buyer := createTestUser(t, db, "a@example.com")
	raffle := createTestRaffle(t, db, 10, "1")
	require.NoError(t, db.Model(&Raffle{}).Where("id = ?", raffle.ID).Updates(map[string]interface{}{"status": "inactive", "is_active": false}).Error)

	_, err := NewQuotaDAO(db, aggregateRules{}).Reserve(ctx, newClaim(raffle.ID, buyer.ID, 1))
	assert.ErrorIs(t, err, ErrRaffleNotOpen)

	_, err = NewQuotaDAO(db, aggregateRules{}).Reserve(ctx, newClaim(raffle.ID+100, buyer.ID, 1))
	assert.ErrorIs(t, err, ErrRaffleNotFound)
}

func TestQuotaDAO_ConcurrentReservationsNeverOversell(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	raffle := createTestRaffle(t, db, 20, "1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, buyer := range []User{a, b} {
		wg.Add(1)
		go func(i int, buyerID uint) {
			defer wg.Done()
			_, errs[i] = quotaDAO.Reserve(ctx, newClaim(raffle.ID, buyerID, 20))
		}(i, buyer.ID)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientInventory)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assertInventoryConsistent(t, db, raffle.ID)
}

func TestQuotaDAO_ReleaseIsIdempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	buyer := createTestUser(t, db, "a@example.com")
	raffle := createTestRaffle(t, db, 10, "1")

	reservation, err := quotaDAO.Reserve(ctx, newClaim(raffle.ID, buyer.ID, 4))
	require.NoError(t, err)

	rel := Release{RaffleID: raffle.ID, Numbers: reservation.Numbers, At: time.Now().UTC()}
	released, updated, err := quotaDAO.Release(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, 4, released)
	assert.Equal(t, 10, updated.AvailableQuotas)

	released, updated, err = quotaDAO.Release(ctx, rel)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, 10, updated.AvailableQuotas)
	assertInventoryConsistent(t, db, raffle.ID)

	stored, err := NewReservationDAO(db).FindByReference(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationReleased, stored.Status)
}

func TestQuotaDAO_PartialReleaseKeepsReservationPending(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	buyer := createTestUser(t, db, "a@example.com")
	raffle := createTestRaffle(t, db, 10, "1")

	reservation, err := quotaDAO.Reserve(ctx, newClaim(raffle.ID, buyer.ID, 3))
	require.NoError(t, err)

	released, _, err := quotaDAO.Release(ctx, Release{RaffleID: raffle.ID, Numbers: reservation.Numbers[:1], At: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	stored, err := NewReservationDAO(db).FindByReference(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationPending, stored.Status)

	released, _, err = quotaDAO.Release(ctx, Release{RaffleID: raffle.ID, ReservationID: reservation.ID, At: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assertInventoryConsistent(t, db, raffle.ID)
}

func TestQuotaDAO_ConfirmSaleRequiresBuyerReservation(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	raffle := createTestRaffle(t, db, 10, "1")

	reservation, err := quotaDAO.Reserve(ctx, newClaim(raffle.ID, a.ID, 2))
	require.NoError(t, err)

	_, err = quotaDAO.ConfirmSale(ctx, Sale{
		RaffleID: raffle.ID,
		BuyerID:  b.ID,
		Numbers:  reservation.Numbers,
		Amount:   reservation.Amount,
		At:       time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	// One unreserved number spoils the whole sale.
	numbers := append([]string{}, reservation.Numbers...)
	for _, n := range paddedNumbers(10) {
		if n != numbers[0] && n != numbers[1] {
			numbers = append(numbers, n)
			break
		}
	}
	_, err = quotaDAO.ConfirmSale(ctx, Sale{
		RaffleID: raffle.ID,
		BuyerID:  a.ID,
		Numbers:  numbers,
		Amount:   reservation.Amount,
		At:       time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	var sold int64
	require.NoError(t, db.Model(&Quota{}).Where("status = ?", QuotaSold).Count(&sold).Error)
	assert.Zero(t, sold)

	stored, err := NewRaffleDAO(db).FindByID(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.TotalParticipants)
	assertInventoryConsistent(t, db, raffle.ID)
}

func TestQuotaDAO_SellingEveryQuotaCompletesRaffle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	buyer := createTestUser(t, db, "a@example.com")
	raffle := createTestRaffle(t, db, 5, "3")

	reservation, err := quotaDAO.Reserve(ctx, newClaim(raffle.ID, buyer.ID, 5))
	require.NoError(t, err)

	updated, err := quotaDAO.ConfirmSale(ctx, Sale{
		RaffleID:      raffle.ID,
		BuyerID:       buyer.ID,
		Numbers:       reservation.Numbers,
		Amount:        reservation.Amount,
		ReservationID: reservation.ID,
		At:            time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, RaffleStatusCompleted, updated.Status)
	assert.False(t, updated.IsActive)

	stored, err := NewRaffleDAO(db).FindByID(ctx, raffle.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.StatusHistory)
	assert.Equal(t, RaffleStatusCompleted, stored.StatusHistory[len(stored.StatusHistory)-1].Status)
}

func TestQuotaDAO_SwapOwner(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	quotaDAO := NewQuotaDAO(db, aggregateRules{})

	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	c := createTestUser(t, db, "c@example.com")
	raffle := createTestRaffle(t, db, 10, "1")

	reservation, err := quotaDAO.Reserve(ctx, newClaim(raffle.ID, a.ID, 1))
	require.NoError(t, err)
	number := reservation.Numbers[0]

	// Reserved but not sold yet.
	_, err = quotaDAO.SwapOwner(ctx, Swap{RaffleID: raffle.ID, Number: number, FromUserID: a.ID, ToUserID: b.ID})
	assert.ErrorIs(t, err, ErrOwnershipMismatch)

	_, err = quotaDAO.ConfirmSale(ctx, Sale{
		RaffleID:      raffle.ID,
		BuyerID:       a.ID,
		Numbers:       reservation.Numbers,
		Amount:        reservation.Amount,
		ReservationID: reservation.ID,
		At:            time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = quotaDAO.SwapOwner(ctx, Swap{RaffleID: raffle.ID, Number: number, FromUserID: c.ID, ToUserID: b.ID})
	assert.ErrorIs(t, err, ErrOwnershipMismatch)

	q := findQuota(t, db, raffle.ID, number)
	assert.Equal(t, a.ID, *q.OwnerID)

	_, err = quotaDAO.SwapOwner(ctx, Swap{RaffleID: raffle.ID, Number: number, FromUserID: a.ID, ToUserID: 9999})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = quotaDAO.SwapOwner(ctx, Swap{RaffleID: raffle.ID, Number: "99", FromUserID: a.ID, ToUserID: b.ID})
	assert.ErrorIs(t, err, ErrQuotaNotFound)

	swapped, err := quotaDAO.SwapOwner(ctx, Swap{RaffleID: raffle.ID, Number: number, FromUserID: a.ID, ToUserID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, QuotaSold, swapped.Status)
	assert.Equal(t, b.ID, *swapped.OwnerID)
	assertInventoryConsistent(t, db, raffle.ID)
}
