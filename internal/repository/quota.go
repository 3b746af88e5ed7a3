package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository/dao"
)

var (
	ErrRaffleNotOpen         = dao.ErrRaffleNotOpen
	ErrQuotaNotFound         = dao.ErrQuotaNotFound
	ErrReservationNotFound   = dao.ErrReservationNotFound
	ErrInsufficientInventory = dao.ErrInsufficientInventory
	ErrOwnershipMismatch     = dao.ErrOwnershipMismatch
	ErrPersistenceTimeout    = dao.ErrPersistenceTimeout
)

type QuotaDAO interface {
	Reserve(ctx context.Context, claim dao.Claim) (dao.Reservation, error)
	ConfirmSale(ctx context.Context, sale dao.Sale) (dao.Raffle, error)
	Release(ctx context.Context, rel dao.Release) (int, dao.Raffle, error)
	SwapOwner(ctx context.Context, swap dao.Swap) (dao.Quota, error)
	FindByRaffle(ctx context.Context, raffleID uint, status string, limit, offset int) ([]dao.Quota, int64, error)
	FindSoldByOwner(ctx context.Context, ownerID uint) ([]dao.OwnedQuota, error)
}

type QuotaRepository struct {
	dao QuotaDAO
}

func NewQuotaRepository(dao QuotaDAO) *QuotaRepository {
	return &QuotaRepository{
		dao: dao,
	}
}

func (r *QuotaRepository) Reserve(ctx context.Context, reservationID string, raffleID, buyerID uint, quantity int, at, expiresAt time.Time) (domain.Reservation, error) {
	reserved, err := r.dao.Reserve(ctx, dao.Claim{
		ReservationID: reservationID,
		RaffleID:      raffleID,
		BuyerID:       buyerID,
		Quantity:      quantity,
		At:            at,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("r.dao.Reserve -> %w", err)
	}

	return ReservationDaoToDomain(reserved), nil
}

func (r *QuotaRepository) ConfirmSale(ctx context.Context, raffleID, buyerID uint, numbers []string, amount decimal.Decimal, reservationID string, at time.Time) (domain.Raffle, error) {
	updated, err := r.dao.ConfirmSale(ctx, dao.Sale{
		RaffleID:      raffleID,
		BuyerID:       buyerID,
		Numbers:       numbers,
		Amount:        amount,
		ReservationID: reservationID,
		At:            at,
	})
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.ConfirmSale -> %w", err)
	}

	return RaffleDaoToDomain(updated), nil
}

func (r *QuotaRepository) Release(ctx context.Context, raffleID uint, numbers []string, reservationID string, at time.Time) (int, domain.Raffle, error) {
	released, updated, err := r.dao.Release(ctx, dao.Release{
		RaffleID:      raffleID,
		Numbers:       numbers,
		ReservationID: reservationID,
		At:            at,
	})
	if err != nil {
		return 0, domain.Raffle{}, fmt.Errorf("r.dao.Release -> %w", err)
	}

	return released, RaffleDaoToDomain(updated), nil
}

func (r *QuotaRepository) SwapOwner(ctx context.Context, raffleID uint, number string, fromUserID, toUserID uint) (domain.Quota, error) {
	swapped, err := r.dao.SwapOwner(ctx, dao.Swap{
		RaffleID:   raffleID,
		Number:     number,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
	})
	if err != nil {
		return domain.Quota{}, fmt.Errorf("r.dao.SwapOwner -> %w", err)
	}

	return r.daoToDomain(swapped), nil
}

func (r *QuotaRepository) FindByRaffle(ctx context.Context, raffleID uint, status domain.QuotaStatus, limit, offset int) ([]domain.Quota, int64, error) {
	found, total, err := r.dao.FindByRaffle(ctx, raffleID, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.FindByRaffle -> %w", err)
	}

	quotas := make([]domain.Quota, len(found))
	for i, q := range found {
		quotas[i] = r.daoToDomain(q)
	}

	return quotas, total, nil
}

// FindSoldByOwner groups the sold numbers of a user per raffle, keeping raffle order.
func (r *QuotaRepository) FindSoldByOwner(ctx context.Context, ownerID uint) ([]domain.RaffleNumbers, error) {
	owned, err := r.dao.FindSoldByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindSoldByOwner -> %w", err)
	}

	var grouped []domain.RaffleNumbers
	for _, o := range owned {
		if len(grouped) == 0 || grouped[len(grouped)-1].RaffleID != o.RaffleID {
			grouped = append(grouped, domain.RaffleNumbers{
				RaffleID:    o.RaffleID,
				RaffleCode:  domain.FormatSequentialCode(domain.RaffleCodePrefix, o.SequentialID),
				RaffleTitle: o.Title,
			})
		}
		last := &grouped[len(grouped)-1]
		last.Numbers = append(last.Numbers, o.Number)
	}

	return grouped, nil
}

func (r *QuotaRepository) daoToDomain(q dao.Quota) domain.Quota {
	return domain.Quota{
		ID:            q.ID,
		RaffleID:      q.RaffleID,
		Number:        q.Number,
		Status:        domain.QuotaStatus(q.Status),
		OwnerID:       q.OwnerID,
		ReservationID: q.ReservationID,
		ReservedAt:    q.ReservedAt,
		SoldAt:        q.SoldAt,
	}
}
