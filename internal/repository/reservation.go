package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository/dao"
)

type ReservationDAO interface {
	FindByReference(ctx context.Context, ref string) (dao.Reservation, error)
	SetPaymentRef(ctx context.Context, id, paymentRef string) error
	FindExpired(ctx context.Context, now time.Time, limit int) ([]dao.Reservation, error)
	CountPending(ctx context.Context, raffleID uint) (int, error)
}

type ReservationRepository struct {
	dao ReservationDAO
}

func NewReservationRepository(dao ReservationDAO) *ReservationRepository {
	return &ReservationRepository{
		dao: dao,
	}
}

func (r *ReservationRepository) FindByReference(ctx context.Context, ref string) (domain.Reservation, error) {
	found, err := r.dao.FindByReference(ctx, ref)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("r.dao.FindByReference -> %w", err)
	}

	return ReservationDaoToDomain(found), nil
}

func (r *ReservationRepository) SetPaymentRef(ctx context.Context, id, paymentRef string) error {
	if err := r.dao.SetPaymentRef(ctx, id, paymentRef); err != nil {
		return fmt.Errorf("r.dao.SetPaymentRef -> %w", err)
	}

	return nil
}

func (r *ReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	found, err := r.dao.FindExpired(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindExpired -> %w", err)
	}

	reservations := make([]domain.Reservation, len(found))
	for i, f := range found {
		reservations[i] = ReservationDaoToDomain(f)
	}

	return reservations, nil
}

func (r *ReservationRepository) CountPending(ctx context.Context, raffleID uint) (int, error) {
	count, err := r.dao.CountPending(ctx, raffleID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountPending -> %w", err)
	}

	return count, nil
}

func ReservationDaoToDomain(r dao.Reservation) domain.Reservation {
	return domain.Reservation{
		ID:          r.ID,
		RaffleID:    r.RaffleID,
		BuyerID:     r.BuyerID,
		Numbers:     r.Numbers,
		Quantity:    r.Quantity,
		Amount:      r.Amount,
		Status:      domain.ReservationStatus(r.Status),
		PaymentRef:  r.PaymentRef,
		ExpiresAt:   r.ExpiresAt,
		ConfirmedAt: r.ConfirmedAt,
		ReleasedAt:  r.ReleasedAt,
		CreatedAt:   r.CreatedAt,
	}
}
