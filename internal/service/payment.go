package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rifaonline/rifa-api/internal/domain"
)

var (
	ErrReservationExpired    = errors.New("reservation expired")
	ErrReservationReleased   = errors.New("reservation was released")
	ErrPaymentAmountMismatch = errors.New("paid amount is lower than the order amount")
	ErrPaymentUnavailable    = errors.New("payment provider unavailable")
)

// PaymentGateway produces something the buyer can pay for a reservation.
type PaymentGateway interface {
	CreatePaymentRequest(ctx context.Context, amount decimal.Decimal, reference string) (domain.PaymentRequest, error)
}

type ReservationRepository interface {
	FindByReference(ctx context.Context, ref string) (domain.Reservation, error)
	SetPaymentRef(ctx context.Context, id, paymentRef string) error
	FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

type QuotaEngine interface {
	Reserve(ctx context.Context, raffleID, buyerID uint, quantity int) (domain.Reservation, error)
	ConfirmSale(ctx context.Context, raffleID, buyerID uint, numbers []string, amount decimal.Decimal, reservationID string) (domain.Raffle, error)
	Release(ctx context.Context, raffleID uint, numbers []string, reservationID string) (int, error)
}

type PaymentService struct {
	engine       QuotaEngine
	reservations ReservationRepository
	gateway      PaymentGateway
	now          func() time.Time
}

func NewPaymentService(engine QuotaEngine, reservations ReservationRepository, gateway PaymentGateway) *PaymentService {
	return &PaymentService{
		engine:       engine,
		reservations: reservations,
		gateway:      gateway,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder reserves the quotas and asks the gateway for a payment request. When the
// gateway fails the reservation is released before the error is returned.
func (s *PaymentService) CreateOrder(ctx context.Context, raffleID, buyerID uint, quantity int) (domain.Order, error) {
	reservation, err := s.engine.Reserve(ctx, raffleID, buyerID, quantity)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.engine.Reserve -> %w", err)
	}

	payment, err := s.gateway.CreatePaymentRequest(ctx, reservation.Amount, reservation.ID)
	if err != nil {
		s.compensate(ctx, reservation)
		return domain.Order{}, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	payment.ExpiresAt = reservation.ExpiresAt

	if payment.Reference != "" && payment.Reference != reservation.ID {
		if err = s.reservations.SetPaymentRef(ctx, reservation.ID, payment.Reference); err != nil {
			s.compensate(ctx, reservation)
			return domain.Order{}, fmt.Errorf("s.reservations.SetPaymentRef -> %w", err)
		}
		reservation.PaymentRef = payment.Reference
	}

	return domain.Order{
		Reservation: reservation,
		Payment:     payment,
	}, nil
}

// OnPaymentConfirmed sells the quotas of the reservation. A repeated confirmation of the
// same reference returns the reservation unchanged.
func (s *PaymentService) OnPaymentConfirmed(ctx context.Context, ref string, amount decimal.Decimal) (domain.Reservation, error) {
	reservation, err := s.reservations.FindByReference(ctx, ref)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("s.reservations.FindByReference -> %w", err)
	}

	switch reservation.Status {
	case domain.ReservationConfirmed:
		return reservation, nil
	case domain.ReservationReleased:
		return reservation, ErrReservationReleased
	}

	if reservation.Expired(s.now()) {
		if _, err = s.engine.Release(ctx, reservation.RaffleID, nil, reservation.ID); err != nil {
			return domain.Reservation{}, fmt.Errorf("s.engine.Release -> %w", err)
		}
		return reservation, ErrReservationExpired
	}

	if amount.LessThan(reservation.Amount) {
		return reservation, ErrPaymentAmountMismatch
	}

	_, err = s.engine.ConfirmSale(ctx, reservation.RaffleID, reservation.BuyerID, reservation.Numbers, reservation.Amount, reservation.ID)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return s.settled(ctx, ref, err)
		}
		return domain.Reservation{}, fmt.Errorf("s.engine.ConfirmSale -> %w", err)
	}

	now := s.now()
	reservation.Status = domain.ReservationConfirmed
	reservation.ConfirmedAt = &now

	return reservation, nil
}

// OnPaymentExpiredOrFailed releases a pending reservation. Settled reservations are left
// as they are.
func (s *PaymentService) OnPaymentExpiredOrFailed(ctx context.Context, ref string) error {
	reservation, err := s.reservations.FindByReference(ctx, ref)
	if err != nil {
		return fmt.Errorf("s.reservations.FindByReference -> %w", err)
	}
	if reservation.Status != domain.ReservationPending {
		return nil
	}

	if _, err = s.engine.Release(ctx, reservation.RaffleID, nil, reservation.ID); err != nil {
		return fmt.Errorf("s.engine.Release -> %w", err)
	}

	return nil
}

// GetOrder lets the buyer, or an admin, follow a reservation.
func (s *PaymentService) GetOrder(ctx context.Context, ref string, requesterID uint, admin bool) (domain.Reservation, error) {
	reservation, err := s.reservations.FindByReference(ctx, ref)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("s.reservations.FindByReference -> %w", err)
	}
	if !admin && !reservation.IsOwnedBy(requesterID) {
		return domain.Reservation{}, ErrReservationNotFound
	}

	return reservation, nil
}

// ExpireStale releases up to limit reservations whose window has closed and reports how
// many were handled. A failing reservation does not stop the batch.
func (s *PaymentService) ExpireStale(ctx context.Context, limit int) (int, error) {
	expired, err := s.reservations.FindExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("s.reservations.FindExpired -> %w", err)
	}

	released := 0
	for _, r := range expired {
		if err = ctx.Err(); err != nil {
			return released, err
		}
		if err = s.OnPaymentExpiredOrFailed(ctx, r.ID); err != nil {
			zap.L().Error("failed to release expired reservation",
				zap.String("reservation", r.ID), zap.Uint("raffle_id", r.RaffleID), zap.Error(err))
			continue
		}
		released++
	}

	return released, nil
}

// settled reloads a reservation another confirmation or release got to first.
func (s *PaymentService) settled(ctx context.Context, ref string, cause error) (domain.Reservation, error) {
	reservation, err := s.reservations.FindByReference(ctx, ref)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("s.reservations.FindByReference -> %w", err)
	}

	switch reservation.Status {
	case domain.ReservationConfirmed:
		return reservation, nil
	case domain.ReservationReleased:
		return reservation, ErrReservationReleased
	default:
		return reservation, fmt.Errorf("s.engine.ConfirmSale -> %w", cause)
	}
}

func (s *PaymentService) compensate(ctx context.Context, reservation domain.Reservation) {
	if _, err := s.engine.Release(context.WithoutCancel(ctx), reservation.RaffleID, nil, reservation.ID); err != nil {
		zap.L().Error("failed to release reservation after payment error",
			zap.String("reservation", reservation.ID), zap.Error(err))
	}
}
