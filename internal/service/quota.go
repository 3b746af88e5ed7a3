package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository"
)

var (
	ErrRaffleNotOpen         = repository.ErrRaffleNotOpen
	ErrQuotaNotFound         = repository.ErrQuotaNotFound
	ErrReservationNotFound   = repository.ErrReservationNotFound
	ErrInsufficientInventory = repository.ErrInsufficientInventory
	ErrOwnershipMismatch     = repository.ErrOwnershipMismatch
	ErrPersistenceTimeout    = repository.ErrPersistenceTimeout
	ErrInvalidQuotaNumber    = domain.ErrInvalidQuotaNumber
	ErrInvalidQuantity       = errors.New("invalid quota quantity")
)

type QuotaRepository interface {
	Reserve(ctx context.Context, reservationID string, raffleID, buyerID uint, quantity int, at, expiresAt time.Time) (domain.Reservation, error)
	ConfirmSale(ctx context.Context, raffleID, buyerID uint, numbers []string, amount decimal.Decimal, reservationID string, at time.Time) (domain.Raffle, error)
	Release(ctx context.Context, raffleID uint, numbers []string, reservationID string, at time.Time) (int, domain.Raffle, error)
	SwapOwner(ctx context.Context, raffleID uint, number string, fromUserID, toUserID uint) (domain.Quota, error)
	FindByRaffle(ctx context.Context, raffleID uint, status domain.QuotaStatus, limit, offset int) ([]domain.Quota, int64, error)
}

type RaffleFinder interface {
	FindByID(ctx context.Context, id uint) (domain.Raffle, error)
}

// Publisher receives an event after every committed quota change.
type Publisher interface {
	Publish(event domain.RaffleEvent)
}

type QuotaService struct {
	quotas      QuotaRepository
	raffles     RaffleFinder
	publisher   Publisher
	ttl         time.Duration
	maxPerOrder int
	now         func() time.Time
}

func NewQuotaService(quotas QuotaRepository, raffles RaffleFinder, publisher Publisher, ttl time.Duration, maxPerOrder int) *QuotaService {
	return &QuotaService{
		quotas:      quotas,
		raffles:     raffles,
		publisher:   publisher,
		ttl:         ttl,
		maxPerOrder: maxPerOrder,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Reserve holds quantity available quotas of the raffle for the buyer until the
// reservation window closes. It never reserves fewer than asked.
func (s *QuotaService) Reserve(ctx context.Context, raffleID, buyerID uint, quantity int) (domain.Reservation, error) {
	if quantity < 1 || (s.maxPerOrder > 0 && quantity > s.maxPerOrder) {
		return domain.Reservation{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	now := s.now()
	reservation, err := s.quotas.Reserve(ctx, uuid.NewString(), raffleID, buyerID, quantity, now, now.Add(s.ttl))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("s.quotas.Reserve -> %w", err)
	}

	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err == nil {
		s.publish(domain.EventQuotasReserved, raffle, reservation.Numbers)
	}

	return reservation, nil
}

// ConfirmSale sells numbers reserved by the buyer. reservationID may be empty when the
// caller holds the numbers only.
func (s *QuotaService) ConfirmSale(ctx context.Context, raffleID, buyerID uint, numbers []string, amount decimal.Decimal, reservationID string) (domain.Raffle, error) {
	normalized, err := s.normalize(ctx, raffleID, numbers)
	if err != nil {
		return domain.Raffle{}, err
	}
	if len(normalized) == 0 {
		return domain.Raffle{}, fmt.Errorf("%w: no numbers given", ErrInvalidQuotaNumber)
	}

	raffle, err := s.quotas.ConfirmSale(ctx, raffleID, buyerID, normalized, amount, reservationID, s.now())
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.quotas.ConfirmSale -> %w", err)
	}

	s.publish(domain.EventQuotasSold, raffle, normalized)

	return raffle, nil
}

// Release returns reserved quotas to the pool. Quotas that are not reserved are skipped,
// so calling it again is harmless.
func (s *QuotaService) Release(ctx context.Context, raffleID uint, numbers []string, reservationID string) (int, error) {
	normalized, err := s.normalize(ctx, raffleID, numbers)
	if err != nil {
		return 0, err
	}

	released, raffle, err := s.quotas.Release(ctx, raffleID, normalized, reservationID, s.now())
	if err != nil {
		return 0, fmt.Errorf("s.quotas.Release -> %w", err)
	}

	if released > 0 {
		s.publish(domain.EventQuotasReleased, raffle, normalized)
	}

	return released, nil
}

// SwapOwner moves a sold quota from one user to another.
func (s *QuotaService) SwapOwner(ctx context.Context, raffleID uint, number string, fromUserID, toUserID uint) (domain.Quota, error) {
	if fromUserID == toUserID {
		return domain.Quota{}, fmt.Errorf("%w: source and target user are the same", ErrInvalidInput)
	}

	normalized, err := s.normalize(ctx, raffleID, []string{number})
	if err != nil {
		return domain.Quota{}, err
	}

	quota, err := s.quotas.SwapOwner(ctx, raffleID, normalized[0], fromUserID, toUserID)
	if err != nil {
		return domain.Quota{}, fmt.Errorf("s.quotas.SwapOwner -> %w", err)
	}

	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err == nil {
		s.publish(domain.EventQuotaSwapped, raffle, []string{quota.Number})
	}

	return quota, nil
}

// MaxQuotaPageSize bounds one page of a quota listing.
const MaxQuotaPageSize = 1000

// QuotaPageLimit returns the page size a quota listing uses. Zero or an oversized request
// gets the largest page.
func QuotaPageLimit(limit int) int {
	if limit <= 0 || limit > MaxQuotaPageSize {
		return MaxQuotaPageSize
	}

	return limit
}

// ListQuotas shows the numbers of a visible raffle, optionally filtered by status.
func (s *QuotaService) ListQuotas(ctx context.Context, raffleID uint, status domain.QuotaStatus, limit, offset int) ([]domain.Quota, int64, error) {
	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err != nil {
		return nil, 0, fmt.Errorf("s.raffles.FindByID -> %w", err)
	}
	if raffle.IsDeleted {
		return nil, 0, ErrRaffleNotFound
	}

	switch status {
	case "", domain.QuotaAvailable, domain.QuotaReserved, domain.QuotaSold:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	limit = QuotaPageLimit(limit)
	if offset < 0 {
		offset = 0
	}

	quotas, total, err := s.quotas.FindByRaffle(ctx, raffleID, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("s.quotas.FindByRaffle -> %w", err)
	}

	return quotas, total, nil
}

func (s *QuotaService) normalize(ctx context.Context, raffleID uint, numbers []string) ([]string, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("s.raffles.FindByID -> %w", err)
	}

	normalized, err := domain.NormalizeQuotaNumbers(numbers, raffle.TotalQuotas)
	if err != nil {
		return nil, err
	}

	return normalized, nil
}

func (s *QuotaService) publish(eventType domain.RaffleEventType, raffle domain.Raffle, numbers []string) {
	if s.publisher == nil {
		return
	}

	s.publisher.Publish(domain.RaffleEvent{
		Type:            eventType,
		RaffleID:        raffle.ID,
		AvailableQuotas: raffle.AvailableQuotas,
		Numbers:         numbers,
		At:              s.now(),
	})
}
