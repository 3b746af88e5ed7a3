package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository"
)

const MaxTotalQuotas = 100000

var (
	ErrRaffleNotFound          = repository.ErrRaffleNotFound
	ErrStatusConflict          = repository.ErrStatusConflict
	ErrInvalidStatusTransition = domain.ErrInvalidStatusTransition
	ErrInvalidInput            = errors.New("invalid input")
)

var minPrice = decimal.RequireFromString("0.01")

type RaffleRepository interface {
	Create(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error)
	FindByID(ctx context.Context, id uint) (domain.Raffle, error)
	FindAll(ctx context.Context, publicOnly, includeDeleted bool, limit, offset int) ([]domain.Raffle, int64, error)
	UpdateDetails(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error)
	SaveStatus(ctx context.Context, raffle domain.Raffle, from domain.RaffleStatus) error
	CountQuotasByStatus(ctx context.Context, raffleID uint) (map[domain.QuotaStatus]int, error)
}

type PendingReservationCounter interface {
	CountPending(ctx context.Context, raffleID uint) (int, error)
}

// RaffleUpdate carries the descriptive fields an admin may change. Nil fields are kept.
type RaffleUpdate struct {
	Title       *string
	Description *string
	ImageURL    *string
	QuickSelect []int
}

type RaffleService struct {
	repo    RaffleRepository
	pending PendingReservationCounter
	now     func() time.Time
}

func NewRaffleService(repo RaffleRepository, pending PendingReservationCounter) *RaffleService {
	return &RaffleService{
		repo:    repo,
		pending: pending,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a raffle in draft together with all of its quotas, and activates it right
// away when activate is set.
func (s *RaffleService) Create(ctx context.Context, raffle domain.Raffle, actor uint, activate bool) (domain.Raffle, error) {
	raffle.Title = strings.TrimSpace(raffle.Title)
	if err := validateRaffle(raffle); err != nil {
		return domain.Raffle{}, err
	}

	now := s.now()
	raffle.PublicID = uuid.NewString()
	raffle.Status = domain.RaffleDraft
	raffle.IsActive = false
	raffle.AvailableQuotas = raffle.TotalQuotas
	raffle.TotalParticipants = 0
	raffle.TotalRevenue = decimal.Zero
	raffle.StatusHistory = []domain.StatusChange{{Status: domain.RaffleDraft, ChangedAt: now, ChangedBy: actor}}
	if activate {
		if err := raffle.Activate(actor, now); err != nil {
			return domain.Raffle{}, err
		}
	}

	created, err := s.repo.Create(ctx, raffle)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// Get hides soft deleted raffles unless admin is set.
func (s *RaffleService) Get(ctx context.Context, id uint, admin bool) (domain.Raffle, error) {
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if raffle.IsDeleted && !admin {
		return domain.Raffle{}, ErrRaffleNotFound
	}
	if !admin {
		raffle.StatusHistory = nil
	}

	return raffle, nil
}

// List returns open raffles to buyers and every raffle to admins.
func (s *RaffleService) List(ctx context.Context, admin, includeDeleted bool, limit, offset int) ([]domain.Raffle, int64, error) {
	limit, offset = clampPage(limit, offset)

	raffles, total, err := s.repo.FindAll(ctx, !admin, admin && includeDeleted, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return raffles, total, nil
}

func (s *RaffleService) UpdateDetails(ctx context.Context, id uint, update RaffleUpdate) (domain.Raffle, error) {
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if raffle.IsDeleted {
		return domain.Raffle{}, ErrRaffleNotFound
	}

	if update.Title != nil {
		raffle.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		raffle.Description = *update.Description
	}
	if update.ImageURL != nil {
		raffle.ImageURL = *update.ImageURL
	}
	if update.QuickSelect != nil {
		raffle.QuickSelect = update.QuickSelect
	}
	if err = validateRaffle(raffle); err != nil {
		return domain.Raffle{}, err
	}

	updated, err := s.repo.UpdateDetails(ctx, raffle)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.UpdateDetails -> %w", err)
	}

	return updated, nil
}

// Toggle flips an open raffle closed and a closed or draft raffle open.
func (s *RaffleService) Toggle(ctx context.Context, id, actor uint) (domain.Raffle, error) {
	return s.changeStatus(ctx, id, func(r *domain.Raffle, at time.Time) error {
		return r.ToggleActive(actor, at)
	})
}

// Delete soft deletes the raffle. Quotas and owners are kept.
func (s *RaffleService) Delete(ctx context.Context, id, actor uint) error {
	_, err := s.changeStatus(ctx, id, func(r *domain.Raffle, at time.Time) error {
		return r.SoftDelete(actor, at)
	})

	return err
}

func (s *RaffleService) changeStatus(ctx context.Context, id uint, change func(r *domain.Raffle, at time.Time) error) (domain.Raffle, error) {
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if raffle.IsDeleted {
		return domain.Raffle{}, ErrRaffleNotFound
	}

	from := raffle.Status
	if err = change(&raffle, s.now()); err != nil {
		return domain.Raffle{}, err
	}

	if err = s.repo.SaveStatus(ctx, raffle, from); err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.SaveStatus -> %w", err)
	}

	return raffle, nil
}

func (s *RaffleService) Stats(ctx context.Context, id uint) (domain.RaffleStats, error) {
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	counts, err := s.repo.CountQuotasByStatus(ctx, id)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("s.repo.CountQuotasByStatus -> %w", err)
	}

	pending, err := s.pending.CountPending(ctx, id)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("s.pending.CountPending -> %w", err)
	}

	return domain.RaffleStats{
		RaffleID:          raffle.ID,
		Code:              raffle.Code,
		TotalQuotas:       raffle.TotalQuotas,
		AvailableQuotas:   raffle.AvailableQuotas,
		ReservedQuotas:    counts[domain.QuotaReserved],
		SoldQuotas:        counts[domain.QuotaSold],
		TotalParticipants: raffle.TotalParticipants,
		TotalRevenue:      raffle.TotalRevenue,
		PendingOrders:     pending,
	}, nil
}

func validateRaffle(raffle domain.Raffle) error {
	err := validation.ValidateStruct(&raffle,
		validation.Field(&raffle.Title, validation.Required, validation.Length(3, 120)),
		validation.Field(&raffle.TotalQuotas, validation.Required, validation.Min(1), validation.Max(MaxTotalQuotas)),
		validation.Field(&raffle.Price, validation.By(func(value interface{}) error {
			price, _ := value.(decimal.Decimal)
			if price.LessThan(minPrice) {
				return errors.New("must be at least 0.01")
			}
			return nil
		})),
		validation.Field(&raffle.QuickSelect, validation.By(func(value interface{}) error {
			sizes, _ := value.([]int)
			for _, size := range sizes {
				if size < 1 || size > raffle.TotalQuotas {
					return fmt.Errorf("package %d must be between 1 and %d", size, raffle.TotalQuotas)
				}
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return nil
}
