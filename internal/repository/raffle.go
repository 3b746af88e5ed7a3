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
	ErrRaffleNotFound = dao.ErrRaffleNotFound
	ErrStatusConflict = dao.ErrStatusConflict
)

type RaffleDAO interface {
	Insert(ctx context.Context, raffle dao.Raffle, numbers []string) (dao.Raffle, error)
	FindByID(ctx context.Context, id uint) (dao.Raffle, error)
	FindAll(ctx context.Context, filter dao.RaffleFilter) ([]dao.Raffle, int64, error)
	UpdateDetails(ctx context.Context, raffle dao.Raffle) (dao.Raffle, error)
	UpdateStatus(ctx context.Context, update dao.StatusUpdate) error
	CountQuotasByStatus(ctx context.Context, raffleID uint) (map[string]int, error)
}

type RaffleRepository struct {
	dao RaffleDAO
}

func NewRaffleRepository(dao RaffleDAO) *RaffleRepository {
	return &RaffleRepository{
		dao: dao,
	}
}

// Create stores the raffle and its TotalQuotas quotas in one unit.
func (r *RaffleRepository) Create(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(raffle), domain.GenerateQuotaNumbers(raffle.TotalQuotas))
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return RaffleDaoToDomain(created), nil
}

func (r *RaffleRepository) FindByID(ctx context.Context, id uint) (domain.Raffle, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return RaffleDaoToDomain(found), nil
}

func (r *RaffleRepository) FindAll(ctx context.Context, publicOnly, includeDeleted bool, limit, offset int) ([]domain.Raffle, int64, error) {
	found, total, err := r.dao.FindAll(ctx, dao.RaffleFilter{
		PublicOnly:     publicOnly,
		IncludeDeleted: includeDeleted,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	raffles := make([]domain.Raffle, len(found))
	for i, f := range found {
		raffles[i] = RaffleDaoToDomain(f)
	}

	return raffles, total, nil
}

func (r *RaffleRepository) UpdateDetails(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error) {
	updated, err := r.dao.UpdateDetails(ctx, r.domainToDao(raffle))
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.UpdateDetails -> %w", err)
	}

	return RaffleDaoToDomain(updated), nil
}

// SaveStatus persists the last status change recorded on the raffle, provided the stored
// status is still `from`.
func (r *RaffleRepository) SaveStatus(ctx context.Context, raffle domain.Raffle, from domain.RaffleStatus) error {
	if len(raffle.StatusHistory) == 0 {
		return fmt.Errorf("raffle %d has no status change to save", raffle.ID)
	}
	change := raffle.StatusHistory[len(raffle.StatusHistory)-1]

	err := r.dao.UpdateStatus(ctx, dao.StatusUpdate{
		RaffleID:  raffle.ID,
		From:      string(from),
		To:        string(raffle.Status),
		IsActive:  raffle.IsActive,
		IsDeleted: raffle.IsDeleted,
		ChangedAt: change.ChangedAt,
		ChangedBy: change.ChangedBy,
	})
	if err != nil {
		return fmt.Errorf("r.dao.UpdateStatus -> %w", err)
	}

	return nil
}

func (r *RaffleRepository) CountQuotasByStatus(ctx context.Context, raffleID uint) (map[domain.QuotaStatus]int, error) {
	counts, err := r.dao.CountQuotasByStatus(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.CountQuotasByStatus -> %w", err)
	}

	result := make(map[domain.QuotaStatus]int, len(counts))
	for status, n := range counts {
		result[domain.QuotaStatus(status)] = n
	}

	return result, nil
}

func (r *RaffleRepository) domainToDao(raffle domain.Raffle) dao.Raffle {
	history := make([]dao.RaffleStatusChange, len(raffle.StatusHistory))
	for i, h := range raffle.StatusHistory {
		history[i] = dao.RaffleStatusChange{
			Status:    string(h.Status),
			ChangedAt: h.ChangedAt,
			ChangedBy: h.ChangedBy,
		}
	}

	return dao.Raffle{
		ID:                raffle.ID,
		PublicID:          raffle.PublicID,
		SequentialID:      raffle.SequentialID,
		Title:             raffle.Title,
		Description:       raffle.Description,
		Price:             raffle.Price,
		ImageURL:          raffle.ImageURL,
		QuickSelect:       raffle.QuickSelect,
		TotalQuotas:       raffle.TotalQuotas,
		AvailableQuotas:   raffle.AvailableQuotas,
		Status:            string(raffle.Status),
		IsActive:          raffle.IsActive,
		IsDeleted:         raffle.IsDeleted,
		TotalParticipants: raffle.TotalParticipants,
		TotalRevenue:      raffle.TotalRevenue,
		StatusHistory:     history,
	}
}

// RaffleRules lets the quota transactions apply the raffle aggregate to the row they lock.
type RaffleRules struct{}

func (RaffleRules) CanReserve(raffle dao.Raffle) bool {
	r := RaffleDaoToDomain(raffle)
	return r.CanReserve()
}

func (RaffleRules) OrderAmount(raffle dao.Raffle, quantity int) decimal.Decimal {
	r := RaffleDaoToDomain(raffle)
	return r.OrderAmount(quantity)
}

// Completes reports whether soldQuotas sells the raffle out and the raffle may move to
// completed from its current status.
func (RaffleRules) Completes(raffle dao.Raffle, soldQuotas int, at time.Time) bool {
	r := RaffleDaoToDomain(raffle)
	return r.IsSoldOut(soldQuotas) && r.Complete(0, at) == nil
}

// RaffleDaoToDomain maps a stored raffle, deriving its display code.
func RaffleDaoToDomain(raffle dao.Raffle) domain.Raffle {
	var history []domain.StatusChange
	for _, h := range raffle.StatusHistory {
		history = append(history, domain.StatusChange{
			Status:    domain.RaffleStatus(h.Status),
			ChangedAt: h.ChangedAt,
			ChangedBy: h.ChangedBy,
		})
	}

	return domain.Raffle{
		ID:                raffle.ID,
		PublicID:          raffle.PublicID,
		SequentialID:      raffle.SequentialID,
		Code:              domain.FormatSequentialCode(domain.RaffleCodePrefix, raffle.SequentialID),
		Title:             raffle.Title,
		Description:       raffle.Description,
		Price:             raffle.Price,
		TotalQuotas:       raffle.TotalQuotas,
		AvailableQuotas:   raffle.AvailableQuotas,
		IsActive:          raffle.IsActive,
		IsDeleted:         raffle.IsDeleted,
		Status:            domain.RaffleStatus(raffle.Status),
		ImageURL:          raffle.ImageURL,
		QuickSelect:       raffle.QuickSelect,
		TotalParticipants: raffle.TotalParticipants,
		TotalRevenue:      raffle.TotalRevenue,
		StatusHistory:     history,
		CreatedAt:         raffle.CreatedAt,
		UpdatedAt:         raffle.UpdatedAt,
	}
}
