package repository

import (
	"context"
	"fmt"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository/dao"
)

var (
	ErrUserEmailExists = dao.ErrUserEmailExists
	ErrUserNotFound    = dao.ErrUserNotFound
)

type UserDAO interface {
	Insert(ctx context.Context, user dao.User) (dao.User, error)
	FindByID(ctx context.Context, id uint) (dao.User, error)
	FindByEmail(ctx context.Context, email string) (dao.User, error)
	FindLeads(ctx context.Context, filter dao.LeadFilter) ([]dao.User, int64, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	status := user.Status
	if status == "" {
		status = domain.UserStatusActive
	}

	created, err := r.dao.Insert(ctx, dao.User{
		Email:    user.Email,
		Password: user.Password,
		Name:     user.Name,
		Phone:    user.Phone,
		IsAdmin:  user.IsAdmin,
		Status:   status,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	found, err := r.dao.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByEmail -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	if err := r.dao.SetAdmin(ctx, id, isAdmin); err != nil {
		return fmt.Errorf("r.dao.SetAdmin -> %w", err)
	}

	return nil
}

func (r *UserRepository) FindLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.User, int64, error) {
	found, total, err := r.dao.FindLeads(ctx, dao.LeadFilter{
		Search: filter.Search,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.FindLeads -> %w", err)
	}

	users := make([]domain.User, len(found))
	for i, u := range found {
		users[i] = r.daoToDomain(u)
	}

	return users, total, nil
}

func (r *UserRepository) daoToDomain(u dao.User) domain.User {
	var participations []domain.Participation
	for _, p := range u.Participations {
		participations = append(participations, domain.Participation{
			RaffleID:            p.RaffleID,
			QuotasPurchased:     p.QuotasPurchased,
			AmountSpent:         p.AmountSpent,
			LastParticipationAt: p.LastParticipationAt,
		})
	}

	return domain.User{
		ID:              u.ID,
		LeadID:          u.LeadID,
		SequentialID:    u.SequentialID,
		Code:            domain.FormatSequentialCode(domain.UserCodePrefix, u.SequentialID),
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		Password:        u.Password,
		IsAdmin:         u.IsAdmin,
		Status:          u.Status,
		QuotasPurchased: u.QuotasPurchased,
		TotalSpent:      u.TotalSpent,
		Participations:  participations,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
