package service

import (
	"context"
	"fmt"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository"
)

var (
	ErrUserNotFound = repository.ErrUserNotFound
)

const maxPageSize = 100

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.User, int64, error)
}

type OwnedQuotaRepository interface {
	FindSoldByOwner(ctx context.Context, ownerID uint) ([]domain.RaffleNumbers, error)
}

type UserService struct {
	repo   UserRepository
	quotas OwnedQuotaRepository
}

func NewUserService(repo UserRepository, quotas OwnedQuotaRepository) *UserService {
	return &UserService{
		repo:   repo,
		quotas: quotas,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

// MyNumbers lists the sold numbers of a user grouped per raffle.
func (s *UserService) MyNumbers(ctx context.Context, userID uint) ([]domain.RaffleNumbers, error) {
	numbers, err := s.quotas.FindSoldByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("s.quotas.FindSoldByOwner -> %w", err)
	}
	if numbers == nil {
		numbers = []domain.RaffleNumbers{}
	}

	return numbers, nil
}

func (s *UserService) ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.User, int64, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	leads, total, err := s.repo.FindLeads(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("s.repo.FindLeads -> %w", err)
	}

	return leads, total, nil
}

// GetLead returns a user with its participation records.
func (s *UserService) GetLead(ctx context.Context, id uint) (domain.User, error) {
	return s.GetUser(ctx, id)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
