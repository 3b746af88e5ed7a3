package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/repository"
)

var (
	ErrUserEmailExists = repository.ErrUserEmailExists
	ErrWrongPassword   = errors.New("wrong password")
	ErrUserBlocked     = errors.New("user is blocked")
)

type AuthUserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
}

type AuthService struct {
	repo        AuthUserRepository
	adminEmails map[string]struct{}
}

// NewAuthService promotes users whose email is listed in adminEmails.
func NewAuthService(repo AuthUserRepository, adminEmails []string) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &AuthService{
		repo:        repo,
		adminEmails: admins,
	}
}

// Register stores a new buyer with a hashed password. The sequential id and lead id are
// assigned by storage.
func (s *AuthService) Register(ctx context.Context, user domain.User) (domain.User, error) {
	hash, err := hashPassword(user.Password)
	if err != nil {
		return domain.User{}, err
	}
	user.Password = hash
	user.Email = normalizeEmail(user.Email)
	user.IsAdmin = s.isAdminEmail(user.Email)
	user.Status = domain.UserStatusActive

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, ErrUserNotFound
		}

		return domain.User{}, fmt.Errorf("s.repo.FindByEmail -> %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.User{}, ErrWrongPassword
	}

	if user.Status == domain.UserStatusBlocked {
		return domain.User{}, ErrUserBlocked
	}

	// Accounts listed after they registered are promoted on their next login.
	if !user.IsAdmin && s.isAdminEmail(user.Email) {
		if err = s.repo.SetAdmin(ctx, user.ID, true); err != nil {
			return domain.User{}, fmt.Errorf("s.repo.SetAdmin -> %w", err)
		}
		user.IsAdmin = true
	}

	return user, nil
}

func (s *AuthService) isAdminEmail(email string) bool {
	_, ok := s.adminEmails[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}

	return string(hash), nil
}
