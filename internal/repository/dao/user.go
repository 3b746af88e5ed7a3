package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID uint `gorm:"primaryKey"`

	LeadID       string `gorm:"type:varchar(36);uniqueIndex;not null"`
	SequentialID int64  `gorm:"uniqueIndex;not null"`

	Email    string `gorm:"unique;not null"`
	Password string `gorm:"not null"`

	Name    string `gorm:"not null"`
	Phone   string
	IsAdmin bool   `gorm:"not null;default:false"`
	Status  string `gorm:"type:varchar(16);not null;default:active"`

	QuotasPurchased int             `gorm:"not null;default:0"`
	TotalSpent      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Participations  []Participation `gorm:"foreignKey:UserID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Participation accumulates what one user bought in one raffle.
type Participation struct {
	ID                  uint            `gorm:"primaryKey"`
	UserID              uint            `gorm:"not null;uniqueIndex:idx_participation_user_raffle,priority:1"`
	RaffleID            uint            `gorm:"not null;uniqueIndex:idx_participation_user_raffle,priority:2;index"`
	QuotasPurchased     int             `gorm:"not null;default:0"`
	AmountSpent         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	LastParticipationAt time.Time       `gorm:"not null"`
}

func (Participation) TableName() string {
	return "user_participations"
}

type LeadFilter struct {
	Search string
	Limit  int
	Offset int
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{
		db: db,
	}
}

// Insert assigns the lead id and the next sequential id in the same transaction as the row.
func (d *UserDAO) Insert(ctx context.Context, user User) (User, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, SequenceUsers)
		if err != nil {
			return fmt.Errorf("nextSequence -> %w", err)
		}

		user.SequentialID = seq
		if user.LeadID == "" {
			user.LeadID = uuid.NewString()
		}

		return tx.Omit("Participations").Create(&user).Error
	})
	if err != nil {
		if isUniqueViolation(err, "email") {
			return User{}, ErrUserEmailExists
		}

		return User{}, translateErr(err)
	}

	return user, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id uint) (User, error) {
	var user User

	result := d.db.WithContext(ctx).
		Preload("Participations", func(db *gorm.DB) *gorm.DB {
			return db.Order("last_participation_at DESC")
		}).
		First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, translateErr(result.Error)
	}

	return user, nil
}

func (d *UserDAO) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User

	result := d.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, translateErr(result.Error)
	}

	return user, nil
}

func (d *UserDAO) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	result := d.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if result.Error != nil {
		return translateErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// FindLeads lists users newest first, optionally filtered by name or email.
func (d *UserDAO) FindLeads(ctx context.Context, filter LeadFilter) ([]User, int64, error) {
	query := d.db.WithContext(ctx).Model(&User{})
	if filter.Search != "" {
		like := "%" + likeEscaper.Replace(filter.Search) + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateErr(err)
	}

	var users []User
	err := query.Order("sequential_id DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&users).Error
	if err != nil {
		return nil, 0, translateErr(err)
	}

	return users, total, nil
}
