package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const quotaBatchSize = 1000

type Raffle struct {
	ID           uint   `gorm:"primaryKey"`
	PublicID     string `gorm:"type:varchar(36);uniqueIndex;not null"`
	SequentialID int64  `gorm:"uniqueIndex;not null"`

	Title       string          `gorm:"not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ImageURL    string
	QuickSelect datatypes.JSONSlice[int]

	TotalQuotas     int    `gorm:"not null"`
	AvailableQuotas int    `gorm:"not null;check:chk_raffles_available,available_quotas >= 0"`
	Status          string `gorm:"type:varchar(16);not null;index"`
	IsActive        bool   `gorm:"not null;default:false"`
	IsDeleted       bool   `gorm:"not null;default:false;index"`

	TotalParticipants int                  `gorm:"not null;default:0"`
	TotalRevenue      decimal.Decimal      `gorm:"type:numeric(14,2);not null;default:0"`
	StatusHistory     []RaffleStatusChange `gorm:"foreignKey:RaffleID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RaffleStatusChange struct {
	ID        uint      `gorm:"primaryKey"`
	RaffleID  uint      `gorm:"not null;index"`
	Status    string    `gorm:"type:varchar(16);not null"`
	ChangedAt time.Time `gorm:"not null"`
	ChangedBy uint
}

type RaffleFilter struct {
	PublicOnly     bool
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// StatusUpdate moves a raffle from one status to another.
type StatusUpdate struct {
	RaffleID  uint
	From      string
	To        string
	IsActive  bool
	IsDeleted bool
	ChangedAt time.Time
	ChangedBy uint
}

type RaffleDAO struct {
	db *gorm.DB
}

func NewRaffleDAO(db *gorm.DB) *RaffleDAO {
	return &RaffleDAO{
		db: db,
	}
}

// Insert stores the raffle together with all of its quotas, numbered 1..TotalQuotas and
// padded to the width of TotalQuotas. Nothing is stored when any step fails.
func (d *RaffleDAO) Insert(ctx context.Context, raffle Raffle, numbers []string) (Raffle, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, SequenceRaffles)
		if err != nil {
			return fmt.Errorf("nextSequence -> %w", err)
		}

		raffle.SequentialID = seq
		raffle.AvailableQuotas = raffle.TotalQuotas
		if err = tx.Create(&raffle).Error; err != nil {
			return fmt.Errorf("tx.Create raffle -> %w", err)
		}

		quotas := make([]Quota, len(numbers))
		for i, n := range numbers {
			quotas[i] = Quota{
				RaffleID: raffle.ID,
				Number:   n,
				Status:   QuotaAvailable,
			}
		}
		if err = tx.CreateInBatches(quotas, quotaBatchSize).Error; err != nil {
			return fmt.Errorf("tx.CreateInBatches quotas -> %w", err)
		}

		return nil
	})
	if err != nil {
		return Raffle{}, translateErr(err)
	}

	return raffle, nil
}

func (d *RaffleDAO) FindByID(ctx context.Context, id uint) (Raffle, error) {
	var raffle Raffle

	result := d.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at, id")
		}).
		First(&raffle, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Raffle{}, ErrRaffleNotFound
		}

		return Raffle{}, translateErr(result.Error)
	}

	return raffle, nil
}

func (d *RaffleDAO) FindAll(ctx context.Context, filter RaffleFilter) ([]Raffle, int64, error) {
	query := d.db.WithContext(ctx).Model(&Raffle{})
	if filter.PublicOnly {
		query = query.Where("is_active = ? AND status = ?", true, RaffleStatusActive)
	}
	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateErr(err)
	}

	var raffles []Raffle
	err := query.Order("sequential_id DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&raffles).Error
	if err != nil {
		return nil, 0, translateErr(err)
	}

	return raffles, total, nil
}

// UpdateDetails writes the descriptive fields only. Counters and status are never touched.
func (d *RaffleDAO) UpdateDetails(ctx context.Context, raffle Raffle) (Raffle, error) {
	result := d.db.WithContext(ctx).Model(&Raffle{ID: raffle.ID}).
		Where("is_deleted = ?", false).
		Select("title", "description", "image_url", "quick_select").
		Updates(&raffle)
	if result.Error != nil {
		return Raffle{}, translateErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return Raffle{}, ErrRaffleNotFound
	}

	return d.FindByID(ctx, raffle.ID)
}

// UpdateStatus applies the change only when the stored status still equals update.From,
// and appends the history entry in the same transaction.
func (d *RaffleDAO) UpdateStatus(ctx context.Context, update StatusUpdate) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Raffle{}).
			Where("id = ? AND status = ?", update.RaffleID, update.From).
			Updates(map[string]interface{}{
				"status":     update.To,
				"is_active":  update.IsActive,
				"is_deleted": update.IsDeleted,
				"updated_at": update.ChangedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&Raffle{}).Where("id = ?", update.RaffleID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrRaffleNotFound
			}

			return ErrStatusConflict
		}

		return tx.Create(&RaffleStatusChange{
			RaffleID:  update.RaffleID,
			Status:    update.To,
			ChangedAt: update.ChangedAt,
			ChangedBy: update.ChangedBy,
		}).Error
	})

	return translateErr(err)
}

// CountQuotasByStatus returns how many quotas of the raffle are in each status.
func (d *RaffleDAO) CountQuotasByStatus(ctx context.Context, raffleID uint) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}

	err := d.db.WithContext(ctx).Model(&Quota{}).
		Select("status, count(*) AS count").
		Where("raffle_id = ?", raffleID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translateErr(err)
	}

	counts := map[string]int{
		QuotaAvailable: 0,
		QuotaReserved:  0,
		QuotaSold:      0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

// lockRaffle takes a row lock that serialises every quota transition of the raffle.
func lockRaffle(tx *gorm.DB, id uint) (Raffle, error) {
	var raffle Raffle

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&raffle, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Raffle{}, ErrRaffleNotFound
	}

	return raffle, err
}
