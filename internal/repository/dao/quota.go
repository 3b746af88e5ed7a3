package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	QuotaAvailable = "available"
	QuotaReserved  = "reserved"
	QuotaSold      = "sold"

	RaffleStatusActive    = "active"
	RaffleStatusCompleted = "completed"
)

// Quota is one numbered ticket. The owner is set exactly when the quota is not available.
type Quota struct {
	ID            uint       `gorm:"primaryKey"`
	RaffleID      uint       `gorm:"not null;uniqueIndex:idx_quota_raffle_number,priority:1;index:idx_quota_raffle_status,priority:1"`
	Number        string     `gorm:"type:varchar(8);not null;uniqueIndex:idx_quota_raffle_number,priority:2"`
	Status        string     `gorm:"type:varchar(16);not null;default:available;index:idx_quota_raffle_status,priority:2;check:chk_quotas_owner,(status = 'available') = (owner_id IS NULL)"`
	OwnerID       *uint      `gorm:"index"`
	ReservationID *string    `gorm:"type:varchar(36);index"`
	ReservedAt    *time.Time
	SoldAt        *time.Time
}

// Claim asks for Quantity available quotas of a raffle on behalf of a buyer.
type Claim struct {
	ReservationID string
	RaffleID      uint
	BuyerID       uint
	Quantity      int
	At            time.Time
	ExpiresAt     time.Time
}

// Sale turns quotas reserved by BuyerID into sold ones. ReservationID is optional; when set
// the reservation must still be pending and every number must belong to it.
type Sale struct {
	RaffleID      uint
	BuyerID       uint
	Numbers       []string
	Amount        decimal.Decimal
	ReservationID string
	At            time.Time
}

// Release returns reserved quotas to the pool, selected by number, by reservation, or both.
type Release struct {
	RaffleID      uint
	Numbers       []string
	ReservationID string
	At            time.Time
}

type Swap struct {
	RaffleID   uint
	Number     string
	FromUserID uint
	ToUserID   uint
}

// OwnedQuota is a sold quota joined with its raffle.
type OwnedQuota struct {
	RaffleID     uint
	Number       string
	Title        string
	SequentialID int64
}

// RaffleRules decides what a raffle row allows. The quota transactions consult it after
// taking the row lock.
type RaffleRules interface {
	CanReserve(raffle Raffle) bool
	OrderAmount(raffle Raffle, quantity int) decimal.Decimal
	Completes(raffle Raffle, soldQuotas int, at time.Time) bool
}

type QuotaDAO struct {
	db    *gorm.DB
	rules RaffleRules
}

func NewQuotaDAO(db *gorm.DB, rules RaffleRules) *QuotaDAO {
	return &QuotaDAO{
		db:    db,
		rules: rules,
	}
}

// Reserve claims claim.Quantity available quotas or none at all. The raffle row lock
// serialises concurrent claims, and the conditional updates are checked against the
// requested count before the pending reservation is written.
func (d *QuotaDAO) Reserve(ctx context.Context, claim Claim) (Reservation, error) {
	var created Reservation

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raffle, err := lockRaffle(tx, claim.RaffleID)
		if err != nil {
			return err
		}
		if !d.rules.CanReserve(raffle) {
			return ErrRaffleNotOpen
		}
		if raffle.AvailableQuotas < claim.Quantity {
			return ErrInsufficientInventory
		}

		var ids []uint
		err = tx.Model(&Quota{}).
			Where("raffle_id = ? AND status = ?", claim.RaffleID, QuotaAvailable).
			Order("random()").
			Limit(claim.Quantity).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("pluck available quotas -> %w", err)
		}
		if len(ids) != claim.Quantity {
			return ErrInsufficientInventory
		}

		result := tx.Model(&Quota{}).
			Where("id IN ? AND status = ?", ids, QuotaAvailable).
			Updates(map[string]interface{}{
				"status":         QuotaReserved,
				"owner_id":       claim.BuyerID,
				"reservation_id": claim.ReservationID,
				"reserved_at":    claim.At,
			})
		if result.Error != nil {
			return fmt.Errorf("claim quotas -> %w", result.Error)
		}
		if result.RowsAffected != int64(claim.Quantity) {
			return ErrInsufficientInventory
		}

		result = tx.Model(&Raffle{}).
			Where("id = ? AND available_quotas >= ?", claim.RaffleID, claim.Quantity).
			UpdateColumn("available_quotas", gorm.Expr("available_quotas - ?", claim.Quantity))
		if result.Error != nil {
			return fmt.Errorf("decrement available quotas -> %w", result.Error)
		}
		if result.RowsAffected != 1 {
			return ErrInsufficientInventory
		}

		var numbers []string
		err = tx.Model(&Quota{}).
			Where("reservation_id = ?", claim.ReservationID).
			Order("number").
			Pluck("number", &numbers).Error
		if err != nil {
			return fmt.Errorf("pluck reserved numbers -> %w", err)
		}

		created = Reservation{
			ID:        claim.ReservationID,
			RaffleID:  claim.RaffleID,
			BuyerID:   claim.BuyerID,
			Numbers:   numbers,
			Quantity:  claim.Quantity,
			Amount:    d.rules.OrderAmount(raffle, claim.Quantity),
			Status:    ReservationPending,
			ExpiresAt: claim.ExpiresAt,
			CreatedAt: claim.At,
		}

		return tx.Create(&created).Error
	})
	if err != nil {
		return Reservation{}, translateErr(err)
	}

	return created, nil
}

// ConfirmSale marks every number of the sale as sold to the buyer and credits the raffle,
// the buyer and the buyer's participation record. Either all of it happens or none.
func (d *QuotaDAO) ConfirmSale(ctx context.Context, sale Sale) (Raffle, error) {
	var updated Raffle

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raffle, err := lockRaffle(tx, sale.RaffleID)
		if err != nil {
			return err
		}

		if sale.ReservationID != "" {
			result := tx.Model(&Reservation{}).
				Where("id = ? AND raffle_id = ? AND buyer_id = ? AND status = ?",
					sale.ReservationID, sale.RaffleID, sale.BuyerID, ReservationPending).
				Updates(map[string]interface{}{
					"status":       ReservationConfirmed,
					"confirmed_at": sale.At,
					"updated_at":   sale.At,
				})
			if result.Error != nil {
				return fmt.Errorf("confirm reservation -> %w", result.Error)
			}
			if result.RowsAffected != 1 {
				return ErrReservationNotFound
			}
		}

		query := tx.Model(&Quota{}).
			Where("raffle_id = ? AND number IN ? AND status = ? AND owner_id = ?",
				sale.RaffleID, sale.Numbers, QuotaReserved, sale.BuyerID)
		if sale.ReservationID != "" {
			query = query.Where("reservation_id = ?", sale.ReservationID)
		}
		result := query.Updates(map[string]interface{}{
			"status":      QuotaSold,
			"sold_at":     sale.At,
			"reserved_at": nil,
		})
		if result.Error != nil {
			return fmt.Errorf("sell quotas -> %w", result.Error)
		}
		if result.RowsAffected != int64(len(sale.Numbers)) {
			return ErrReservationNotFound
		}

		updates := map[string]interface{}{
			"total_participants": gorm.Expr("total_participants + 1"),
			"total_revenue":      gorm.Expr("total_revenue + ?", sale.Amount),
			"updated_at":         sale.At,
		}

		var sold int64
		if err = tx.Model(&Quota{}).Where("raffle_id = ? AND status = ?", sale.RaffleID, QuotaSold).Count(&sold).Error; err != nil {
			return fmt.Errorf("count sold quotas -> %w", err)
		}
		completed := d.rules.Completes(raffle, int(sold), sale.At)
		if completed {
			updates["status"] = RaffleStatusCompleted
			updates["is_active"] = false
		}

		if err = tx.Model(&Raffle{}).Where("id = ?", sale.RaffleID).UpdateColumns(updates).Error; err != nil {
			return fmt.Errorf("credit raffle -> %w", err)
		}
		if completed {
			err = tx.Create(&RaffleStatusChange{
				RaffleID:  sale.RaffleID,
				Status:    RaffleStatusCompleted,
				ChangedAt: sale.At,
			}).Error
			if err != nil {
				return fmt.Errorf("record completion -> %w", err)
			}
		}

		count := len(sale.Numbers)
		result = tx.Model(&User{}).Where("id = ?", sale.BuyerID).UpdateColumns(map[string]interface{}{
			"quotas_purchased": gorm.Expr("quotas_purchased + ?", count),
			"total_spent":      gorm.Expr("total_spent + ?", sale.Amount),
			"updated_at":       sale.At,
		})
		if result.Error != nil {
			return fmt.Errorf("credit buyer -> %w", result.Error)
		}
		if result.RowsAffected != 1 {
			return ErrUserNotFound
		}

		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "raffle_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quotas_purchased":      gorm.Expr("user_participations.quotas_purchased + ?", count),
				"amount_spent":          gorm.Expr("user_participations.amount_spent + ?", sale.Amount),
				"last_participation_at": sale.At,
			}),
		}).Create(&Participation{
			UserID:              sale.BuyerID,
			RaffleID:            sale.RaffleID,
			QuotasPurchased:     count,
			AmountSpent:         sale.Amount,
			LastParticipationAt: sale.At,
		}).Error
		if err != nil {
			return fmt.Errorf("upsert participation -> %w", err)
		}

		return tx.First(&updated, sale.RaffleID).Error
	})
	if err != nil {
		return Raffle{}, translateErr(err)
	}

	return updated, nil
}

// Release is idempotent: quotas that are not reserved are skipped, and the returned count
// is the number actually put back. A reservation left without quotas is marked released.
func (d *QuotaDAO) Release(ctx context.Context, rel Release) (int, Raffle, error) {
	if len(rel.Numbers) == 0 && rel.ReservationID == "" {
		return 0, Raffle{}, nil
	}

	var (
		released int
		updated  Raffle
	)

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockRaffle(tx, rel.RaffleID); err != nil {
			return err
		}

		scope := func() *gorm.DB {
			q := tx.Model(&Quota{}).Where("raffle_id = ? AND status = ?", rel.RaffleID, QuotaReserved)
			if len(rel.Numbers) > 0 {
				q = q.Where("number IN ?", rel.Numbers)
			}
			if rel.ReservationID != "" {
				q = q.Where("reservation_id = ?", rel.ReservationID)
			}

			return q
		}

		var reservationIDs []string
		if err := scope().Where("reservation_id IS NOT NULL").Distinct().Pluck("reservation_id", &reservationIDs).Error; err != nil {
			return fmt.Errorf("pluck reservations -> %w", err)
		}
		if rel.ReservationID != "" && len(reservationIDs) == 0 {
			reservationIDs = []string{rel.ReservationID}
		}

		result := scope().Updates(map[string]interface{}{
			"status":         QuotaAvailable,
			"owner_id":       nil,
			"reservation_id": nil,
			"reserved_at":    nil,
		})
		if result.Error != nil {
			return fmt.Errorf("release quotas -> %w", result.Error)
		}
		released = int(result.RowsAffected)

		if released > 0 {
			err := tx.Model(&Raffle{}).Where("id = ?", rel.RaffleID).UpdateColumns(map[string]interface{}{
				"available_quotas": gorm.Expr("available_quotas + ?", released),
				"updated_at":       rel.At,
			}).Error
			if err != nil {
				return fmt.Errorf("restore available quotas -> %w", err)
			}
		}

		for _, id := range reservationIDs {
			var remaining int64
			if err := tx.Model(&Quota{}).Where("reservation_id = ? AND status = ?", id, QuotaReserved).Count(&remaining).Error; err != nil {
				return fmt.Errorf("count remaining quotas -> %w", err)
			}
			if remaining > 0 {
				continue
			}

			err := tx.Model(&Reservation{}).
				Where("id = ? AND status = ?", id, ReservationPending).
				Updates(map[string]interface{}{
					"status":      ReservationReleased,
					"released_at": rel.At,
					"updated_at":  rel.At,
				}).Error
			if err != nil {
				return fmt.Errorf("release reservation -> %w", err)
			}
		}

		return tx.First(&updated, rel.RaffleID).Error
	})
	if err != nil {
		return 0, Raffle{}, translateErr(err)
	}

	return released, updated, nil
}

// SwapOwner hands a sold quota from one user to another without touching its status.
func (d *QuotaDAO) SwapOwner(ctx context.Context, swap Swap) (Quota, error) {
	var quota Quota

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target User
		if err := tx.Select("id").First(&target, swap.ToUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("raffle_id = ? AND number = ?", swap.RaffleID, swap.Number).
			First(&quota).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuotaNotFound
			}
			return err
		}

		if quota.Status != QuotaSold || quota.OwnerID == nil || *quota.OwnerID != swap.FromUserID {
			return ErrOwnershipMismatch
		}

		if err = tx.Model(&quota).Update("owner_id", swap.ToUserID).Error; err != nil {
			return err
		}
		quota.OwnerID = &swap.ToUserID

		return nil
	})
	if err != nil {
		return Quota{}, translateErr(err)
	}

	return quota, nil
}

func (d *QuotaDAO) FindByRaffle(ctx context.Context, raffleID uint, status string, limit, offset int) ([]Quota, int64, error) {
	query := d.db.WithContext(ctx).Model(&Quota{}).Where("raffle_id = ?", raffleID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateErr(err)
	}

	var quotas []Quota
	if err := query.Order("number").Limit(limit).Offset(offset).Find(&quotas).Error; err != nil {
		return nil, 0, translateErr(err)
	}

	return quotas, total, nil
}

// FindSoldByOwner lists the sold quotas of a user, grouped by raffle and number.
func (d *QuotaDAO) FindSoldByOwner(ctx context.Context, ownerID uint) ([]OwnedQuota, error) {
	var owned []OwnedQuota

	err := d.db.WithContext(ctx).Model(&Quota{}).
		Select("quotas.raffle_id, quotas.number, raffles.title, raffles.sequential_id").
		Joins("JOIN raffles ON raffles.id = quotas.raffle_id").
		Where("quotas.owner_id = ? AND quotas.status = ?", ownerID, QuotaSold).
		Order("quotas.raffle_id, quotas.number").
		Scan(&owned).Error
	if err != nil {
		return nil, translateErr(err)
	}

	return owned, nil
}
