package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationReleased  = "released"
)

type Reservation struct {
	ID          string                      `gorm:"type:varchar(36);primaryKey"`
	RaffleID    uint                        `gorm:"not null;index"`
	BuyerID     uint                        `gorm:"not null;index"`
	Numbers     datatypes.JSONSlice[string] `gorm:"not null"`
	Quantity    int                         `gorm:"not null"`
	Amount      decimal.Decimal             `gorm:"type:numeric(14,2);not null"`
	Status      string                      `gorm:"type:varchar(16);not null;index:idx_reservation_status_expiry,priority:1"`
	PaymentRef  string                      `gorm:"type:varchar(64);index"`
	ExpiresAt   time.Time                   `gorm:"not null;index:idx_reservation_status_expiry,priority:2"`
	ConfirmedAt *time.Time
	ReleasedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ReservationDAO struct {
	db *gorm.DB
}

func NewReservationDAO(db *gorm.DB) *ReservationDAO {
	return &ReservationDAO{
		db: db,
	}
}

// FindByReference looks a reservation up by its id or by the reference given to the payer.
func (d *ReservationDAO) FindByReference(ctx context.Context, ref string) (Reservation, error) {
	var reservation Reservation

	err := d.db.WithContext(ctx).Where("id = ? OR payment_ref = ?", ref, ref).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Reservation{}, ErrReservationNotFound
		}
		return Reservation{}, translateErr(err)
	}

	return reservation, nil
}

func (d *ReservationDAO) SetPaymentRef(ctx context.Context, id, paymentRef string) error {
	result := d.db.WithContext(ctx).Model(&Reservation{ID: id}).Update("payment_ref", paymentRef)
	if result.Error != nil {
		return translateErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReservationNotFound
	}

	return nil
}

// FindExpired returns pending reservations whose window closed at or before now, oldest first.
func (d *ReservationDAO) FindExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	var reservations []Reservation

	err := d.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", ReservationPending, now).
		Order("expires_at").
		Limit(limit).
		Find(&reservations).Error
	if err != nil {
		return nil, translateErr(err)
	}

	return reservations, nil
}

func (d *ReservationDAO) CountPending(ctx context.Context, raffleID uint) (int, error) {
	var count int64

	err := d.db.WithContext(ctx).Model(&Reservation{}).
		Where("raffle_id = ? AND status = ?", raffleID, ReservationPending).
		Count(&count).Error
	if err != nil {
		return 0, translateErr(err)
	}

	return int(count), nil
}
