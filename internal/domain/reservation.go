package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation is a time-boxed hold on a set of quotas while the buyer pays.
type Reservation struct {
	ID          string            `json:"reference"`
	RaffleID    uint              `json:"raffle_id"`
	BuyerID     uint              `json:"buyer_id"`
	Numbers     []string          `json:"numbers"`
	Quantity    int               `json:"quantity"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      ReservationStatus `json:"status"`
	PaymentRef  string            `json:"payment_ref,omitempty"`
	ExpiresAt   time.Time         `json:"expires_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time        `json:"released_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (r *Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationPending && !now.Before(r.ExpiresAt)
}

func (r *Reservation) IsOwnedBy(userID uint) bool {
	return r.BuyerID == userID
}

// PaymentRequest is what the buyer needs in order to pay a reservation.
type PaymentRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Payload   string          `json:"payload"`
	QRCode    string          `json:"qr_code"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Order is a reservation with the payment request produced for it.
type Order struct {
	Reservation Reservation    `json:"reservation"`
	Payment     PaymentRequest `json:"payment"`
}
