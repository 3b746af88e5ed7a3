package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const UserCodePrefix = "USR"

const (
	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"
)

type User struct {
	ID              uint            `json:"id"`
	LeadID          string          `json:"lead_id"`
	SequentialID    int64           `json:"sequential_id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Password        string          `json:"-"`
	IsAdmin         bool            `json:"is_admin"`
	Status          string          `json:"status"`
	QuotasPurchased int             `json:"quotas_purchased"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	Participations  []Participation `json:"participations,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Participation struct {
	RaffleID            uint            `json:"raffle_id"`
	QuotasPurchased     int             `json:"quotas_purchased"`
	AmountSpent         decimal.Decimal `json:"amount_spent"`
	LastParticipationAt time.Time       `json:"last_participation_at"`
}

type LeadFilter struct {
	Search string
	Limit  int
	Offset int
}
