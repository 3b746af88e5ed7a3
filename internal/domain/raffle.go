package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const RaffleCodePrefix = "RFL"

var ErrInvalidStatusTransition = errors.New("invalid raffle status transition")

type RaffleStatus string

const (
	RaffleDraft     RaffleStatus = "draft"
	RaffleActive    RaffleStatus = "active"
	RaffleInactive  RaffleStatus = "inactive"
	RaffleCompleted RaffleStatus = "completed"
	RaffleCancelled RaffleStatus = "cancelled"
)

// raffleTransitions lists the statuses reachable from each status.
var raffleTransitions = map[RaffleStatus][]RaffleStatus{
	RaffleDraft:     {RaffleActive, RaffleCancelled},
	RaffleActive:    {RaffleInactive, RaffleCompleted, RaffleCancelled},
	RaffleInactive:  {RaffleActive, RaffleCancelled},
	RaffleCompleted: {},
	RaffleCancelled: {},
}

func (s RaffleStatus) CanTransitionTo(to RaffleStatus) bool {
	for _, next := range raffleTransitions[s] {
		if next == to {
			return true
		}
	}

	return false
}

type StatusChange struct {
	Status    RaffleStatus `json:"status"`
	ChangedAt time.Time    `json:"changed_at"`
	ChangedBy uint         `json:"changed_by"`
}

type Raffle struct {
	ID                uint            `json:"id"`
	PublicID          string          `json:"public_id"`
	SequentialID      int64           `json:"sequential_id"`
	Code              string          `json:"code"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	TotalQuotas       int             `json:"total_quotas"`
	AvailableQuotas   int             `json:"available_quotas"`
	IsActive          bool            `json:"is_active"`
	IsDeleted         bool            `json:"-"`
	Status            RaffleStatus    `json:"status"`
	ImageURL          string          `json:"image_url"`
	QuickSelect       []int           `json:"quick_select"`
	TotalParticipants int             `json:"total_participants"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	StatusHistory     []StatusChange  `json:"status_history,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CanReserve reports whether buyers may currently hold quotas of the raffle.
func (r *Raffle) CanReserve() bool {
	return r.Status == RaffleActive && r.IsActive && !r.IsDeleted
}

// Transition moves the raffle to status `to` and records the change in the history.
func (r *Raffle) Transition(to RaffleStatus, actor uint, at time.Time) error {
	if !r.Status.CanTransitionTo(to) {
		return ErrInvalidStatusTransition
	}

	r.StatusHistory = append(r.StatusHistory, StatusChange{
		Status:    to,
		ChangedAt: at,
		ChangedBy: actor,
	})
	r.Status = to
	r.IsActive = to == RaffleActive
	if to == RaffleCancelled {
		r.IsDeleted = true
	}

	return nil
}

func (r *Raffle) Activate(actor uint, at time.Time) error {
	return r.Transition(RaffleActive, actor, at)
}

// ToggleActive flips between active and inactive. A draft raffle is activated.
func (r *Raffle) ToggleActive(actor uint, at time.Time) error {
	switch r.Status {
	case RaffleActive:
		return r.Transition(RaffleInactive, actor, at)
	case RaffleDraft, RaffleInactive:
		return r.Transition(RaffleActive, actor, at)
	default:
		return ErrInvalidStatusTransition
	}
}

func (r *Raffle) SoftDelete(actor uint, at time.Time) error {
	return r.Transition(RaffleCancelled, actor, at)
}

func (r *Raffle) Complete(actor uint, at time.Time) error {
	return r.Transition(RaffleCompleted, actor, at)
}

// IsSoldOut reports whether soldQuotas covers every quota of the raffle.
func (r *Raffle) IsSoldOut(soldQuotas int) bool {
	return r.TotalQuotas > 0 && soldQuotas >= r.TotalQuotas
}

// OrderAmount is the price of `count` quotas.
func (r *Raffle) OrderAmount(count int) decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(int64(count)))
}

type RaffleStats struct {
	RaffleID          uint            `json:"raffle_id"`
	Code              string          `json:"code"`
	TotalQuotas       int             `json:"total_quotas"`
	AvailableQuotas   int             `json:"available_quotas"`
	ReservedQuotas    int             `json:"reserved_quotas"`
	SoldQuotas        int             `json:"sold_quotas"`
	TotalParticipants int             `json:"total_participants"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	PendingOrders     int             `json:"pending_orders"`
}

type RaffleEventType string

const (
	EventQuotasReserved RaffleEventType = "quotas_reserved"
	EventQuotasSold     RaffleEventType = "quotas_sold"
	EventQuotasReleased RaffleEventType = "quotas_released"
	EventQuotaSwapped   RaffleEventType = "quota_swapped"
	EventSnapshot       RaffleEventType = "snapshot"
)

// RaffleEvent is pushed to live subscribers after a quota change commits.
type RaffleEvent struct {
	Type            RaffleEventType `json:"type"`
	RaffleID        uint            `json:"raffle_id"`
	AvailableQuotas int             `json:"available_quotas"`
	Numbers         []string        `json:"numbers,omitempty"`
	At              time.Time       `json:"at"`
}
