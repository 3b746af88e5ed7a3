package request

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

type SwapQuotaRequest struct {
	RaffleID   uint   `json:"raffle_id" example:"1"`
	Number     string `json:"number" example:"042"`
	FromUserID uint   `json:"from_user_id" example:"7"`
	ToUserID   uint   `json:"to_user_id" example:"9"`
}

func (req *SwapQuotaRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.RaffleID, validation.Required),
		validation.Field(&req.Number, validation.Required),
		validation.Field(&req.FromUserID, validation.Required),
		validation.Field(&req.ToUserID, validation.Required),
	)
}

// ReleaseRequest frees reserved quotas by hand, either one reservation or a list of numbers.
type ReleaseRequest struct {
	ReservationID string   `json:"reservation_id"`
	Numbers       []string `json:"numbers"`
}

func (req *ReleaseRequest) Validate() error {
	if req.ReservationID == "" && len(req.Numbers) == 0 {
		return errors.New("reservation_id or numbers is required")
	}

	return nil
}
