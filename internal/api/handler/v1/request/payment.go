package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

const (
	WebhookStatusPaid    = "paid"
	WebhookStatusExpired = "expired"
	WebhookStatusFailed  = "failed"
)

type CreateOrderRequest struct {
	RaffleID uint `json:"raffle_id" example:"1"`
	Quantity int  `json:"quantity" example:"10"`
}

func (req *CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.RaffleID, validation.Required),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
	)
}

// WebhookRequest is the notification sent by the payment provider.
type WebhookRequest struct {
	Reference string          `json:"reference" example:"3f0c1b7e9a2d4c6b8e1f0a2b3"`
	Status    string          `json:"status" example:"paid"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"25.00"`
}

func (req *WebhookRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Reference, validation.Required),
		validation.Field(&req.Status, validation.Required, validation.In(WebhookStatusPaid, WebhookStatusExpired, WebhookStatusFailed)),
	)
}
