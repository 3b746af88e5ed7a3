package pix

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/rifaonline/rifa-api/internal/config"
	"github.com/rifaonline/rifa-api/internal/domain"
)

const qrSize = 256

// Gateway issues static PIX charges. Confirmation arrives later through the webhook.
type Gateway struct {
	conf *config.PixConfig
	ttl  time.Duration
	now  func() time.Time
}

func NewGateway(conf *config.PixConfig, ttl time.Duration) *Gateway {
	return &Gateway{
		conf: conf,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (g *Gateway) CreatePaymentRequest(ctx context.Context, amount decimal.Decimal, reference string) (domain.PaymentRequest, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentRequest{}, err
	}

	txid := TxID(reference)
	payload, err := Payload{
		Key:          g.conf.Key,
		MerchantName: g.conf.MerchantName,
		MerchantCity: g.conf.MerchantCity,
		Amount:       amount,
		TxID:         txid,
	}.Build()
	if err != nil {
		return domain.PaymentRequest{}, fmt.Errorf("Payload.Build -> %w", err)
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return domain.PaymentRequest{}, fmt.Errorf("qrcode.Encode -> %w", err)
	}

	return domain.PaymentRequest{
		Reference: txid,
		Amount:    amount,
		Payload:   payload,
		QRCode:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}
