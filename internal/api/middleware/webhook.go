package middleware

import (
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
)

const WebhookSecretHeader = "X-Webhook-Secret"

var errInvalidWebhookSecret = errors.New("invalid webhook secret")

// WebhookSecret only lets through callers presenting the shared secret. An empty secret
// refuses every call.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		got := ctx.GetHeader(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.RenderErr(ctx, response.ErrUnauthorized(errInvalidWebhookSecret))
			return
		}

		ctx.Next()
	}
}
