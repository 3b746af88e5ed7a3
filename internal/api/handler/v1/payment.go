package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/request"
	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/api/middleware"
	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/service"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, raffleID, buyerID uint, quantity int) (domain.Order, error)
	OnPaymentConfirmed(ctx context.Context, ref string, amount decimal.Decimal) (domain.Reservation, error)
	OnPaymentExpiredOrFailed(ctx context.Context, ref string) error
	GetOrder(ctx context.Context, ref string, requesterID uint, admin bool) (domain.Reservation, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: svc,
	}
}

// HandleCreateOrder godoc
// @Summary      Reserve quotas and get a PIX payment request
// @Description  Random available numbers are held for the buyer until the reservation expires.
// @Tags         payment
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateOrderRequest  true  "order"
// @Success      201      {object}  response.Envelope{data=domain.Order}
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      503      {object}  response.Err
// @Router       /payment/create-order [post]
// @Security BearerAuth
func (h *PaymentHandler) HandleCreateOrder(ctx *gin.Context) {
	buyerID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req request.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	order, err := h.svc.CreateOrder(ctx.Request.Context(), req.RaffleID, buyerID, req.Quantity)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleCreateOrder -> h.svc.CreateOrder")
		return
	}

	response.RenderOK(ctx, http.StatusCreated, order)
}

// HandleGetOrder godoc
// @Summary      Poll the status of an order
// @Tags         payment
// @Produce      json
// @Param        reference  path      string  true  "reservation or payment reference"
// @Success      200        {object}  response.Envelope{data=domain.Reservation}
// @Failure      401        {object}  response.Err
// @Failure      404        {object}  response.Err
// @Router       /payment/orders/{reference} [get]
// @Security BearerAuth
func (h *PaymentHandler) HandleGetOrder(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	ref := ctx.Param("reference")
	reservation, err := h.svc.GetOrder(ctx.Request.Context(), ref, userID, middleware.IsAdmin(ctx))
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("order", "reference", ref))
			return
		}
		renderServiceErr(ctx, err, "v1.HandleGetOrder -> h.svc.GetOrder")
		return
	}

	response.RenderOK(ctx, http.StatusOK, reservation)
}

// HandleWebhook godoc
// @Summary      Payment provider notification
// @Description  paid confirms the sale; expired and failed release the quotas. Replays are harmless.
// @Description  Unknown references are acknowledged with 200 so the provider stops retrying.
// @Tags         payment
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header    string                  true  "shared secret"
// @Param        request           body      request.WebhookRequest  true  "notification"
// @Success      200               {object}  response.Envelope
// @Failure      400               {object}  response.Err
// @Failure      401               {object}  response.Err
// @Failure      409               {object}  response.Err
// @Failure      503               {object}  response.Err
// @Router       /payment/webhook [post]
func (h *PaymentHandler) HandleWebhook(ctx *gin.Context) {
	var req request.WebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	log := zap.L().With(zap.String("reference", req.Reference), zap.String("status", req.Status))

	if req.Status != request.WebhookStatusPaid {
		if err := h.svc.OnPaymentExpiredOrFailed(ctx.Request.Context(), req.Reference); err != nil {
			h.renderWebhookErr(ctx, req.Reference, err, "v1.HandleWebhook -> h.svc.OnPaymentExpiredOrFailed")
			return
		}
		log.Info("payment not completed, quotas released")
		response.RenderMessage(ctx, http.StatusOK, "released")
		return
	}

	reservation, err := h.svc.OnPaymentConfirmed(ctx.Request.Context(), req.Reference, req.Amount)
	if err != nil {
		log.Warn("payment confirmation refused", zap.Error(err))
		h.renderWebhookErr(ctx, req.Reference, err, "v1.HandleWebhook -> h.svc.OnPaymentConfirmed")
		return
	}

	log.Info("payment confirmed", zap.Uint("raffle_id", reservation.RaffleID), zap.Int("quantity", reservation.Quantity))
	response.RenderOK(ctx, http.StatusOK, reservation)
}

func (h *PaymentHandler) renderWebhookErr(ctx *gin.Context, ref string, err error, op string) {
	if errors.Is(err, service.ErrReservationNotFound) {
		zap.L().Warn("webhook for unknown reference ignored", zap.String("reference", ref))
		response.RenderMessage(ctx, http.StatusOK, "unknown reference ignored")
		return
	}

	renderServiceErr(ctx, err, op)
}
