package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/request"
	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/domain"
)

const maxImageSize = 5 << 20

var errImageTooLarge = errors.New("image must be at most 5MB")

type QuotaAdmin interface {
	SwapOwner(ctx context.Context, raffleID uint, number string, fromUserID, toUserID uint) (domain.Quota, error)
	Release(ctx context.Context, raffleID uint, numbers []string, reservationID string) (int, error)
}

type LeadService interface {
	ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.User, int64, error)
	GetLead(ctx context.Context, id uint) (domain.User, error)
}

type AdminHandler struct {
	raffles *RaffleHandler
	quotas  QuotaAdmin
	leads   LeadService
}

func NewAdminHandler(raffles *RaffleHandler, quotas QuotaAdmin, leads LeadService) *AdminHandler {
	return &AdminHandler{
		raffles: raffles,
		quotas:  quotas,
		leads:   leads,
	}
}

// HandleCreateRaffleForm godoc
// @Summary      Create a raffle from the admin panel form
// @Description  Multipart variant of POST /raffles. The image file is not stored; its name is kept as a reference when no image_url is given.
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        title         formData  string  true   "title"
// @Param        description   formData  string  false  "description"
// @Param        price         formData  string  true   "price per quota, e.g. 2.50"
// @Param        total_quotas  formData  int     true   "number of quotas"
// @Param        quick_select  formData  string  false  "comma separated package sizes"
// @Param        image_url     formData  string  false  "image url"
// @Param        activate      formData  bool    false  "open right away"
// @Param        image         formData  file    false  "image"
// @Success      201  {object}  response.Envelope{data=domain.Raffle}
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Router       /admin/create-raffle [post]
// @Security BearerAuth
func (h *AdminHandler) HandleCreateRaffleForm(ctx *gin.Context) {
	var form request.CreateRaffleForm
	if err := ctx.ShouldBind(&form); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := form.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	req, err := form.ToRequest()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if file, err := ctx.FormFile("image"); err == nil {
		if file.Size > maxImageSize {
			response.RenderErr(ctx, response.ErrBadRequest(errImageTooLarge))
			return
		}
		if req.ImageURL == "" {
			req.ImageURL = file.Filename
		}
		zap.L().Info("raffle image received", zap.String("filename", file.Filename), zap.Int64("size", file.Size))
	}

	h.raffles.create(ctx, req)
}

// HandleSwapQuota godoc
// @Summary      Move a sold quota to another user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request  body      request.SwapQuotaRequest  true  "swap"
// @Success      200      {object}  response.Envelope{data=domain.Quota}
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /admin/swap-quota [post]
// @Security BearerAuth
func (h *AdminHandler) HandleSwapQuota(ctx *gin.Context) {
	var req request.SwapQuotaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	quota, err := h.quotas.SwapOwner(ctx.Request.Context(), req.RaffleID, req.Number, req.FromUserID, req.ToUserID)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleSwapQuota -> h.quotas.SwapOwner")
		return
	}

	response.RenderOK(ctx, http.StatusOK, quota)
}

// HandleRaffleStats godoc
// @Summary      Sales figures of a raffle
// @Tags         admin
// @Produce      json
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      200       {object}  response.Envelope{data=domain.RaffleStats}
// @Failure      404       {object}  response.Err
// @Router       /admin/raffles/{raffleID}/stats [get]
// @Security BearerAuth
func (h *AdminHandler) HandleRaffleStats(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}

	stats, err := h.raffles.svc.Stats(ctx.Request.Context(), raffleID)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleRaffleStats -> h.svc.Stats")
		return
	}

	response.RenderOK(ctx, http.StatusOK, stats)
}

// HandleReleaseQuotas godoc
// @Summary      Release reserved quotas by hand
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        raffleID  path      int                     true  "Raffle ID"
// @Param        request   body      request.ReleaseRequest  true  "what to release"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.Err
// @Failure      404       {object}  response.Err
// @Router       /admin/raffles/{raffleID}/release [post]
// @Security BearerAuth
func (h *AdminHandler) HandleReleaseQuotas(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}

	var req request.ReleaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	released, err := h.quotas.Release(ctx.Request.Context(), raffleID, req.Numbers, req.ReservationID)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleReleaseQuotas -> h.quotas.Release")
		return
	}

	response.RenderOK(ctx, http.StatusOK, gin.H{"released": released})
}

// HandleListLeads godoc
// @Summary      List buyers
// @Tags         admin
// @Produce      json
// @Param        search  query     string  false  "name or email contains"
// @Param        limit   query     int     false  "page size"
// @Param        offset  query     int     false  "page offset"
// @Success      200     {object}  response.Envelope{data=response.Page{items=[]domain.User}}
// @Failure      400     {object}  response.Err
// @Router       /admin/leads [get]
// @Security BearerAuth
func (h *AdminHandler) HandleListLeads(ctx *gin.Context) {
	limit, offset, ok := parsePage(ctx)
	if !ok {
		return
	}

	leads, total, err := h.leads.ListLeads(ctx.Request.Context(), domain.LeadFilter{
		Search: ctx.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleListLeads -> h.leads.ListLeads")
		return
	}

	response.RenderOK(ctx, http.StatusOK, response.Page{
		Items:  leads,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleGetLead godoc
// @Summary      Get a buyer with participations
// @Tags         admin
// @Produce      json
// @Param        userID  path      int  true  "User ID"
// @Success      200     {object}  response.Envelope{data=domain.User}
// @Failure      404     {object}  response.Err
// @Router       /admin/leads/{userID} [get]
// @Security BearerAuth
func (h *AdminHandler) HandleGetLead(ctx *gin.Context) {
	userID, ok := parseIDParam(ctx, "userID")
	if !ok {
		return
	}

	lead, err := h.leads.GetLead(ctx.Request.Context(), userID)
	if err != nil {
		renderServiceErr(ctx, err, fmt.Sprintf("v1.HandleGetLead -> h.leads.GetLead(%d)", userID))
		return
	}

	response.RenderOK(ctx, http.StatusOK, lead)
}
