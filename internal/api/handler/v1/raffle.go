package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/request"
	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/domain"
	"github.com/rifaonline/rifa-api/internal/service"
)

type RaffleService interface {
	Create(ctx context.Context, raffle domain.Raffle, actor uint, activate bool) (domain.Raffle, error)
	Get(ctx context.Context, id uint, admin bool) (domain.Raffle, error)
	List(ctx context.Context, admin, includeDeleted bool, limit, offset int) ([]domain.Raffle, int64, error)
	UpdateDetails(ctx context.Context, id uint, update service.RaffleUpdate) (domain.Raffle, error)
	Toggle(ctx context.Context, id, actor uint) (domain.Raffle, error)
	Delete(ctx context.Context, id, actor uint) error
	Stats(ctx context.Context, id uint) (domain.RaffleStats, error)
}

type QuotaLister interface {
	ListQuotas(ctx context.Context, raffleID uint, status domain.QuotaStatus, limit, offset int) ([]domain.Quota, int64, error)
}

type RaffleHandler struct {
	svc    RaffleService
	quotas QuotaLister
}

func NewRaffleHandler(svc RaffleService, quotas QuotaLister) *RaffleHandler {
	return &RaffleHandler{
		svc:    svc,
		quotas: quotas,
	}
}

// quotaView is the public face of a quota: who holds it is not disclosed.
type quotaView struct {
	Number string             `json:"number"`
	Status domain.QuotaStatus `json:"status"`
}

// HandleListRaffles godoc
// @Summary      List open raffles
// @Tags         raffles
// @Produce      json
// @Param        limit   query     int  false  "page size"
// @Param        offset  query     int  false  "page offset"
// @Success      200     {object}  response.Envelope{data=response.Page{items=[]domain.Raffle}}
// @Failure      400     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /raffles [get]
func (h *RaffleHandler) HandleListRaffles(ctx *gin.Context) {
	h.list(ctx, false, false)
}

// HandleAdminListRaffles godoc
// @Summary      List every raffle
// @Tags         admin
// @Produce      json
// @Param        limit            query     int   false  "page size"
// @Param        offset           query     int   false  "page offset"
// @Param        include_deleted  query     bool  false  "include soft deleted raffles"
// @Success      200     {object}  response.Envelope{data=response.Page{items=[]domain.Raffle}}
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Router       /admin/raffles [get]
// @Security BearerAuth
func (h *RaffleHandler) HandleAdminListRaffles(ctx *gin.Context) {
	h.list(ctx, true, ctx.Query("include_deleted") == "true")
}

func (h *RaffleHandler) list(ctx *gin.Context, admin, includeDeleted bool) {
	limit, offset, ok := parsePage(ctx)
	if !ok {
		return
	}

	raffles, total, err := h.svc.List(ctx.Request.Context(), admin, includeDeleted, limit, offset)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleListRaffles -> h.svc.List")
		return
	}

	response.RenderOK(ctx, http.StatusOK, response.Page{
		Items:  raffles,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleGetRaffle godoc
// @Summary      Get a raffle
// @Tags         raffles
// @Produce      json
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      200       {object}  response.Envelope{data=domain.Raffle}
// @Failure      400       {object}  response.Err
// @Failure      404       {object}  response.Err
// @Router       /raffles/{raffleID} [get]
func (h *RaffleHandler) HandleGetRaffle(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}

	raffle, err := h.svc.Get(ctx.Request.Context(), raffleID, false)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleGetRaffle -> h.svc.Get")
		return
	}

	response.RenderOK(ctx, http.StatusOK, raffle)
}

// HandleListQuotas godoc
// @Summary      List the numbers of a raffle
// @Description  Returns number and status only. Filter with status=available|reserved|sold.
// @Tags         raffles
// @Produce      json
// @Param        raffleID  path      int     true   "Raffle ID"
// @Param        status    query     string  false  "quota status"
// @Param        limit     query     int     false  "page size, at most 1000"
// @Param        offset    query     int     false  "page offset"
// @Success      200       {object}  response.Envelope{data=response.Page}
// @Failure      400       {object}  response.Err
// @Failure      404       {object}  response.Err
// @Router       /raffles/{raffleID}/quotas [get]
func (h *RaffleHandler) HandleListQuotas(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}
	limit, offset, ok := parsePage(ctx)
	if !ok {
		return
	}
	if ctx.Query("limit") == "" {
		limit = service.MaxQuotaPageSize
	}
	limit = service.QuotaPageLimit(limit)

	quotas, total, err := h.quotas.ListQuotas(ctx.Request.Context(), raffleID, domain.QuotaStatus(ctx.Query("status")), limit, offset)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleListQuotas -> h.quotas.ListQuotas")
		return
	}

	views := make([]quotaView, len(quotas))
	for i, q := range quotas {
		views[i] = quotaView{Number: q.Number, Status: q.Status}
	}

	response.RenderOK(ctx, http.StatusOK, response.Page{
		Items:  views,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleCreateRaffle godoc
// @Summary      Create a raffle
// @Description  Creates the raffle and every one of its quotas. Set activate to open it right away.
// @Tags         raffles
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateRaffleRequest  true  "raffle"
// @Success      201      {object}  response.Envelope{data=domain.Raffle}
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /raffles [post]
// @Security BearerAuth
func (h *RaffleHandler) HandleCreateRaffle(ctx *gin.Context) {
	var req request.CreateRaffleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	h.create(ctx, req)
}

func (h *RaffleHandler) create(ctx *gin.Context, req request.CreateRaffleRequest) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	raffle, err := h.svc.Create(ctx.Request.Context(), domain.Raffle{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		TotalQuotas: req.TotalQuotas,
		ImageURL:    req.ImageURL,
		QuickSelect: req.QuickSelect,
	}, actor, req.Activate)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleCreateRaffle -> h.svc.Create")
		return
	}

	response.RenderOK(ctx, http.StatusCreated, raffle)
}

// HandleUpdateRaffle godoc
// @Summary      Update raffle details
// @Tags         raffles
// @Accept       json
// @Produce      json
// @Param        raffleID  path      int                          true  "Raffle ID"
// @Param        request   body      request.UpdateRaffleRequest  true  "fields to change"
// @Success      200       {object}  response.Envelope{data=domain.Raffle}
// @Failure      400       {object}  response.Err
// @Failure      404       {object}  response.Err
// @Router       /raffles/{raffleID} [patch]
// @Security BearerAuth
func (h *RaffleHandler) HandleUpdateRaffle(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}

	var req request.UpdateRaffleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	raffle, err := h.svc.UpdateDetails(ctx.Request.Context(), raffleID, service.RaffleUpdate{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		QuickSelect: req.QuickSelect,
	})
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleUpdateRaffle -> h.svc.UpdateDetails")
		return
	}

	response.RenderOK(ctx, http.StatusOK, raffle)
}

// HandleToggleRaffle godoc
// @Summary      Open or pause a raffle
// @Tags         raffles
// @Produce      json
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      200       {object}  response.Envelope{data=domain.Raffle}
// @Failure      404       {object}  response.Err
// @Failure      409       {object}  response.Err
// @Router       /raffles/{raffleID}/toggle [patch]
// @Security BearerAuth
func (h *RaffleHandler) HandleToggleRaffle(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	raffle, err := h.svc.Toggle(ctx.Request.Context(), raffleID, actor)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleToggleRaffle -> h.svc.Toggle")
		return
	}

	response.RenderOK(ctx, http.StatusOK, raffle)
}

// HandleDeleteRaffle godoc
// @Summary      Soft delete a raffle
// @Description  The raffle is cancelled and hidden. Its rows are kept.
// @Tags         raffles
// @Produce      json
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      200       {object}  response.Envelope
// @Failure      404       {object}  response.Err
// @Failure      409       {object}  response.Err
// @Router       /raffles/{raffleID} [delete]
// @Security BearerAuth
func (h *RaffleHandler) HandleDeleteRaffle(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), raffleID, actor); err != nil {
		renderServiceErr(ctx, err, "v1.HandleDeleteRaffle -> h.svc.Delete")
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "raffle deleted")
}

