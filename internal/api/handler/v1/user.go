package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/domain"
)

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
	MyNumbers(ctx context.Context, userID uint) ([]domain.RaffleNumbers, error)
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleGetMe godoc
// @Summary      Profile of the caller
// @Tags         users
// @Produce      json
// @Success      200  {object}  response.Envelope{data=domain.User}
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /users/me [get]
// @Security BearerAuth
func (h *UserHandler) HandleGetMe(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleGetMe -> h.svc.GetUser")
		return
	}

	response.RenderOK(ctx, http.StatusOK, user)
}

// HandleMyNumbers godoc
// @Summary      Numbers the caller bought, grouped by raffle
// @Tags         users
// @Produce      json
// @Success      200  {object}  response.Envelope{data=[]domain.RaffleNumbers}
// @Failure      401  {object}  response.Err
// @Router       /user/my-numbers [get]
// @Security BearerAuth
func (h *UserHandler) HandleMyNumbers(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	numbers, err := h.svc.MyNumbers(ctx.Request.Context(), userID)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleMyNumbers -> h.svc.MyNumbers")
		return
	}

	response.RenderOK(ctx, http.StatusOK, numbers)
}
