package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/api/middleware"
)

const (
	defaultPageSize = 20
)

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid %s %q", name, ctx.Param(name))))
		return 0, false
	}

	return uint(id), true
}

func parsePage(ctx *gin.Context) (int, int, bool) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid limit %q", ctx.Query("limit"))))
		return 0, 0, false
	}
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid offset %q", ctx.Query("offset"))))
		return 0, 0, false
	}

	return limit, offset, true
}

// currentUser reads the caller set by middleware.VerifyJWT.
func currentUser(ctx *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(fmt.Errorf("no user in context")))
		return 0, false
	}

	return userID, true
}

// HandleHealthcheck godoc
// @Summary      Healthcheck
// @Tags         healthcheck
// @Produce      json
// @Success      200  {object}  response.Envelope
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	response.RenderMessage(ctx, http.StatusOK, "ok")
}
