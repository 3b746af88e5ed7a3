package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rifaonline/rifa-api/internal/domain"
)

type RaffleGetter interface {
	Get(ctx context.Context, id uint, admin bool) (domain.Raffle, error)
}

type LiveHub interface {
	Serve(w http.ResponseWriter, r *http.Request, raffleID uint, snapshot *domain.RaffleEvent) error
}

type LiveHandler struct {
	raffles RaffleGetter
	hub     LiveHub
}

func NewLiveHandler(raffles RaffleGetter, hub LiveHub) *LiveHandler {
	return &LiveHandler{
		raffles: raffles,
		hub:     hub,
	}
}

// HandleLive godoc
// @Summary      Live availability feed
// @Description  Upgrades to a websocket. The first message is a snapshot, then one message per quota change.
// @Tags         raffles
// @Param        raffleID  path  int  true  "Raffle ID"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /raffles/{raffleID}/live [get]
func (h *LiveHandler) HandleLive(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "raffleID")
	if !ok {
		return
	}

	raffle, err := h.raffles.Get(ctx.Request.Context(), raffleID, false)
	if err != nil {
		renderServiceErr(ctx, err, "v1.HandleLive -> h.raffles.Get")
		return
	}

	snapshot := &domain.RaffleEvent{
		Type:            domain.EventSnapshot,
		RaffleID:        raffle.ID,
		AvailableQuotas: raffle.AvailableQuotas,
		At:              time.Now().UTC(),
	}
	if err = h.hub.Serve(ctx.Writer, ctx.Request, raffle.ID, snapshot); err != nil {
		// The upgrader already answered the client.
		zap.L().Debug("live upgrade failed", zap.Uint("raffle_id", raffleID), zap.Error(err))
	}
}
