package response

import (
	"github.com/gin-gonic/gin"

	"github.com/rifaonline/rifa-api/internal/domain"
)

type Envelope struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type Page struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func RenderOK(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, Envelope{
		Success: true,
		Data:    data,
	})
}

func RenderMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, Envelope{
		Success: true,
		Message: message,
	})
}
