package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rifaonline/rifa-api/internal/api/handler/v1/response"
	"github.com/rifaonline/rifa-api/internal/pkg/jwthelper"
)

const (
	ContextKeyUserID  = "userID"
	ContextKeyIsAdmin = "isAdmin"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errNotAdmin     = errors.New("admin access required")
)

type Authenticator struct {
	key []byte
}

func NewAuthenticator(key string) *Authenticator {
	return &Authenticator{
		key: []byte(key),
	}
}

// VerifyJWT rejects requests without a valid bearer token and stores the caller in the context.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		claims, err := jwthelper.ParseToken(a.key, strings.TrimSpace(token))
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		ctx.Set(ContextKeyUserID, claims.UserID)
		ctx.Set(ContextKeyIsAdmin, claims.IsAdmin)
		ctx.Next()
	}
}

// RequireAdmin must run after VerifyJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(ctx) {
			response.RenderErr(ctx, response.ErrPermissionDenied(errNotAdmin))
			return
		}

		ctx.Next()
	}
}

func UserID(ctx *gin.Context) (uint, bool) {
	id, ok := ctx.Get(ContextKeyUserID)
	if !ok {
		return 0, false
	}
	userID, ok := id.(uint)

	return userID, ok && userID != 0
}

func IsAdmin(ctx *gin.Context) bool {
	return ctx.GetBool(ContextKeyIsAdmin)
}
