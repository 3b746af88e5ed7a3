package response

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Err is the body of every failed request.
type Err struct {
	Success        bool   `json:"success" example:"false"`
	Message        string `json:"message" example:"raffle not found"`
	HTTPStatusCode int    `json:"-"`
	RetryAfter     int    `json:"-"`
	Err            error  `json:"-"`
}

func (e *Err) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return e.Message
}

func (e *Err) Unwrap() error {
	return e.Err
}

// RenderErr writes e and aborts the chain. Server side failures are logged with their
// full error chain; the client only sees the public message.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", e.HTTPStatusCode),
			zap.Error(e.Err))
	}
	if e.RetryAfter > 0 {
		ctx.Header("Retry-After", strconv.Itoa(e.RetryAfter))
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func newErr(status int, message string, err error) *Err {
	return &Err{
		Success:        false,
		Message:        message,
		HTTPStatusCode: status,
		Err:            err,
	}
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, err.Error(), err)
}

func ErrWrongCredentials(err error) *Err {
	return newErr(http.StatusUnauthorized, "wrong email or password", err)
}

func ErrUnauthorized(err error) *Err {
	return newErr(http.StatusUnauthorized, "authentication required", err)
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, "permission denied", err)
}

func ErrNotFound(resource, key string, value interface{}) *Err {
	err := fmt.Errorf("%s with %s %v not found", resource, key, value)
	return newErr(http.StatusNotFound, err.Error(), err)
}

func ErrResourceNotFound(err error) *Err {
	return newErr(http.StatusNotFound, err.Error(), err)
}

func ErrConflict(err error) *Err {
	return newErr(http.StatusConflict, err.Error(), err)
}

func ErrServiceUnavailable(err error, retryAfter int) *Err {
	e := newErr(http.StatusServiceUnavailable, "service temporarily unavailable, retry later", err)
	e.RetryAfter = retryAfter

	return e
}

func ErrInternalServerError(err error) *Err {
	return newErr(http.StatusInternalServerError, "internal server error", err)
}
