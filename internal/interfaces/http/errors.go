package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/fund-review/internal/domain/entity"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.Set(errorCodeKey, code)
	c.JSON(status, Response{Success: false, Code: code, Error: message})
}

// statusFor maps a domain failure onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports a service failure. Internal errors are logged and hidden.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		fail(c, status, "internal_error", "internal server error")
		return
	}

	var de *entity.Error
	if errors.As(err, &de) {
		fail(c, status, de.Code, de.Message)
		return
	}
	fail(c, status, http.StatusText(status), err.Error())
}

// writeBindError reports a request body that could not be decoded or bound
func (h *Handlers) writeBindError(c *gin.Context, err error) {
	var amountErr *AmountError
	if errors.As(err, &amountErr) {
		fail(c, http.StatusUnprocessableEntity, "invalid_amount", amountErr.Error())
		return
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fail(c, http.StatusUnprocessableEntity, "invalid_"+ve[0].Field(), ve.Error())
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		fail(c, http.StatusRequestEntityTooLarge, "upload_too_large", err.Error())
		return
	}

	fail(c, http.StatusBadRequest, "invalid_request", err.Error())
}
