package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kmorozov/clipstream/internal/service"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Response{
		Status:  status,
		Data:    data,
		Message: message,
		Success: status < http.StatusBadRequest,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// no internal detail leakage
		msg = "internal server error"
	}
	return respond(c, status, nil, msg)
}
