package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errUnauthorized = errors.New("unauthorized")

func GetID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get("user_id").(string)
	if !ok || s == "" {
		return uuid.Nil, errUnauthorized
	}
	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errUnauthorized
	}
	return userID, nil
}

func unauthorized(c echo.Context, l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", http.StatusUnauthorized, "error", err)
	return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
}

func badRequest(c echo.Context, l *slog.Logger, event, msg string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", msg, "error", err)
	return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: msg})
}

// writeError renders err with the status and message its kind maps to.
func writeError(c echo.Context, l *slog.Logger, event string, err error) error {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "error", err)
	}
	return c.JSON(status, body)
}

func errorResponse(err error) (int, transport.ErrorResponse) {
	var fe service.FieldErrors
	if errors.As(err, &fe) {
		return http.StatusBadRequest, transport.ErrorResponse{Error: "please correct the highlighted fields", Fields: fe}
	}
	if ge, ok := payment.AsGatewayError(err); ok {
		status, msg := gatewayResponse(ge.Category)
		return status, transport.ErrorResponse{Error: msg, Category: string(ge.Category)}
	}

	msg := "internal server error"
	var se *service.Error
	if errors.As(err, &se) {
		msg = se.Msg
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, transport.ErrorResponse{Error: msg}
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, transport.ErrorResponse{Error: msg}
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, transport.ErrorResponse{Error: msg}
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, transport.ErrorResponse{Error: msg}
	case errors.Is(err, service.ErrNotRecorded), errors.Is(err, service.ErrUnhandled):
		return http.StatusInternalServerError, transport.ErrorResponse{Error: msg}
	}
	return http.StatusInternalServerError, transport.ErrorResponse{Error: "internal server error"}
}

func gatewayResponse(cat payment.Category) (int, string) {
	switch cat {
	case payment.CardDeclined:
		return http.StatusPaymentRequired, "your card was declined, you were not charged"
	case payment.RateLimited:
		return http.StatusTooManyRequests, "too many payment attempts, please try again shortly"
	case payment.InvalidRequest:
		return http.StatusBadGateway, "the payment could not be processed with these details, you were not charged"
	case payment.AuthFailure:
		return http.StatusBadGateway, "the payment service is not available right now, you were not charged"
	case payment.ConnectionFailure:
		return http.StatusServiceUnavailable, "could not reach the payment service, please check your connection and try again"
	}
	return http.StatusBadGateway, "something went wrong, you were not charged, please try again"
}
