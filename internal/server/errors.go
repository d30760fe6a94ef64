package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/mintclub-router/internal/ai"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps the engine's error taxonomy to an HTTP status. Anything
// unclassified came from the RPC transport or a backing store.
func statusFor(err error) int {
	switch {
	case errors.Is(err, swapengine.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, swapengine.ErrNoRouteFound),
		errors.Is(err, swapengine.ErrNotCurveToken),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, swapengine.ErrSimulationReverted),
		errors.Is(err, swapengine.ErrRiskRejected),
		errors.Is(err, swapengine.ErrMaxCostExceeded),
		errors.Is(err, swapengine.ErrMinRefundNotMet),
		errors.Is(err, ai.ErrNotUnderstood):
		return http.StatusUnprocessableEntity
	case errors.Is(err, swapengine.ErrNoWallet),
		errors.Is(err, ai.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// fail writes err with its mapped status. Client errors carry the error text;
// server-side failures only expose it in dev mode.
func (h *Handlers) fail(c echo.Context, msg string, err error) error {
	code := statusFor(err)
	if code < http.StatusInternalServerError {
		return h.err(c, code, err.Error(), nil)
	}
	h.Logger.WithField("path", c.Path()).WithError(err).Warn(msg)
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}
