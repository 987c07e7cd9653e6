package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"boxoffice/entity"
)

// asHTTPError translates domain errors into caller-visible HTTP errors.
// Anything unmapped passes through and surfaces as a 500.
func asHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var formatErr *entity.FormatError
	if errors.As(err, &formatErr) {
		return echo.NewHTTPError(http.StatusBadRequest, formatErr.Error())
	}
	var mismatchErr *entity.MismatchError
	if errors.As(err, &mismatchErr) {
		return echo.NewHTTPError(http.StatusConflict, mismatchErr.Error())
	}

	switch {
	case errors.Is(err, entity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, entity.ErrExpired):
		return echo.NewHTTPError(http.StatusGone, "link expired")
	case errors.Is(err, entity.ErrAlreadyUsed):
		return echo.NewHTTPError(http.StatusGone, "link already used")
	case errors.Is(err, entity.ErrTokenMismatch):
		return echo.NewHTTPError(http.StatusForbidden, "token does not belong to this ticket")
	case errors.Is(err, entity.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, entity.ErrSellerInactive):
		return echo.NewHTTPError(http.StatusForbidden, "seller is deactivated")
	case errors.Is(err, entity.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusConflict, "quota exceeded")
	case errors.Is(err, entity.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, "invalid status transition")
	}

	return err
}
