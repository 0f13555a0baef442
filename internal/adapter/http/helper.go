package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pooled-lending/internal/adapter/middleware"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func principal(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(middleware.PrincipalHeader))
}

func pathID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperrors.WithMessagef(apperrors.ErrInvalidInput, "%s must be a positive integer", name)
	}
	return n, nil
}

// bind decodes and validates the body into req, answering 400 itself on failure.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: apperrors.ErrInvalidInput.Code})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    apperrors.ErrInvalidInput.Code,
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

// mustAmount parses a string already checked by the "amount" tag.
func mustAmount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// respondError renders err with the status its AppError carries.
func respondError(c echo.Context, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Get().Errorw("request failed", "path", c.Request().URL.Path, "code", appErr.Code, "error", err)
		return c.JSON(appErr.StatusCode, ErrorResponse{Error: apperrors.ErrInternal.Message, Code: appErr.Code})
	}
	return c.JSON(appErr.StatusCode, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
