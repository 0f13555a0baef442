package http

import (
	"context"
	"net/http"

	"pooled-lending/internal/domain/authz"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/usecase/shared"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// Funds is the balance book behind the value-transfer ledger.
type Funds interface {
	Deposit(ctx context.Context, asset, account string, amount decimal.Decimal) error
	Approve(ctx context.Context, asset, owner, spender string, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, asset, account string) (decimal.Decimal, error)
	AllowanceOf(ctx context.Context, asset, owner, spender string) (decimal.Decimal, error)
}

type FundsHandler struct {
	funds Funds
	authz authz.Oracle
	pool  string
}

func NewFundsHandler(f Funds, o authz.Oracle, poolAccount string) *FundsHandler {
	return &FundsHandler{funds: f, authz: o, pool: poolAccount}
}

type depositReq struct {
	Asset   string `json:"asset" validate:"required"`
	Account string `json:"account" validate:"principal"`
	Amount  string `json:"amount" validate:"amount"`
}

type approveReq struct {
	Asset string `json:"asset" validate:"required"`
	// Spender defaults to the pool account.
	Spender string `json:"spender" validate:"omitempty,principal"`
	// Amount 0 revokes.
	Amount string `json:"amount" validate:"allowance"`
}

// Deposit mints balance into an account. Admin only.
func (h *FundsHandler) Deposit(c echo.Context) error {
	var req depositReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	if err := shared.Require(ctx, h.authz, principal(c), authz.RoleAdmin); err != nil {
		return respondError(c, err)
	}
	if err := h.funds.Deposit(ctx, req.Asset, req.Account, mustAmount(req.Amount)); err != nil {
		return respondError(c, err)
	}
	return h.balance(c, http.StatusCreated, req.Asset, req.Account)
}

// Approve sets the allowance the caller grants to spender.
func (h *FundsHandler) Approve(c echo.Context) error {
	var req approveReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	owner := principal(c)
	if owner == "" {
		return respondError(c, apperrors.WithMessage(apperrors.ErrForbidden, "caller principal is required"))
	}
	spender := req.Spender
	if spender == "" {
		spender = h.pool
	}
	ctx := c.Request().Context()
	if err := h.funds.Approve(ctx, req.Asset, owner, spender, mustAmount(req.Amount)); err != nil {
		return respondError(c, err)
	}
	return h.allowance(c, req.Asset, owner, spender)
}

func (h *FundsHandler) Allowance(c echo.Context) error {
	return h.allowance(c, c.Param("asset"), c.Param("owner"), c.Param("spender"))
}

func (h *FundsHandler) allowance(c echo.Context, asset, owner, spender string) error {
	left, err := h.funds.AllowanceOf(c.Request().Context(), asset, owner, spender)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"asset": asset, "owner": owner, "spender": spender, "allowance": left})
}

func (h *FundsHandler) Balance(c echo.Context) error {
	return h.balance(c, http.StatusOK, c.Param("asset"), c.Param("account"))
}

func (h *FundsHandler) balance(c echo.Context, status int, asset, account string) error {
	bal, err := h.funds.BalanceOf(c.Request().Context(), asset, account)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, map[string]any{"asset": asset, "account": account, "balance": bal})
}
