package http

import (
	"net/http"

	"pooled-lending/internal/usecase/loan"
	"pooled-lending/internal/usecase/withdrawal"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct {
	loans       *loan.Usecase
	withdrawals *withdrawal.Usecase
}

func NewLoanHandler(loans *loan.Usecase, withdrawals *withdrawal.Usecase) *LoanHandler {
	return &LoanHandler{loans: loans, withdrawals: withdrawals}
}

type createLoanReq struct {
	Asset                     string `json:"asset" validate:"required"`
	TotalAmount               string `json:"total_amount" validate:"amount"`
	InterestRateBps           uint32 `json:"interest_rate_bps" validate:"gte=1,lte=100000"`
	CompoundingPeriodsPerYear uint32 `json:"compounding_periods_per_year" validate:"gte=1,lte=8760"`
	DurationSeconds           uint64 `json:"duration_seconds" validate:"gte=1"`
	ThresholdPct              uint32 `json:"threshold_pct" validate:"lte=100"`
}

type amountReq struct {
	Amount string `json:"amount" validate:"amount"`
}

type recipientReq struct {
	Recipient string `json:"recipient" validate:"principal"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.loans.CreateLoan(c.Request().Context(), principal(c), loan.CreateLoanInput{
		Asset:                     req.Asset,
		TotalAmount:               mustAmount(req.TotalAmount),
		InterestRateBps:           req.InterestRateBps,
		CompoundingPeriodsPerYear: req.CompoundingPeriodsPerYear,
		DurationSeconds:           req.DurationSeconds,
		ThresholdOverride:         req.ThresholdPct,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	dto, err := h.loans.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Invest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req amountReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	res, err := h.loans.AcceptInvestment(c.Request().Context(), principal(c), id, mustAmount(req.Amount))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *LoanHandler) AuthorizeRecipient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req recipientReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.withdrawals.AuthorizeRecipient(c.Request().Context(), principal(c), id, req.Recipient); err != nil {
		return respondError(c, err)
	}
	return h.withdrawalInfo(c, id)
}

func (h *LoanHandler) Withdraw(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	amount, err := h.withdrawals.Withdraw(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan_id": id, "amount": amount})
}

func (h *LoanHandler) WithdrawalInfo(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	return h.withdrawalInfo(c, id)
}

func (h *LoanHandler) withdrawalInfo(c echo.Context, id uint64) error {
	info, err := h.withdrawals.Info(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (h *LoanHandler) Repay(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.loans.Repay(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) MarkDefaulted(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	dto, err := h.loans.MarkDefaulted(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	dto, err := h.loans.CancelLoan(c.Request().Context(), principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) FundingStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	st, err := h.loans.FundingStatus(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *LoanHandler) SettlementStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	st, err := h.loans.SettlementStatus(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *LoanHandler) FundingHistory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ps, err := h.loans.FundingHistory(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *LoanHandler) GetPosition(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.loans.GetPosition(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
