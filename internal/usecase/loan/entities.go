package loan

import (
	"time"

	domain "pooled-lending/internal/domain/loan"
	"pooled-lending/internal/usecase/repayment"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	Asset                     string
	TotalAmount               decimal.Decimal
	InterestRateBps           uint32
	CompoundingPeriodsPerYear uint32
	DurationSeconds           uint64
	// ThresholdOverride of 0 takes the registry default.
	ThresholdOverride uint32
}

type LoanDTO struct {
	ID                        uint64          `json:"id"`
	Asset                     string          `json:"asset"`
	TotalAmount               decimal.Decimal `json:"total_amount"`
	CurrentAmount             decimal.Decimal `json:"current_amount"`
	TotalInvested             decimal.Decimal `json:"total_invested"`
	InterestRateBps           uint32          `json:"interest_rate_bps"`
	CompoundingPeriodsPerYear uint32          `json:"compounding_periods_per_year"`
	DurationSeconds           uint64          `json:"duration_seconds"`
	ThresholdPct              uint32          `json:"threshold_pct"`
	StartTime                 *time.Time      `json:"start_time,omitempty"`
	EndTime                   *time.Time      `json:"end_time,omitempty"`
	State                     string          `json:"state"`
	FundsWithdrawn            bool            `json:"funds_withdrawn"`
	WithdrawalRecipient       string          `json:"withdrawal_recipient,omitempty"`
	WithdrawnAmount           decimal.Decimal `json:"withdrawn_amount"`
	TotalRepayment            decimal.Decimal `json:"total_repayment"`
	LastUpdateTime            time.Time       `json:"last_update_time"`
	CreatedAt                 time.Time       `json:"created_at"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		ID:                        l.ID,
		Asset:                     l.Asset,
		TotalAmount:               l.TotalAmount,
		CurrentAmount:             l.CurrentAmount,
		TotalInvested:             l.TotalInvested,
		InterestRateBps:           l.InterestRateBps,
		CompoundingPeriodsPerYear: l.CompoundingPeriodsPerYear,
		DurationSeconds:           l.DurationSeconds,
		ThresholdPct:              l.ThresholdPct,
		StartTime:                 l.StartTime,
		EndTime:                   l.EndTime,
		State:                     string(l.State),
		FundsWithdrawn:            l.FundsWithdrawn,
		WithdrawalRecipient:       l.WithdrawalRecipient,
		WithdrawnAmount:           l.WithdrawnAmount,
		TotalRepayment:            l.TotalRepayment,
		LastUpdateTime:            l.LastUpdateTime,
		CreatedAt:                 l.CreatedAt,
	}
}

type InvestmentResult struct {
	PositionID uint64          `json:"position_id"`
	Accepted   decimal.Decimal `json:"accepted"`
	// Funded is true when this investment moved the loan to funded.
	Funded bool     `json:"funded"`
	Loan   *LoanDTO `json:"loan"`
}

type FundingStatus struct {
	LoanID       uint64          `json:"loan_id"`
	FundingPct   uint32          `json:"funding_pct"`
	ThresholdPct uint32          `json:"threshold_pct"`
	Remaining    decimal.Decimal `json:"remaining"`
	Funded       bool            `json:"funded"`
}

type SettlementStatus struct {
	LoanID         uint64          `json:"loan_id"`
	State          string          `json:"state"`
	Repaid         bool            `json:"repaid"`
	Defaulted      bool            `json:"defaulted"`
	Cancelled      bool            `json:"cancelled"`
	FundsWithdrawn bool            `json:"funds_withdrawn"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
}

type RepayResult struct {
	Loan   *LoanDTO          `json:"loan"`
	Report *repayment.Report `json:"report"`
}
