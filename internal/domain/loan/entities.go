package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value the decimal(65,0) amount columns hold.
var MaxAmount = decimal.New(1, 65).Sub(decimal.NewFromInt(1))

type State string

const (
	StateCreated   State = "created"
	StateFunded    State = "funded"
	StateRepaid    State = "repaid"
	StateDefaulted State = "defaulted"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateRepaid || s == StateDefaulted || s == StateCancelled
}

// CanTransition reports whether s → next is an edge of the lifecycle.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateCreated:
		return next == StateFunded || next == StateCancelled
	case StateFunded:
		return next == StateRepaid || next == StateDefaulted
	}
	return false
}

// Loan is the pooled-capital record. Rows are never deleted.
type Loan struct {
	ID                        uint64          `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	Asset                     string          `gorm:"size:64;not null;index" json:"asset"`
	TotalAmount               decimal.Decimal `gorm:"type:decimal(65,0);not null" json:"total_amount"`
	CurrentAmount             decimal.Decimal `gorm:"type:decimal(65,0);not null" json:"current_amount"`
	TotalInvested             decimal.Decimal `gorm:"type:decimal(65,0);not null" json:"total_invested"`
	InterestRateBps           uint32          `gorm:"not null" json:"interest_rate_bps"`
	CompoundingPeriodsPerYear uint32          `gorm:"not null" json:"compounding_periods_per_year"`
	DurationSeconds           uint64          `gorm:"not null" json:"duration_seconds"`
	ThresholdPct              uint32          `gorm:"not null" json:"threshold_pct"`
	StartTime                 *time.Time      `json:"start_time,omitempty"`
	EndTime                   *time.Time      `json:"end_time,omitempty"`
	State                     State           `gorm:"size:16;not null;index" json:"state"`
	FundsWithdrawn            bool            `gorm:"not null;default:false" json:"funds_withdrawn"`
	WithdrawalRecipient       string          `gorm:"size:128" json:"withdrawal_recipient,omitempty"`
	WithdrawnAmount           decimal.Decimal `gorm:"type:decimal(65,0);not null" json:"withdrawn_amount"`
	TotalRepayment            decimal.Decimal `gorm:"type:decimal(65,0);not null" json:"total_repayment"`
	LastUpdateTime            time.Time       `json:"last_update_time"`
	CreatedAt                 time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Loan) TableName() string { return "loans" }

// Remaining is the capacity still open to investment.
func (l *Loan) Remaining() decimal.Decimal {
	r := l.TotalAmount.Sub(l.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// FundingPct is floor(current*100/total).
func (l *Loan) FundingPct() uint32 {
	if l.TotalAmount.IsZero() {
		return 0
	}
	q, _ := l.CurrentAmount.Mul(decimal.NewFromInt(100)).QuoRem(l.TotalAmount, 0)
	return uint32(q.IntPart())
}

// MeetsThreshold reports current*100 >= total*threshold, which is equivalent
// to FundingPct() >= ThresholdPct without the intermediate truncation.
func (l *Loan) MeetsThreshold() bool {
	lhs := l.CurrentAmount.Mul(decimal.NewFromInt(100))
	rhs := l.TotalAmount.Mul(decimal.NewFromInt(int64(l.ThresholdPct)))
	return lhs.GreaterThanOrEqual(rhs)
}

// Expired reports now > EndTime. A loan without an EndTime never expires.
func (l *Loan) Expired(now time.Time) bool {
	return l.EndTime != nil && now.After(*l.EndTime)
}
