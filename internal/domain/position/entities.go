package position

import (
	"time"

	"github.com/shopspring/decimal"
)

// YieldParams snapshots the loan terms in force when the position was opened.
type YieldParams struct {
	RateBps                   uint32 `gorm:"column:rate_bps;not null" json:"rate_bps"`
	CompoundingPeriodsPerYear uint32 `gorm:"column:compounding_periods_per_year;not null" json:"compounding_periods_per_year"`
	DurationSeconds           uint64 `gorm:"column:duration_seconds;not null" json:"duration_seconds"`
}

// Position is one accepted contribution into one loan. Only Withdrawn (and
// its timestamp) changes after creation, and only from false to true.
type Position struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	Owner       string          `gorm:"size:128;not null;index" json:"owner"`
	Asset       string          `gorm:"size:64;not null" json:"asset"`
	LoanID      uint64          `gorm:"not null;index" json:"loan_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(65,0);not null" json:"amount"`
	Yield       YieldParams     `gorm:"embedded" json:"yield"`
	Withdrawn   bool            `gorm:"not null;default:false" json:"withdrawn"`
	WithdrawnAt *time.Time      `json:"withdrawn_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (Position) TableName() string { return "positions" }
