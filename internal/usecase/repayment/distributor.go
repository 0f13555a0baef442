package repayment

import (
	"context"
	"errors"
	"time"

	"pooled-lending/internal/domain/loan"
	"pooled-lending/internal/domain/uow"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/logger"
	posuc "pooled-lending/internal/usecase/position"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payout struct {
	PositionID uint64          `json:"position_id"`
	Owner      string          `json:"owner"`
	Amount     decimal.Decimal `json:"amount"`
}

type SkippedPosition struct {
	PositionID uint64 `json:"position_id"`
	Reason     string `json:"reason"`
}

// Report is the outcome of one distribution run. Dust is what integer
// division leaves of TotalRepayment after every open position's share; it is
// not redistributed.
type Report struct {
	LoanID         uint64            `json:"loan_id"`
	TotalRepayment decimal.Decimal   `json:"total_repayment"`
	Paid           []Payout          `json:"paid"`
	Skipped        []SkippedPosition `json:"skipped"`
	Distributed    decimal.Decimal   `json:"distributed"`
	Dust           decimal.Decimal   `json:"dust"`
}

// Distributor fans a repayment out to the loan's open positions pro rata.
type Distributor struct{ pool string }

func NewDistributor(poolAccount string) *Distributor { return &Distributor{pool: poolAccount} }

// Share is floor(total*amount/current).
func Share(total, amount, current decimal.Decimal) decimal.Decimal {
	if !current.IsPositive() {
		return decimal.Zero
	}
	q, _ := total.Mul(amount).QuoRem(current, 0)
	return q
}

// Distribute pays every open position of l its share of total. Each position
// is settled in its own savepoint; a failing position is rolled back, listed
// in Report.Skipped, and the run moves on. Only a failure to enumerate the
// positions aborts the run. Settled positions are stamped with now.
func (d *Distributor) Distribute(ctx context.Context, r uow.Repos, l *loan.Loan, total decimal.Decimal, now time.Time) (*Report, error) {
	rep := &Report{
		LoanID:         l.ID,
		TotalRepayment: total,
		Paid:           []Payout{},
		Skipped:        []SkippedPosition{},
		Distributed:    decimal.Zero,
	}
	positions, err := r.Positions.ListByLoanID(ctx, l.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}

	owed := decimal.Zero
	for _, p := range positions {
		if p.Withdrawn {
			continue
		}
		share := Share(total, p.Amount, l.CurrentAmount)
		owed = owed.Add(share)

		payout, err := d.settle(ctx, r, l, p.ID, total, now)
		if err != nil {
			logger.Get().Warnw("repayment: position skipped",
				"loan_id", l.ID, "position_id", p.ID, "share", share.String(), "error", err)
			rep.Skipped = append(rep.Skipped, SkippedPosition{PositionID: p.ID, Reason: err.Error()})
			continue
		}
		rep.Paid = append(rep.Paid, payout)
		rep.Distributed = rep.Distributed.Add(payout.Amount)
	}
	rep.Dust = total.Sub(owed)
	return rep, nil
}

// settle is the fallible per-position step: re-read, mark withdrawn, pay.
func (d *Distributor) settle(ctx context.Context, r uow.Repos, l *loan.Loan, positionID uint64, total decimal.Decimal, now time.Time) (Payout, error) {
	var out Payout
	err := r.Savepoint(ctx, func(sp uow.Repos) error {
		p, err := sp.Positions.GetByIDForUpdate(ctx, positionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPositionNotFound
		}
		if err != nil {
			return err
		}
		if p.LoanID != l.ID {
			return apperrors.WithMessagef(apperrors.ErrInvalidInput, "position %d belongs to loan %d", p.ID, p.LoanID)
		}
		if err := posuc.NewLedger(sp.Positions).MarkWithdrawn(ctx, p.ID, now); err != nil {
			return err
		}
		share := Share(total, p.Amount, l.CurrentAmount)
		if share.IsPositive() {
			if err := sp.Funds.Transfer(ctx, l.Asset, d.pool, p.Owner, share); err != nil {
				return err
			}
		}
		out = Payout{PositionID: p.ID, Owner: p.Owner, Amount: share}
		return nil
	})
	return out, err
}
