package withdrawal

import (
	"context"

	"pooled-lending/internal/domain/authz"
	"pooled-lending/internal/domain/clock"
	domainLoan "pooled-lending/internal/domain/loan"
	"pooled-lending/internal/domain/uow"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/logger"
	"pooled-lending/internal/usecase/shared"
	"pooled-lending/pkg/guard"

	"github.com/shopspring/decimal"
)

// Usecase moves pooled principal to an authorized recipient, once per loan.
// It is independent of the repayment path.
type Usecase struct {
	loans domainLoan.Repository
	uow   uow.UnitOfWork
	authz authz.Oracle
	clock clock.Clock
	guard *guard.Guard
	pool  string
}

func NewUsecase(loans domainLoan.Repository, tx uow.UnitOfWork, o authz.Oracle, c clock.Clock, g *guard.Guard, poolAccount string) *Usecase {
	return &Usecase{loans: loans, uow: tx, authz: o, clock: c, guard: g, pool: poolAccount}
}

type InfoDTO struct {
	LoanID          uint64          `json:"loan_id"`
	CanWithdraw     bool            `json:"can_withdraw"`
	Withdrawable    decimal.Decimal `json:"withdrawable"`
	Recipient       string          `json:"recipient,omitempty"`
	FundsWithdrawn  bool            `json:"funds_withdrawn"`
	WithdrawnAmount decimal.Decimal `json:"withdrawn_amount"`
}

// CanWithdraw: funded and current >= total*threshold/100.
func CanWithdraw(l *domainLoan.Loan) bool {
	if l.State != domainLoan.StateFunded {
		return false
	}
	floor, _ := l.TotalAmount.Mul(decimal.NewFromInt(int64(l.ThresholdPct))).QuoRem(decimal.NewFromInt(100), 0)
	return l.CurrentAmount.GreaterThanOrEqual(floor)
}

func (u *Usecase) Info(ctx context.Context, loanID uint64) (*InfoDTO, error) {
	l, err := u.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	out := &InfoDTO{
		LoanID:          l.ID,
		CanWithdraw:     CanWithdraw(l) && !l.FundsWithdrawn,
		Withdrawable:    decimal.Zero,
		Recipient:       l.WithdrawalRecipient,
		FundsWithdrawn:  l.FundsWithdrawn,
		WithdrawnAmount: l.WithdrawnAmount,
	}
	if out.CanWithdraw {
		out.Withdrawable = l.CurrentAmount
	}
	return out, nil
}

// AuthorizeRecipient records where Withdraw will send funds. No funds move.
func (u *Usecase) AuthorizeRecipient(ctx context.Context, caller string, loanID uint64, recipient string) error {
	if err := shared.Require(ctx, u.authz, caller, authz.RoleOperator); err != nil {
		return err
	}
	if recipient == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "recipient is required")
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return err
	}
	defer release()

	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.FundsWithdrawn {
			return apperrors.WithMessagef(apperrors.ErrAlreadyWithdrawn, "loan %d funds already went to %s", l.ID, l.WithdrawalRecipient)
		}
		if !CanWithdraw(l) {
			return apperrors.WithMessagef(apperrors.ErrWithdrawalNotAllowed, "loan %d is %s at %d%% funding", l.ID, l.State, l.FundingPct())
		}
		l.WithdrawalRecipient = recipient
		l.LastUpdateTime = u.clock.Now()
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		return shared.LoanErr(err)
	}
	logger.Get().Infow("withdrawal recipient authorized", "loan_id", loanID, "recipient", recipient)
	return nil
}

// Withdraw sends the loan's current amount to the authorized recipient.
// The withdrawn flag is persisted before the transfer is issued.
func (u *Usecase) Withdraw(ctx context.Context, caller string, loanID uint64) (decimal.Decimal, error) {
	if err := shared.Require(ctx, u.authz, caller, authz.RoleOperator); err != nil {
		return decimal.Zero, err
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return decimal.Zero, err
	}
	defer release()

	amount := decimal.Zero
	var recipient string
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.FundsWithdrawn {
			return apperrors.WithMessagef(apperrors.ErrAlreadyWithdrawn, "loan %d funds already withdrawn", l.ID)
		}
		if !CanWithdraw(l) {
			return apperrors.WithMessagef(apperrors.ErrWithdrawalNotAllowed, "loan %d is %s at %d%% funding", l.ID, l.State, l.FundingPct())
		}
		if l.WithdrawalRecipient == "" {
			return apperrors.ErrRecipientNotSet
		}

		amount = l.CurrentAmount
		recipient = l.WithdrawalRecipient
		l.FundsWithdrawn = true
		l.WithdrawnAmount = amount
		l.LastUpdateTime = u.clock.Now()
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		return r.Funds.Transfer(ctx, l.Asset, u.pool, recipient, amount)
	})
	if err != nil {
		return decimal.Zero, shared.LoanErr(err)
	}
	logger.Get().Infow("loan funds withdrawn", "loan_id", loanID, "recipient", recipient, "amount", amount.String())
	return amount, nil
}
