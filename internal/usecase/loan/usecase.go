package loan

import (
	"context"
	"time"

	"pooled-lending/internal/domain/authz"
	"pooled-lending/internal/domain/clock"
	domain "pooled-lending/internal/domain/loan"
	domainPosition "pooled-lending/internal/domain/position"
	"pooled-lending/internal/domain/registry"
	"pooled-lending/internal/domain/uow"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/logger"
	"pooled-lending/internal/usecase/interest"
	posuc "pooled-lending/internal/usecase/position"
	"pooled-lending/internal/usecase/repayment"
	"pooled-lending/internal/usecase/shared"
	"pooled-lending/pkg/guard"

	"github.com/shopspring/decimal"
)

const (
	// MaxCompoundingPeriodsPerYear caps compounding at hourly.
	MaxCompoundingPeriodsPerYear = 24 * 365
	// MaxDurationSeconds keeps EndTime representable as a time.Duration offset.
	MaxDurationSeconds = 100 * interest.SecondsPerYear
	// MaxInterestRateBps is 1000% a year.
	MaxInterestRateBps = 100_000
)

type Deps struct {
	Loans       domain.Repository
	Positions   domainPosition.Repository
	Registry    registry.Repository
	UoW         uow.UnitOfWork
	Authz       authz.Oracle
	Clock       clock.Clock
	Guard       *guard.Guard
	Distributor *repayment.Distributor
	// PoolAccount holds pooled principal and incoming repayments.
	PoolAccount string
	// FallbackThresholdPct applies when the registry has no default stored.
	FallbackThresholdPct uint32
}

type Usecase struct {
	loans       domain.Repository
	positions   domainPosition.Repository
	registry    registry.Repository
	uow         uow.UnitOfWork
	authz       authz.Oracle
	clock       clock.Clock
	guard       *guard.Guard
	distributor *repayment.Distributor
	pool        string
	fallback    uint32
}

func NewUsecase(d Deps) *Usecase {
	return &Usecase{
		loans:       d.Loans,
		positions:   d.Positions,
		registry:    d.Registry,
		uow:         d.UoW,
		authz:       d.Authz,
		clock:       d.Clock,
		guard:       d.Guard,
		distributor: d.Distributor,
		pool:        d.PoolAccount,
		fallback:    d.FallbackThresholdPct,
	}
}

func notInState(l *domain.Loan, required domain.State) error {
	return apperrors.WithMessagef(apperrors.ErrNotInExpectedState,
		"loan %d: required state %s, actual %s", l.ID, required, l.State)
}

func invalidParam(name string) error {
	return apperrors.WithMessagef(apperrors.ErrInvalidParameter, "invalid parameter: %s", name)
}

func validateCreate(in CreateLoanInput) error {
	if !in.TotalAmount.IsPositive() {
		return apperrors.ErrZeroAmount
	}
	if !in.TotalAmount.IsInteger() {
		return invalidParam("total_amount")
	}
	if in.InterestRateBps == 0 || in.InterestRateBps > MaxInterestRateBps {
		return invalidParam("rate")
	}
	if in.CompoundingPeriodsPerYear == 0 || in.CompoundingPeriodsPerYear > MaxCompoundingPeriodsPerYear {
		return invalidParam("compounding")
	}
	if in.DurationSeconds == 0 || in.DurationSeconds > MaxDurationSeconds {
		return invalidParam("duration")
	}
	if in.ThresholdOverride > 100 {
		return invalidParam("threshold")
	}
	// a full repayment must fit the amount columns
	if _, ok := interest.RepaymentWithin(in.TotalAmount, domain.MaxAmount,
		uint64(in.InterestRateBps), uint64(in.CompoundingPeriodsPerYear), in.DurationSeconds); !ok {
		return invalidParam("repayment")
	}
	return nil
}

// CreateLoan opens a loan in state created. Caller must be an operator.
func (u *Usecase) CreateLoan(ctx context.Context, caller string, in CreateLoanInput) (*LoanDTO, error) {
	if err := shared.Require(ctx, u.authz, caller, authz.RoleOperator); err != nil {
		return nil, err
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *domain.Loan
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		ok, err := r.Registry.IsSupported(ctx, in.Asset)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.WithMessagef(apperrors.ErrUnsupportedAsset, "asset %q is not supported", in.Asset)
		}
		threshold := in.ThresholdOverride
		if threshold == 0 {
			if threshold, err = r.Registry.DefaultThreshold(ctx, u.fallback); err != nil {
				return err
			}
		}

		now := u.clock.Now()
		l := &domain.Loan{
			Asset:                     in.Asset,
			TotalAmount:               in.TotalAmount,
			CurrentAmount:             decimal.Zero,
			TotalInvested:             decimal.Zero,
			InterestRateBps:           in.InterestRateBps,
			CompoundingPeriodsPerYear: in.CompoundingPeriodsPerYear,
			DurationSeconds:           in.DurationSeconds,
			ThresholdPct:              threshold,
			State:                     domain.StateCreated,
			WithdrawnAmount:           decimal.Zero,
			TotalRepayment:            decimal.Zero,
			LastUpdateTime:            now,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	logger.Get().Infow("loan created", "loan_id", out.ID, "asset", out.Asset,
		"total_amount", out.TotalAmount.String(), "threshold_pct", out.ThresholdPct)
	return toDTO(out), nil
}

// AcceptInvestment takes up to amount from investor, clamped to the loan's
// remaining capacity, and records a position for what was accepted.
func (u *Usecase) AcceptInvestment(ctx context.Context, investor string, loanID uint64, amount decimal.Decimal) (*InvestmentResult, error) {
	if investor == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "investor is required")
	}
	if !amount.IsPositive() {
		return nil, apperrors.ErrZeroAmount
	}
	if !amount.IsInteger() {
		return nil, invalidParam("amount")
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return nil, err
	}
	defer release()

	var res InvestmentResult
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateCreated {
			return notInState(l, domain.StateCreated)
		}
		remaining := l.Remaining()
		if !remaining.IsPositive() {
			return apperrors.WithMessagef(apperrors.ErrCapacityExceeded, "loan %d is fully funded", l.ID)
		}
		accepted := decimal.Min(amount, remaining)
		// funds move before any row is written
		if err := r.Funds.Pull(ctx, l.Asset, investor, u.pool, u.pool, accepted); err != nil {
			return err
		}

		now := u.clock.Now()
		l.CurrentAmount = l.CurrentAmount.Add(accepted)
		l.TotalInvested = l.TotalInvested.Add(accepted)
		l.LastUpdateTime = now

		p, err := posuc.NewLedger(r.Positions).Create(ctx, posuc.CreateInput{
			Owner:  investor,
			Asset:  l.Asset,
			Amount: accepted,
			LoanID: l.ID,
			Yield: domainPosition.YieldParams{
				RateBps:                   l.InterestRateBps,
				CompoundingPeriodsPerYear: l.CompoundingPeriodsPerYear,
				DurationSeconds:           l.DurationSeconds,
			},
		})
		if err != nil {
			return err
		}

		if l.MeetsThreshold() {
			start := now
			end := now.Add(time.Duration(l.DurationSeconds) * time.Second)
			l.State = domain.StateFunded
			l.StartTime = &start
			l.EndTime = &end
			res.Funded = true
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		res.PositionID = p.ID
		res.Accepted = accepted
		res.Loan = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	logger.Get().Infow("investment accepted", "loan_id", loanID, "position_id", res.PositionID,
		"accepted", res.Accepted.String(), "funded", res.Funded)
	return &res, nil
}

// MarkDefaulted closes a funded loan whose term lapsed without repayment.
func (u *Usecase) MarkDefaulted(ctx context.Context, caller string, loanID uint64) (*LoanDTO, error) {
	return u.transition(ctx, caller, loanID, func(l *domain.Loan, now time.Time) error {
		if l.State != domain.StateFunded {
			return notInState(l, domain.StateFunded)
		}
		if !l.Expired(now) {
			return apperrors.WithMessagef(apperrors.ErrNotYetExpired, "loan %d runs until %s", l.ID, l.EndTime.Format(time.RFC3339))
		}
		l.State = domain.StateDefaulted
		return nil
	})
}

// CancelLoan withdraws a loan that has not reached its funding threshold.
func (u *Usecase) CancelLoan(ctx context.Context, caller string, loanID uint64) (*LoanDTO, error) {
	return u.transition(ctx, caller, loanID, func(l *domain.Loan, _ time.Time) error {
		if l.State != domain.StateCreated {
			return notInState(l, domain.StateCreated)
		}
		l.State = domain.StateCancelled
		return nil
	})
}

func (u *Usecase) transition(ctx context.Context, caller string, loanID uint64, apply func(l *domain.Loan, now time.Time) error) (*LoanDTO, error) {
	if err := shared.Require(ctx, u.authz, caller, authz.RoleOperator); err != nil {
		return nil, err
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *domain.Loan
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		from := l.State
		now := u.clock.Now()
		if err := apply(l, now); err != nil {
			return err
		}
		l.LastUpdateTime = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		logger.Get().Infow("loan state changed", "loan_id", l.ID, "from", from, "to", l.State)
		out = l
		return nil
	})
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	return toDTO(out), nil
}

// Repay settles a funded loan before its end time: the compounded
// obligation is pulled from caller and distributed to the positions.
func (u *Usecase) Repay(ctx context.Context, caller string, loanID uint64) (*RepayResult, error) {
	if err := shared.Require(ctx, u.authz, caller, authz.RoleOperator); err != nil {
		return nil, err
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return nil, err
	}
	defer release()

	var out RepayResult
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateFunded {
			return notInState(l, domain.StateFunded)
		}
		now := u.clock.Now()
		if l.Expired(now) {
			return apperrors.WithMessagef(apperrors.ErrAlreadyExpired, "loan %d expired at %s", l.ID, l.EndTime.Format(time.RFC3339))
		}
		total := interest.Repayment(l.CurrentAmount,
			uint64(l.InterestRateBps), uint64(l.CompoundingPeriodsPerYear), l.DurationSeconds)

		l.State = domain.StateRepaid
		l.TotalRepayment = total
		l.LastUpdateTime = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Funds.Pull(ctx, l.Asset, caller, u.pool, u.pool, total); err != nil {
			return err
		}

		report, err := u.distributor.Distribute(ctx, r, l, total, now)
		if err != nil {
			return err
		}
		out.Loan = toDTO(l)
		out.Report = report
		return nil
	})
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	logger.Get().Infow("loan repaid", "loan_id", loanID,
		"total_repayment", out.Report.TotalRepayment.String(),
		"paid", len(out.Report.Paid), "skipped", len(out.Report.Skipped), "dust", out.Report.Dust.String())
	return &out, nil
}

func (u *Usecase) Get(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	l, err := u.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	return toDTO(l), nil
}

func (u *Usecase) FundingStatus(ctx context.Context, loanID uint64) (*FundingStatus, error) {
	l, err := u.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	return &FundingStatus{
		LoanID:       l.ID,
		FundingPct:   l.FundingPct(),
		ThresholdPct: l.ThresholdPct,
		Remaining:    l.Remaining(),
		Funded:       l.State != domain.StateCreated && l.State != domain.StateCancelled,
	}, nil
}

func (u *Usecase) SettlementStatus(ctx context.Context, loanID uint64) (*SettlementStatus, error) {
	l, err := u.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, shared.LoanErr(err)
	}
	return &SettlementStatus{
		LoanID:         l.ID,
		State:          string(l.State),
		Repaid:         l.State == domain.StateRepaid,
		Defaulted:      l.State == domain.StateDefaulted,
		Cancelled:      l.State == domain.StateCancelled,
		FundsWithdrawn: l.FundsWithdrawn,
		TotalRepayment: l.TotalRepayment,
	}, nil
}

// FundingHistory lists the positions opened against the loan, oldest first.
func (u *Usecase) FundingHistory(ctx context.Context, loanID uint64) ([]domainPosition.Position, error) {
	if _, err := u.loans.GetByID(ctx, loanID); err != nil {
		return nil, shared.LoanErr(err)
	}
	return posuc.NewLedger(u.positions).ListByLoan(ctx, loanID)
}

func (u *Usecase) GetPosition(ctx context.Context, positionID uint64) (*domainPosition.Position, error) {
	return posuc.NewLedger(u.positions).Get(ctx, positionID)
}
