package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	authzadapter "pooled-lending/internal/adapter/authz"
	"pooled-lending/internal/adapter/repository/mysql"
	domain "pooled-lending/internal/domain/loan"
	"pooled-lending/internal/domain/uow"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/testutil"
	"pooled-lending/internal/testutil/clockmock"
	"pooled-lending/internal/testutil/fundsmock"
	"pooled-lending/internal/testutil/uowmock"
	"pooled-lending/internal/usecase/repayment"
	"pooled-lending/pkg/guard"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	operator = "ops"
	pool     = "pool"
	year     = uint64(365 * 24 * 3600)
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	db    *gorm.DB
	uc    *Usecase
	funds *mysql.BalanceLedger
	clock *clockmock.Clock
	guard *guard.Guard
}

// newHarness wires the usecase to sqlite. wrap, when set, decorates the
// transactional repos handed to every operation.
func newHarness(t *testing.T, wrap func(r uow.Repos) uow.Repos) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	if err := mysql.NewRegistryRepository(db).AddAsset(ctx, "usdc"); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	var tx uow.UnitOfWork = mysql.NewGormUoW(db)
	if wrap != nil {
		inner := tx
		tx = uowmock.New().
			WithWithinTx(func(ctx context.Context, fn func(uow.Repos) error) error {
				return inner.WithinTx(ctx, func(r uow.Repos) error { return fn(wrap(r)) })
			}).
			WithWithinLoanTx(func(ctx context.Context, id uint64, fn func(uow.Repos, *domain.Loan) error) error {
				return inner.WithinLoanTx(ctx, id, func(r uow.Repos, l *domain.Loan) error { return fn(wrap(r), l) })
			})
	}

	repos := mysql.Repos(db)
	h := &harness{
		db:    db,
		funds: mysql.NewBalanceLedger(db),
		clock: clockmock.New(t0),
		guard: guard.New(),
	}
	h.uc = NewUsecase(Deps{
		Loans:                repos.Loans,
		Positions:            repos.Positions,
		Registry:             repos.Registry,
		UoW:                  tx,
		Authz:                authzadapter.NewStatic([]string{"admin"}, []string{operator}),
		Clock:                h.clock,
		Guard:                h.guard,
		Distributor:          repayment.NewDistributor(pool),
		PoolAccount:          pool,
		FallbackThresholdPct: 100,
	})
	return h
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// fund gives account n usdc and lets the pool pull all of it.
func (h *harness) fund(t *testing.T, account string, n int64) {
	t.Helper()
	ctx := context.Background()
	testutil.AssertNoError(t, h.funds.Deposit(ctx, "usdc", account, dec(n)))
	testutil.AssertNoError(t, h.funds.Approve(ctx, "usdc", account, pool, dec(n)))
}

func (h *harness) balance(t *testing.T, account string) int64 {
	t.Helper()
	b, err := h.funds.BalanceOf(context.Background(), "usdc", account)
	testutil.AssertNoError(t, err)
	return b.IntPart()
}

func (h *harness) create(t *testing.T, total int64, threshold uint32) *LoanDTO {
	t.Helper()
	l, err := h.uc.CreateLoan(context.Background(), operator, CreateLoanInput{
		Asset:                     "usdc",
		TotalAmount:               dec(total),
		InterestRateBps:           500,
		CompoundingPeriodsPerYear: 12,
		DurationSeconds:           year,
		ThresholdOverride:         threshold,
	})
	testutil.AssertNoError(t, err)
	return l
}

func TestCreateLoan(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	l := h.create(t, 1000, 30)
	if l.ID != 1 || l.State != string(domain.StateCreated) || l.ThresholdPct != 30 {
		t.Fatalf("unexpected loan: %+v", l)
	}
	if !l.CurrentAmount.IsZero() || l.StartTime != nil || l.EndTime != nil {
		t.Fatalf("new loan must be unfunded: %+v", l)
	}

	// threshold falls back to the registry default, then to the configured one
	if l := h.create(t, 1000, 0); l.ThresholdPct != 100 {
		t.Fatalf("fallback threshold = %d", l.ThresholdPct)
	}
	testutil.AssertNoError(t, mysql.NewRegistryRepository(h.db).SetDefaultThreshold(ctx, 55))
	if l := h.create(t, 1000, 0); l.ThresholdPct != 55 || l.ID != 3 {
		t.Fatalf("registry threshold = %d id = %d", l.ThresholdPct, l.ID)
	}
}

func TestCreateLoan_Rejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	valid := CreateLoanInput{
		Asset: "usdc", TotalAmount: dec(1000), InterestRateBps: 500,
		CompoundingPeriodsPerYear: 12, DurationSeconds: year,
	}

	cases := []struct {
		name   string
		caller string
		mutate func(in *CreateLoanInput)
		want   *apperrors.AppError
	}{
		{"not an operator", "mallory", func(*CreateLoanInput) {}, apperrors.ErrForbidden},
		{"admin is not operator", "admin", func(*CreateLoanInput) {}, apperrors.ErrForbidden},
		{"zero total", operator, func(in *CreateLoanInput) { in.TotalAmount = decimal.Zero }, apperrors.ErrZeroAmount},
		{"fractional total", operator, func(in *CreateLoanInput) { in.TotalAmount = decimal.RequireFromString("1.5") }, apperrors.ErrInvalidParameter},
		{"zero rate", operator, func(in *CreateLoanInput) { in.InterestRateBps = 0 }, apperrors.ErrInvalidParameter},
		{"rate above cap", operator, func(in *CreateLoanInput) { in.InterestRateBps = MaxInterestRateBps + 1 }, apperrors.ErrInvalidParameter},
		{"max uint32 rate", operator, func(in *CreateLoanInput) {
			in.InterestRateBps, in.CompoundingPeriodsPerYear, in.DurationSeconds = 4294967295, 8760, MaxDurationSeconds
		}, apperrors.ErrInvalidParameter},
		{"repayment wider than column", operator, func(in *CreateLoanInput) {
			in.TotalAmount = decimal.New(1, 64)
			in.InterestRateBps, in.DurationSeconds = 10_000, MaxDurationSeconds
		}, apperrors.ErrInvalidParameter},
		{"zero compounding", operator, func(in *CreateLoanInput) { in.CompoundingPeriodsPerYear = 0 }, apperrors.ErrInvalidParameter},
		{"compounding too fine", operator, func(in *CreateLoanInput) { in.CompoundingPeriodsPerYear = MaxCompoundingPeriodsPerYear + 1 }, apperrors.ErrInvalidParameter},
		{"zero duration", operator, func(in *CreateLoanInput) { in.DurationSeconds = 0 }, apperrors.ErrInvalidParameter},
		{"threshold above 100", operator, func(in *CreateLoanInput) { in.ThresholdOverride = 101 }, apperrors.ErrInvalidParameter},
		{"unsupported asset", operator, func(in *CreateLoanInput) { in.Asset = "doge" }, apperrors.ErrUnsupportedAsset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := h.uc.CreateLoan(ctx, tc.caller, in)
			testutil.AssertAppError(t, err, tc.want)
		})
	}

	var n int64
	h.db.Model(&domain.Loan{}).Count(&n)
	if n != 0 {
		t.Fatalf("rejected creates must not persist, got %d loans", n)
	}
}

func TestInvestFundRepay_SinglePosition(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 30)
	h.fund(t, "alice", 300)
	h.fund(t, "bob", 700)

	res, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(300))
	testutil.AssertNoError(t, err)
	if !res.Funded || res.PositionID != 1 || !res.Accepted.Equal(dec(300)) {
		t.Fatalf("unexpected investment result: %+v", res)
	}
	if res.Loan.State != string(domain.StateFunded) || res.Loan.EndTime == nil {
		t.Fatalf("loan should be funded with an end time: %+v", res.Loan)
	}
	if want := t0.Add(time.Duration(year) * time.Second); !res.Loan.EndTime.Equal(want) {
		t.Fatalf("EndTime = %v, want %v", res.Loan.EndTime, want)
	}
	if h.balance(t, "alice") != 0 || h.balance(t, pool) != 300 {
		t.Fatalf("principal not pulled into pool")
	}

	_, err = h.uc.AcceptInvestment(ctx, "bob", l.ID, dec(700))
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)
	if h.balance(t, "bob") != 700 {
		t.Fatalf("rejected investment moved funds")
	}

	h.clock.Advance(30 * 24 * time.Hour)
	h.fund(t, operator, 315)
	out, err := h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertNoError(t, err)
	if out.Loan.State != string(domain.StateRepaid) || !out.Loan.TotalRepayment.Equal(dec(315)) {
		t.Fatalf("unexpected repaid loan: %+v", out.Loan)
	}
	if len(out.Report.Paid) != 1 || !out.Report.Paid[0].Amount.Equal(dec(315)) || !out.Report.Dust.IsZero() {
		t.Fatalf("unexpected report: %+v", out.Report)
	}
	if h.balance(t, "alice") != 315 || h.balance(t, operator) != 0 || h.balance(t, pool) != 300 {
		t.Fatalf("repayment not distributed")
	}

	p, err := h.uc.GetPosition(ctx, res.PositionID)
	testutil.AssertNoError(t, err)
	if !p.Withdrawn || p.WithdrawnAt == nil || !p.WithdrawnAt.Equal(h.clock.Now()) {
		t.Fatalf("position should be settled at repay time: %+v", p)
	}

	st, err := h.uc.SettlementStatus(ctx, l.ID)
	testutil.AssertNoError(t, err)
	if !st.Repaid || st.Defaulted || !st.TotalRepayment.Equal(dec(315)) {
		t.Fatalf("unexpected settlement: %+v", st)
	}

	_, err = h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)
}

func TestRepay_ProRataWithDust(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 100)
	h.fund(t, "alice", 333)
	h.fund(t, "bob", 667)

	res, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(333))
	testutil.AssertNoError(t, err)
	if res.Funded {
		t.Fatalf("33%% must not fund a 100%% threshold loan")
	}
	fs, err := h.uc.FundingStatus(ctx, l.ID)
	testutil.AssertNoError(t, err)
	if fs.FundingPct != 33 || !fs.Remaining.Equal(dec(667)) || fs.Funded {
		t.Fatalf("unexpected funding status: %+v", fs)
	}
	res, err = h.uc.AcceptInvestment(ctx, "bob", l.ID, dec(667))
	testutil.AssertNoError(t, err)
	if !res.Funded {
		t.Fatalf("loan should be funded")
	}

	h.fund(t, operator, 1051)
	out, err := h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertNoError(t, err)
	if !out.Report.TotalRepayment.Equal(dec(1051)) || !out.Report.Distributed.Equal(dec(1050)) || !out.Report.Dust.Equal(dec(1)) {
		t.Fatalf("unexpected report: %+v", out.Report)
	}
	if h.balance(t, "alice") != 349 || h.balance(t, "bob") != 701 {
		t.Fatalf("payouts alice=%d bob=%d", h.balance(t, "alice"), h.balance(t, "bob"))
	}
	// principal plus dust stays in the pool
	if h.balance(t, pool) != 1001 {
		t.Fatalf("pool = %d, want 1001", h.balance(t, pool))
	}

	history, err := h.uc.FundingHistory(ctx, l.ID)
	testutil.AssertNoError(t, err)
	if len(history) != 2 || history[0].Owner != "alice" || history[1].Owner != "bob" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestAcceptInvestment_ClampsToRemaining(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 100)
	h.fund(t, "alice", 600)
	h.fund(t, "bob", 600)

	_, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(600))
	testutil.AssertNoError(t, err)
	res, err := h.uc.AcceptInvestment(ctx, "bob", l.ID, dec(600))
	testutil.AssertNoError(t, err)
	if !res.Accepted.Equal(dec(400)) || !res.Funded {
		t.Fatalf("want 400 accepted and funded, got %+v", res)
	}
	if !res.Loan.CurrentAmount.Equal(dec(1000)) || !res.Loan.TotalInvested.Equal(dec(1000)) {
		t.Fatalf("loan over-funded: %+v", res.Loan)
	}
	if h.balance(t, "bob") != 200 {
		t.Fatalf("only the accepted amount may be pulled, bob = %d", h.balance(t, "bob"))
	}
}

func TestAcceptInvestment_Rejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 50)

	_, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, decimal.Zero)
	testutil.AssertAppError(t, err, apperrors.ErrZeroAmount)
	_, err = h.uc.AcceptInvestment(ctx, "", l.ID, dec(1))
	testutil.AssertAppError(t, err, apperrors.ErrInvalidInput)
	_, err = h.uc.AcceptInvestment(ctx, "alice", 99, dec(1))
	testutil.AssertAppError(t, err, apperrors.ErrLoanNotFound)
}

func TestAcceptInvestment_PullFailureRollsBack(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 30)
	testutil.AssertNoError(t, h.funds.Deposit(ctx, "usdc", "alice", dec(500)))

	// no allowance granted
	_, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(500))
	testutil.AssertAppError(t, err, apperrors.ErrInsufficientAllowance)

	got, err := h.uc.Get(ctx, l.ID)
	testutil.AssertNoError(t, err)
	if !got.CurrentAmount.IsZero() || got.State != string(domain.StateCreated) {
		t.Fatalf("loan changed after failed pull: %+v", got)
	}
	history, _ := h.uc.FundingHistory(ctx, l.ID)
	if len(history) != 0 {
		t.Fatalf("position persisted after failed pull")
	}

	// the failed attempt must not burn a position id
	testutil.AssertNoError(t, h.funds.Approve(ctx, "usdc", "alice", pool, dec(500)))
	res, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(500))
	testutil.AssertNoError(t, err)
	if res.PositionID != 1 {
		t.Fatalf("position id = %d, want 1", res.PositionID)
	}
}

func TestAcceptInvestment_ReentrantCalloutIsRejected(t *testing.T) {
	var h *harness
	var loanID uint64
	var reentryErr error
	attempts := 0
	h = newHarness(t, func(r uow.Repos) uow.Repos {
		base := r.Funds
		r.Funds = &fundsmock.Ledger{
			PullFn: func(ctx context.Context, asset, owner, spender, to string, amount decimal.Decimal) error {
				attempts++
				if attempts == 1 {
					// the value-transfer callout tries to invest again mid-operation
					_, reentryErr = h.uc.AcceptInvestment(ctx, "mallory", loanID, dec(1))
					return reentryErr
				}
				return base.Pull(ctx, asset, owner, spender, to, amount)
			},
		}
		return r
	})
	ctx := context.Background()
	loanID = h.create(t, 1000, 30).ID
	h.fund(t, "alice", 300)

	_, err := h.uc.AcceptInvestment(ctx, "alice", loanID, dec(300))
	testutil.AssertAppError(t, err, apperrors.ErrReentrantCall)
	if !errors.Is(reentryErr, apperrors.ErrReentrantCall) {
		t.Fatalf("inner call should be rejected as re-entrant, got %v", reentryErr)
	}

	got, _ := h.uc.Get(ctx, loanID)
	if !got.CurrentAmount.IsZero() {
		t.Fatalf("outer operation must roll back, current = %s", got.CurrentAmount)
	}

	// the guard was released, so a fresh top-level call goes through
	res, err := h.uc.AcceptInvestment(ctx, "alice", loanID, dec(300))
	testutil.AssertNoError(t, err)
	if !res.Funded {
		t.Fatalf("retry should fund the loan: %+v", res)
	}
}

func TestGuard_RejectsCallsFromHeldContext(t *testing.T) {
	h := newHarness(t, nil)
	held, release, err := h.guard.Enter(context.Background())
	testutil.AssertNoError(t, err)
	defer release()

	_, err = h.uc.CreateLoan(held, operator, CreateLoanInput{
		Asset: "usdc", TotalAmount: dec(1), InterestRateBps: 1,
		CompoundingPeriodsPerYear: 1, DurationSeconds: 1,
	})
	testutil.AssertAppError(t, err, apperrors.ErrReentrantCall)
}

func TestRepay_SkipsFailingPosition(t *testing.T) {
	failTo := "bob"
	h := newHarness(t, func(r uow.Repos) uow.Repos {
		savepoint := r.Savepoint
		r.Savepoint = func(ctx context.Context, fn func(uow.Repos) error) error {
			return savepoint(ctx, func(sp uow.Repos) error {
				base := sp.Funds
				sp.Funds = &fundsmock.Ledger{
					TransferFn: func(ctx context.Context, asset, from, to string, amount decimal.Decimal) error {
						if to == failTo {
							return errors.New("recipient rejected transfer")
						}
						return base.Transfer(ctx, asset, from, to, amount)
					},
				}
				return fn(sp)
			})
		}
		return r
	})
	ctx := context.Background()
	l := h.create(t, 1000, 100)
	h.fund(t, "alice", 333)
	h.fund(t, "bob", 667)
	_, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(333))
	testutil.AssertNoError(t, err)
	bobRes, err := h.uc.AcceptInvestment(ctx, "bob", l.ID, dec(667))
	testutil.AssertNoError(t, err)

	h.fund(t, operator, 1051)
	out, err := h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertNoError(t, err)
	if len(out.Report.Paid) != 1 || len(out.Report.Skipped) != 1 {
		t.Fatalf("unexpected report: %+v", out.Report)
	}
	if out.Report.Skipped[0].PositionID != bobRes.PositionID {
		t.Fatalf("skipped = %+v", out.Report.Skipped)
	}
	if h.balance(t, "alice") != 349 || h.balance(t, "bob") != 0 {
		t.Fatalf("alice=%d bob=%d", h.balance(t, "alice"), h.balance(t, "bob"))
	}
	// the skipped share stays in the pool with the principal and dust
	if h.balance(t, pool) != 1702 {
		t.Fatalf("pool = %d, want 1702", h.balance(t, pool))
	}

	p, err := h.uc.GetPosition(ctx, bobRes.PositionID)
	testutil.AssertNoError(t, err)
	if p.Withdrawn {
		t.Fatalf("skipped position must stay open")
	}
	if got, _ := h.uc.Get(ctx, l.ID); got.State != string(domain.StateRepaid) {
		t.Fatalf("loan should be repaid despite the skip, got %s", got.State)
	}
}

func TestRepay_PullFailureRollsBack(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 30)
	h.fund(t, "alice", 300)
	_, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(300))
	testutil.AssertNoError(t, err)

	h.fund(t, operator, 100) // short of the 315 owed
	_, err = h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrInsufficientAllowance)

	got, _ := h.uc.Get(ctx, l.ID)
	if got.State != string(domain.StateFunded) || !got.TotalRepayment.IsZero() {
		t.Fatalf("loan changed after failed repay: %+v", got)
	}
}

func TestDefaultThenRepay(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	l := h.create(t, 1000, 30)
	h.fund(t, "alice", 300)
	_, err := h.uc.AcceptInvestment(ctx, "alice", l.ID, dec(300))
	testutil.AssertNoError(t, err)

	_, err = h.uc.MarkDefaulted(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotYetExpired)

	// exactly at EndTime the loan is still live
	h.clock.Advance(time.Duration(year) * time.Second)
	_, err = h.uc.MarkDefaulted(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotYetExpired)

	h.clock.Advance(time.Second)
	_, err = h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrAlreadyExpired)

	_, err = h.uc.MarkDefaulted(ctx, "alice", l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrForbidden)

	d, err := h.uc.MarkDefaulted(ctx, operator, l.ID)
	testutil.AssertNoError(t, err)
	if d.State != string(domain.StateDefaulted) {
		t.Fatalf("state = %s", d.State)
	}

	_, err = h.uc.Repay(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)
	_, err = h.uc.MarkDefaulted(ctx, operator, l.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)
}

func TestCancelLoan(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	open := h.create(t, 1000, 30)
	c, err := h.uc.CancelLoan(ctx, operator, open.ID)
	testutil.AssertNoError(t, err)
	if c.State != string(domain.StateCancelled) {
		t.Fatalf("state = %s", c.State)
	}
	_, err = h.uc.AcceptInvestment(ctx, "alice", open.ID, dec(10))
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)
	_, err = h.uc.CancelLoan(ctx, operator, open.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)

	funded := h.create(t, 1000, 30)
	h.fund(t, "alice", 300)
	_, err = h.uc.AcceptInvestment(ctx, "alice", funded.ID, dec(300))
	testutil.AssertNoError(t, err)
	_, err = h.uc.CancelLoan(ctx, operator, funded.ID)
	testutil.AssertAppError(t, err, apperrors.ErrNotInExpectedState)

	_, err = h.uc.CancelLoan(ctx, operator, 99)
	testutil.AssertAppError(t, err, apperrors.ErrLoanNotFound)
}

func TestReads_NotFound(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.uc.Get(ctx, 1)
	testutil.AssertAppError(t, err, apperrors.ErrLoanNotFound)
	_, err = h.uc.FundingStatus(ctx, 1)
	testutil.AssertAppError(t, err, apperrors.ErrLoanNotFound)
	_, err = h.uc.SettlementStatus(ctx, 1)
	testutil.AssertAppError(t, err, apperrors.ErrLoanNotFound)
	_, err = h.uc.FundingHistory(ctx, 1)
	testutil.AssertAppError(t, err, apperrors.ErrLoanNotFound)
	_, err = h.uc.GetPosition(ctx, 1)
	testutil.AssertAppError(t, err, apperrors.ErrPositionNotFound)
}
