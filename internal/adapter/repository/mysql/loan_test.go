package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "pooled-lending/internal/domain/loan"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func makeLoan(total int64) *domain.Loan {
	return &domain.Loan{
		Asset:                     "usdc",
		TotalAmount:               decimal.NewFromInt(total),
		InterestRateBps:           500,
		CompoundingPeriodsPerYear: 12,
		DurationSeconds:           365 * 24 * 3600,
		ThresholdPct:              30,
		State:                     domain.StateCreated,
		LastUpdateTime:            time.Now().UTC(),
	}
}

func TestCreateAndGetByID(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	first := makeLoan(1000)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := makeLoan(2000)
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d,%d, want 1,2", first.ID, second.ID)
	}

	got, err := repo.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(2000)) || got.State != domain.StateCreated {
		t.Fatalf("unexpected loan: %+v", got)
	}
	if !got.CurrentAmount.IsZero() || got.StartTime != nil {
		t.Fatalf("new loan should be unfunded: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	_, err = repo.GetByIDForUpdate(context.Background(), 42)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSave_PersistsFunding(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan(1000)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	start := time.Now().UTC().Truncate(time.Second)
	end := start.Add(time.Duration(l.DurationSeconds) * time.Second)
	l.CurrentAmount = decimal.NewFromInt(300)
	l.TotalInvested = decimal.NewFromInt(300)
	l.State = domain.StateFunded
	l.StartTime, l.EndTime = &start, &end
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByIDForUpdate(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetByIDForUpdate: %v", err)
	}
	if got.State != domain.StateFunded || !got.CurrentAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("save not persisted: %+v", got)
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Fatalf("EndTime = %v, want %v", got.EndTime, end)
	}
}

func TestCreate_RolledBackIDIsReused(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := NewLoanRepository(tx).Create(ctx, makeLoan(500)); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel, got %v", err)
	}

	var n int64
	db.Model(&domain.Loan{}).Count(&n)
	if n != 0 {
		t.Fatalf("rollback failed; count = %d", n)
	}

	l := makeLoan(700)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID != 1 {
		t.Fatalf("id after rollback = %d, want 1", l.ID)
	}
}

func TestCreate_TakesIDFromCounter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Create(&Sequence{Name: seqLoans, Last: 41}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	l := makeLoan(100)
	if err := NewLoanRepository(db).Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID != 42 {
		t.Fatalf("id = %d, want 42", l.ID)
	}

	var seq Sequence
	if err := db.First(&seq, "name = ?", seqLoans).Error; err != nil || seq.Last != 42 {
		t.Fatalf("counter = %+v, %v", seq, err)
	}
}
