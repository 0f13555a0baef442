package mysql

import (
	"context"
	"errors"
	"time"

	apperrors "pooled-lending/internal/errors"
	"pooled-lending/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Balance is the holding of one account in one asset.
type Balance struct {
	Account   string          `gorm:"primaryKey;size:128"`
	Asset     string          `gorm:"primaryKey;size:64"`
	Amount    decimal.Decimal `gorm:"type:decimal(65,0);not null"`
	UpdatedAt time.Time
}

func (Balance) TableName() string { return "balances" }

// Allowance is how much Spender may pull from Owner in Asset.
type Allowance struct {
	Owner     string          `gorm:"primaryKey;size:128"`
	Spender   string          `gorm:"primaryKey;size:128"`
	Asset     string          `gorm:"primaryKey;size:64"`
	Amount    decimal.Decimal `gorm:"type:decimal(65,0);not null"`
	UpdatedAt time.Time
}

func (Allowance) TableName() string { return "allowances" }

const (
	JournalDeposit  = "deposit"
	JournalTransfer = "transfer"
	JournalPull     = "pull"
)

// JournalEntry records every movement made through the balance ledger.
type JournalEntry struct {
	EntryID   string          `gorm:"primaryKey;type:char(32)"`
	Kind      string          `gorm:"size:16;not null"`
	Asset     string          `gorm:"size:64;not null;index"`
	From      string          `gorm:"column:from_account;size:128"`
	To        string          `gorm:"column:to_account;size:128;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(65,0);not null"`
	CreatedAt time.Time
}

func (JournalEntry) TableName() string { return "transfer_journal" }

// BalanceLedger is a gorm-backed value-transfer ledger. Bound to a
// transaction it moves funds atomically with the loan tables.
type BalanceLedger struct{ db *gorm.DB }

func NewBalanceLedger(db *gorm.DB) *BalanceLedger { return &BalanceLedger{db: db} }

func (b *BalanceLedger) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.db.WithContext(ctx).Transaction(fn)
}

// Deposit credits amount to account, creating value from outside the ledger.
func (b *BalanceLedger) Deposit(ctx context.Context, asset, account string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrZeroAmount
	}
	return b.tx(ctx, func(tx *gorm.DB) error {
		if err := credit(tx, asset, account, amount); err != nil {
			return err
		}
		return journal(tx, JournalDeposit, asset, "", account, amount)
	})
}

// Approve sets the allowance of spender over owner's asset, replacing any previous value.
func (b *BalanceLedger) Approve(ctx context.Context, asset, owner, spender string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperrors.ErrInvalidInput
	}
	a := Allowance{Owner: owner, Spender: spender, Asset: asset, Amount: amount}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "spender"}, {Name: "asset"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).
		Create(&a).Error
}

func (b *BalanceLedger) BalanceOf(ctx context.Context, asset, account string) (decimal.Decimal, error) {
	var bal Balance
	err := b.db.WithContext(ctx).Where("account = ? AND asset = ?", account, asset).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	return bal.Amount, err
}

func (b *BalanceLedger) AllowanceOf(ctx context.Context, asset, owner, spender string) (decimal.Decimal, error) {
	var a Allowance
	err := b.db.WithContext(ctx).
		Where("owner = ? AND spender = ? AND asset = ?", owner, spender, asset).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	return a.Amount, err
}

func (b *BalanceLedger) Transfer(ctx context.Context, asset, from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrZeroAmount
	}
	return b.tx(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, asset, from, amount); err != nil {
			return err
		}
		if err := credit(tx, asset, to, amount); err != nil {
			return err
		}
		return journal(tx, JournalTransfer, asset, from, to, amount)
	})
}

func (b *BalanceLedger) Pull(ctx context.Context, asset, owner, spender, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrZeroAmount
	}
	return b.tx(ctx, func(tx *gorm.DB) error {
		var a Allowance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner = ? AND spender = ? AND asset = ?", owner, spender, asset).
			First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && a.Amount.LessThan(amount)) {
			return apperrors.WithMessagef(apperrors.ErrInsufficientAllowance,
				"allowance of %s over %s is below %s %s", spender, owner, amount, asset)
		}
		if err != nil {
			return err
		}
		if err := debit(tx, asset, owner, amount); err != nil {
			return err
		}
		a.Amount = a.Amount.Sub(amount)
		if err := tx.Save(&a).Error; err != nil {
			return err
		}
		if err := credit(tx, asset, to, amount); err != nil {
			return err
		}
		return journal(tx, JournalPull, asset, owner, to, amount)
	})
}

func debit(tx *gorm.DB, asset, account string, amount decimal.Decimal) error {
	var bal Balance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account = ? AND asset = ?", account, asset).
		First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && bal.Amount.LessThan(amount)) {
		return apperrors.WithMessagef(apperrors.ErrInsufficientBalance,
			"balance of %s is below %s %s", account, amount, asset)
	}
	if err != nil {
		return err
	}
	bal.Amount = bal.Amount.Sub(amount)
	return tx.Save(&bal).Error
}

func credit(tx *gorm.DB, asset, account string, amount decimal.Decimal) error {
	var bal Balance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account = ? AND asset = ?", account, asset).
		First(&bal).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&Balance{Account: account, Asset: asset, Amount: amount}).Error
	case err != nil:
		return err
	}
	bal.Amount = bal.Amount.Add(amount)
	return tx.Save(&bal).Error
}

func journal(tx *gorm.DB, kind, asset, from, to string, amount decimal.Decimal) error {
	return tx.Create(&JournalEntry{
		EntryID: id.NewEntryID(),
		Kind:    kind,
		Asset:   asset,
		From:    from,
		To:      to,
		Amount:  amount,
	}).Error
}
