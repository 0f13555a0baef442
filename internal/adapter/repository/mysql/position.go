package mysql

import (
	"context"
	"time"

	positionDomain "pooled-lending/internal/domain/position"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PositionRepository struct{ db *gorm.DB }

func NewPositionRepository(db *gorm.DB) *PositionRepository { return &PositionRepository{db: db} }

func (r *PositionRepository) Create(ctx context.Context, p *positionDomain.Position) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextID(tx, seqPositions)
		if err != nil {
			return err
		}
		p.ID = id
		return tx.Create(p).Error
	})
}

func (r *PositionRepository) GetByID(ctx context.Context, id uint64) (*positionDomain.Position, error) {
	var out positionDomain.Position
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

func (r *PositionRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*positionDomain.Position, error) {
	var out positionDomain.Position
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *PositionRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]positionDomain.Position, error) {
	var out []positionDomain.Position
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

// MarkWithdrawn only touches rows still open, so a second call affects nothing.
func (r *PositionRepository) MarkWithdrawn(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&positionDomain.Position{}).
		Where("id = ? AND withdrawn = ?", id, false).
		Updates(map[string]any{"withdrawn": true, "withdrawn_at": at.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
