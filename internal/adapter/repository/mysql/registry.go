package mysql

import (
	"context"
	"errors"

	registryDomain "pooled-lending/internal/domain/registry"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistryRepository struct{ db *gorm.DB }

func NewRegistryRepository(db *gorm.DB) *RegistryRepository { return &RegistryRepository{db: db} }

func (r *RegistryRepository) IsSupported(ctx context.Context, asset string) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&registryDomain.SupportedAsset{}).
		Where("asset = ?", asset).
		Count(&n)
	return n > 0, res.Error
}

// AddAsset is idempotent.
func (r *RegistryRepository) AddAsset(ctx context.Context, asset string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&registryDomain.SupportedAsset{Asset: asset}).Error
}

func (r *RegistryRepository) RemoveAsset(ctx context.Context, asset string) error {
	return r.db.WithContext(ctx).
		Where("asset = ?", asset).
		Delete(&registryDomain.SupportedAsset{}).Error
}

func (r *RegistryRepository) ListAssets(ctx context.Context) ([]registryDomain.SupportedAsset, error) {
	var out []registryDomain.SupportedAsset
	res := r.db.WithContext(ctx).Order("asset ASC").Find(&out)
	return out, res.Error
}

func (r *RegistryRepository) DefaultThreshold(ctx context.Context, fallback uint32) (uint32, error) {
	var s registryDomain.Settings
	res := r.db.WithContext(ctx).Where("id = ?", registryDomain.SettingsID).First(&s)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if res.Error != nil {
		return 0, res.Error
	}
	return s.DefaultThresholdPct, nil
}

func (r *RegistryRepository) SetDefaultThreshold(ctx context.Context, pct uint32) error {
	s := registryDomain.Settings{ID: registryDomain.SettingsID, DefaultThresholdPct: pct}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"default_threshold_pct", "updated_at"}),
		}).
		Create(&s).Error
}
