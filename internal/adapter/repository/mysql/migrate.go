package mysql

import (
	"pooled-lending/internal/domain/loan"
	"pooled-lending/internal/domain/position"
	"pooled-lending/internal/domain/registry"

	"gorm.io/gorm"
)

// Models lists every table owned by the service.
func Models() []any {
	return []any{
		&loan.Loan{},
		&position.Position{},
		&registry.SupportedAsset{},
		&registry.Settings{},
		&Balance{},
		&Allowance{},
		&JournalEntry{},
		&Sequence{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
