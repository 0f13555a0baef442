package mysql

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	seqLoans     = "loans"
	seqPositions = "positions"
)

// Sequence is a named id counter. It is bumped in the inserting transaction,
// so a rollback hands the id back and ids stay dense from 1.
type Sequence struct {
	Name string `gorm:"primaryKey;size:32"`
	Last uint64 `gorm:"not null"`
}

func (Sequence) TableName() string { return "id_sequences" }

// nextID locks the named counter row, bumps it and returns the new value.
func nextID(tx *gorm.DB, name string) (uint64, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Sequence{Name: name}).Error; err != nil {
		return 0, err
	}
	var seq Sequence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, err
	}
	seq.Last++
	if err := tx.Model(&Sequence{}).Where("name = ?", name).Update("last", seq.Last).Error; err != nil {
		return 0, err
	}
	return seq.Last, nil
}
