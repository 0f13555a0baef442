package registry

import "time"

// SupportedAsset is one allow-listed asset identifier.
type SupportedAsset struct {
	Asset     string    `gorm:"primaryKey;size:64" json:"asset"`
	CreatedAt time.Time `json:"created_at"`
}

func (SupportedAsset) TableName() string { return "supported_assets" }

// SettingsID is the primary key of the single settings row.
const SettingsID = 1

// Settings holds ledger-wide tunables.
type Settings struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	DefaultThresholdPct uint32    `gorm:"not null" json:"default_threshold_pct"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Settings) TableName() string { return "ledger_settings" }
