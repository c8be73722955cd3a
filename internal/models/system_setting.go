package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting holds a runtime switch, e.g. feature.cold_start_population.
type SystemSetting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"-"`

	Key string `gorm:"type:varchar(120);not null;uniqueIndex" json:"key"`

	// JSON value; switches store a bare true/false.
	Value datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`

	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime;index" json:"updatedAt"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
