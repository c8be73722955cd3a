package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func init() {
	// Ratings go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Movie is a catalog entry. Records read from the seed file carry ID 0;
// records read from the store always have a non-zero ID.
type Movie struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id,omitempty"`
	Name        string          `gorm:"type:varchar(300);not null;index" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Poster      string          `gorm:"type:text" json:"poster,omitempty"`
	Rating      decimal.Decimal `gorm:"type:numeric;not null;index" json:"rating"`
	ReleaseDate datatypes.Date  `gorm:"type:date;not null;index" json:"releaseDate"`
	Duration    int             `gorm:"not null;index" json:"duration"`
	CreatedAt   time.Time       `gorm:"type:timestamptz;autoCreateTime;index" json:"createdAt,omitzero"`
	UpdatedAt   time.Time       `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt,omitzero"`
}

func (Movie) TableName() string {
	return "movies"
}

// Stored reports whether the record came from the store.
func (m Movie) Stored() bool {
	return m.ID != 0
}

// ReleaseTime returns the release date as a UTC time at midnight.
func (m Movie) ReleaseTime() time.Time {
	return time.Time(m.ReleaseDate).UTC()
}

// NewDate truncates t to the calendar date in t's own location.
func NewDate(t time.Time) datatypes.Date {
	y, mo, d := t.Date()
	return datatypes.Date(time.Date(y, mo, d, 0, 0, 0, 0, time.UTC))
}
