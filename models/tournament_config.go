package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// TournamentConfigID is the primary key of the singleton config row.
const TournamentConfigID = 1

// TournamentConfig holds the settings of the running tournament edition.
type TournamentConfig struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	TournamentName       string    `gorm:"column:tournament_name;not null" json:"tournament_name"`
	Slug                 string    `gorm:"size:128" json:"slug"`
	MaxPPForRegistration float64   `gorm:"column:max_pp_for_registration" json:"max_pp_for_registration"`
	MinPPForRegistration float64   `gorm:"column:min_pp_for_registration" json:"min_pp_for_registration"`
	CurrentSeasonal      Season    `gorm:"column:current_seasonal;type:varchar(8);not null" json:"current_seasonal"`
	CurrentCategory      Category  `gorm:"column:current_category;type:varchar(8);not null" json:"current_category"`
	CanRegister          bool      `gorm:"column:can_register;not null" json:"canRegister"`
	CreatedAt            time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt            time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// BeforeSave keeps Slug in step with TournamentName.
func (c *TournamentConfig) BeforeSave(tx *gorm.DB) error {
	c.Slug = slug.Make(c.TournamentName)
	return nil
}

// DefaultTournamentConfig is the row created by the init endpoint.
func DefaultTournamentConfig() TournamentConfig {
	return TournamentConfig{
		ID:                   TournamentConfigID,
		TournamentName:       "Astar Cup",
		MaxPPForRegistration: 1000,
		MinPPForRegistration: 0,
		CurrentSeasonal:      SeasonS1,
		CurrentCategory:      CategoryQUA,
		CanRegister:          false,
	}
}
