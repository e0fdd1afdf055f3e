package models

import "time"

// MultiplayerSoloRoom is a scheduled 1v1 lobby between two players.
type MultiplayerSoloRoom struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Seasonal     Season     `gorm:"type:varchar(8)" json:"seasonal"`
	Category     Category   `gorm:"type:varchar(8)" json:"category"`
	RedPlayerID  *uint      `gorm:"index" json:"red_player_id,omitempty"`
	BluePlayerID *uint      `gorm:"index" json:"blue_player_id,omitempty"`
	RedScore     int        `json:"red_score"`
	BlueScore    int        `json:"blue_score"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	MpLink       string     `json:"mp_link,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Team groups players for team-format seasons.
type Team struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Seasonal  Season    `gorm:"type:varchar(8)" json:"seasonal"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
