package models

import (
	"time"
)

// User is a registered tournament player. OsuID is the identity anchor
// issued by osu!; Username mirrors the osu! name and is refreshed on login.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OsuID       int64     `gorm:"column:osuid;uniqueIndex;not null" json:"osuid"`
	Username    string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	AvatarURL   string    `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	CoverURL    string    `gorm:"column:cover_url" json:"cover_url,omitempty"`
	CountryCode string    `gorm:"column:country_code;size:8" json:"country_code"`
	PP          float64   `gorm:"column:pp;not null" json:"pp"`
	GlobalRank  int64     `gorm:"column:global_rank;not null" json:"global_rank"`
	CountryRank int64     `gorm:"column:country_rank;not null" json:"country_rank"`
	UserState   UserState `gorm:"column:user_state;type:varchar(16);not null" json:"userState"`
	Approved    bool      `gorm:"not null" json:"approved"`
	Seed        int       `gorm:"not null" json:"seed"`
	Seasonal    Season    `gorm:"type:varchar(8);not null" json:"seasonal"`

	Groups     []UserGroup `gorm:"many2many:user_group_members" json:"-"`
	UserGroups []uint      `gorm:"-" json:"userGroups"`

	// Read-only associations, owned by the match scheduling side.
	SoloRedPlayer  []MultiplayerSoloRoom `gorm:"foreignKey:RedPlayerID" json:"SoloRedPlayer,omitempty"`
	SoloBluePlayer []MultiplayerSoloRoom `gorm:"foreignKey:BluePlayerID" json:"SoloBluePlayer,omitempty"`
	Teams          []Team                `gorm:"many2many:team_members" json:"teams,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ResolveGroups flattens the preloaded group memberships into UserGroups.
func (u *User) ResolveGroups() {
	u.UserGroups = make([]uint, 0, len(u.Groups))
	for _, g := range u.Groups {
		u.UserGroups = append(u.UserGroups, g.ID)
	}
}

// UserGroup is a named set of players (staff, mappool testers, ...).
type UserGroup struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}
