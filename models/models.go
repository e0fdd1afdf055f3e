package models

// All lists every model handled by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&UserGroup{},
		&Team{},
		&User{},
		&MultiplayerSoloRoom{},
		&TournamentConfig{},
	}
}
