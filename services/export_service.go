package services

import (
	"context"
	"fmt"
	"time"

	"tournament-registration/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ObjectUploader stores an object and returns where it can be fetched.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ExportedPlayer is one row of a registration snapshot.
type ExportedPlayer struct {
	OsuID       int64            `json:"osuid"`
	Username    string           `json:"username"`
	CountryCode string           `json:"country_code"`
	PP          float64          `json:"pp"`
	GlobalRank  int64            `json:"global_rank"`
	CountryRank int64            `json:"country_rank"`
	UserState   models.UserState `json:"userState"`
	Approved    bool             `json:"approved"`
	Seed        int              `json:"seed"`
}

// RegistrationSnapshot is the document written by Export.
type RegistrationSnapshot struct {
	Tournament  string           `json:"tournament"`
	Seasonal    models.Season    `json:"seasonal"`
	Category    models.Category  `json:"category"`
	GeneratedAt time.Time        `json:"generated_at"`
	Players     []ExportedPlayer `json:"players"`
}

// ExportResult tells the caller where the snapshot went.
type ExportResult struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Players int    `json:"players"`
}

// ExportService publishes registration snapshots for tournament staff.
type ExportService struct {
	Users    *UserService
	Config   *ConfigService
	Uploader ObjectUploader
	Now      func() time.Time
}

func NewExportService(users *UserService, cfg *ConfigService, uploader ObjectUploader) *ExportService {
	return &ExportService{Users: users, Config: cfg, Uploader: uploader, Now: time.Now}
}

// Export writes the active players of the current season to object storage.
func (s *ExportService) Export(ctx context.Context, approvedOnly bool) (*ExportResult, error) {
	if s.Uploader == nil {
		return nil, &ConfigurationError{Missing: []string{"R2_BUCKET_NAME", "R2_ACCESS_KEY_ID"}}
	}

	cfg, err := s.Config.Get(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.List(ctx, ListFilter{
		Seasonal:     cfg.CurrentSeasonal,
		ApprovedOnly: approvedOnly,
		ActiveOnly:   true,
	})
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	snap := RegistrationSnapshot{
		Tournament:  cfg.TournamentName,
		Seasonal:    cfg.CurrentSeasonal,
		Category:    cfg.CurrentCategory,
		GeneratedAt: now,
		Players:     make([]ExportedPlayer, 0, len(users)),
	}
	for _, u := range users {
		snap.Players = append(snap.Players, ExportedPlayer{
			OsuID:       u.OsuID,
			Username:    u.Username,
			CountryCode: u.CountryCode,
			PP:          u.PP,
			GlobalRank:  u.GlobalRank,
			CountryRank: u.CountryRank,
			UserState:   u.UserState,
			Approved:    u.Approved,
			Seed:        u.Seed,
		})
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	prefix := cfg.Slug
	if prefix == "" {
		prefix = "tournament"
	}
	key := fmt.Sprintf("exports/%s/%s/%s-%s.json", prefix, cfg.CurrentSeasonal, now.Format("20060102T150405Z"), uuid.NewString()[:8])
	url, err := s.Uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("[EXPORT] upload failed")
		return nil, persistenceErr("upload snapshot", err)
	}

	log.Info().Str("key", key).Int("players", len(snap.Players)).Msg("[EXPORT] registration snapshot uploaded")
	return &ExportResult{Key: key, URL: url, Players: len(snap.Players)}, nil
}
