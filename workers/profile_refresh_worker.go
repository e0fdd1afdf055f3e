// workers/profile_refresh_worker.go
package workers

import (
	"context"
	"time"

	"tournament-registration/models"
	"tournament-registration/services"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileSource looks up public osu! profiles.
type ProfileSource interface {
	FetchUser(ctx context.Context, osuID int64) (*services.OsuUser, error)
}

// refreshColumns mirrors the login upsert. The username is left alone so a
// rename on osu! is picked up by the user's next login, which also resolves
// any local name clash.
var refreshColumns = []string{
	"avatar_url", "cover_url", "country_code",
	"pp", "global_rank", "country_rank", "updated_at",
}

// ProfileRefreshWorker re-reads the osu! profile of every active user of
// the current season so pp and ranks stay fresh between logins.
type ProfileRefreshWorker struct {
	db     *gorm.DB
	source ProfileSource
}

// RefreshResult counts the outcome of one pass.
type RefreshResult struct {
	Refreshed int
	Missing   int
	Failed    int
}

func NewProfileRefreshWorker(db *gorm.DB, source ProfileSource) *ProfileRefreshWorker {
	return &ProfileRefreshWorker{db: db, source: source}
}

// Run refreshes all candidates once. Individual failures are logged and
// counted, never returned; only failing to list candidates is an error.
func (w *ProfileRefreshWorker) Run(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult

	var users []models.User
	q := w.db.WithContext(ctx).Where("user_state = ?", models.UserStateActive)
	var cfg models.TournamentConfig
	if err := w.db.WithContext(ctx).First(&cfg, models.TournamentConfigID).Error; err == nil {
		q = q.Where("seasonal = ?", cfg.CurrentSeasonal)
	}
	if err := q.Order("id").Find(&users).Error; err != nil {
		return res, err
	}
	if len(users) == 0 {
		log.Debug().Msg("[REFRESH] no users to refresh")
		return res, nil
	}

	log.Info().Int("users", len(users)).Msg("[REFRESH] refreshing osu! profiles")
	start := time.Now()
	for _, u := range users {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		remote, err := w.source.FetchUser(ctx, u.OsuID)
		if services.IsNotFound(err) {
			res.Missing++
			log.Warn().Int64("osuid", u.OsuID).Str("username", u.Username).Msg("[REFRESH] user no longer exists on osu!")
			continue
		}
		if err != nil {
			res.Failed++
			log.Error().Err(err).Int64("osuid", u.OsuID).Msg("[REFRESH] profile lookup failed")
			continue
		}

		id := remote.Identity()
		local := models.User{
			OsuID:       u.OsuID,
			Username:    u.Username,
			AvatarURL:   valueOr(id.AvatarURL, u.AvatarURL),
			CoverURL:    valueOr(id.CoverURL, u.CoverURL),
			CountryCode: id.CountryCode,
			PP:          id.PP,
			GlobalRank:  intOr(id.GlobalRank),
			CountryRank: intOr(id.CountryRank),
			UserState:   u.UserState,
			Seasonal:    u.Seasonal,
		}
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "osuid"}},
			DoUpdates: clause.AssignmentColumns(refreshColumns),
		}).Create(&local).Error; err != nil {
			res.Failed++
			log.Error().Err(err).Int64("osuid", u.OsuID).Msg("[REFRESH] failed to store profile")
			continue
		}
		res.Refreshed++
	}

	log.Info().Int("refreshed", res.Refreshed).Int("missing", res.Missing).Int("failed", res.Failed).
		Dur("took", time.Since(start)).Msg("[REFRESH] pass complete")
	return res, nil
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func intOr(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
