// services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tournament-registration/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileColumns are refreshed from osu! on every login. State, approval,
// seed and season are administrative and never touched by the login upsert.
var profileColumns = []string{
	"username", "avatar_url", "cover_url", "country_code",
	"pp", "global_rank", "country_rank", "updated_at",
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// CreateOrUpdateUser upserts the local user for a verified osu! identity.
// New users are stamped with the season of the current tournament config.
func (s *UserService) CreateOrUpdateUser(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	seasonal, err := s.currentSeason(ctx)
	if err != nil {
		return nil, err
	}

	identity.Username = normalizeUsername(identity.Username)
	user := models.User{
		OsuID:       identity.ExternalID,
		Username:    identity.Username,
		AvatarURL:   derefString(identity.AvatarURL),
		CoverURL:    derefString(identity.CoverURL),
		CountryCode: identity.CountryCode,
		PP:          identity.PP,
		GlobalRank:  derefInt(identity.GlobalRank),
		CountryRank: derefInt(identity.CountryRank),
		UserState:   models.UserStateActive,
		Approved:    false,
		Seed:        0,
		Seasonal:    seasonal,
	}

	var existed int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := releaseUsername(tx, identity.Username, identity.ExternalID); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("osuid = ?", identity.ExternalID).Count(&existed).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "osuid"}},
			DoUpdates: clause.AssignmentColumns(profileColumns),
		}).Create(&user).Error
	})
	if err != nil {
		log.Error().Err(err).Int64("osuid", identity.ExternalID).Str("username", identity.Username).
			Msg("[USER] upsert failed")
		return nil, persistenceErr("upsert user", err)
	}

	if existed == 0 {
		userUpserts.WithLabelValues("created").Inc()
		log.Info().Int64("osuid", identity.ExternalID).Str("username", identity.Username).Str("seasonal", string(seasonal)).
			Msg("[USER] registered new user")
	} else {
		userUpserts.WithLabelValues("updated").Inc()
	}

	return s.FindByExternalID(ctx, identity.ExternalID)
}

// releaseUsername frees name when a different osu! account still holds it
// locally. osu! names are unique upstream, so the local holder is stale (it
// was renamed on osu!) and gets "<name>#<osuid>" until its next login.
func releaseUsername(tx *gorm.DB, name string, osuID int64) error {
	var holder models.User
	err := tx.Where("username = ? AND osuid <> ?", name, osuID).Take(&holder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	renamed := holder.Username + "#" + strconv.FormatInt(holder.OsuID, 10)
	log.Warn().Int64("osuid", holder.OsuID).Str("from", holder.Username).Str("to", renamed).
		Msg("[USER] username taken by stale record, renaming it")
	return tx.Model(&models.User{}).Where("id = ?", holder.ID).Update("username", renamed).Error
}

func (s *UserService) currentSeason(ctx context.Context) (models.Season, error) {
	var cfg models.TournamentConfig
	err := s.DB.WithContext(ctx).First(&cfg, models.TournamentConfigID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Seasons[0], nil
	}
	if err != nil {
		return "", persistenceErr("load tournament config", err)
	}
	if !cfg.CurrentSeasonal.Valid() {
		return models.Seasons[0], nil
	}
	return cfg.CurrentSeasonal, nil
}

func (s *UserService) withAssociations(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("Groups").
		Preload("SoloRedPlayer").
		Preload("SoloBluePlayer").
		Preload("Teams")
}

// FindByExternalID loads a user with its associations by osu! id.
func (s *UserService) FindByExternalID(ctx context.Context, osuID int64) (*models.User, error) {
	var u models.User
	err := s.withAssociations(ctx).Where("osuid = ?", osuID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "user", Key: strconv.FormatInt(osuID, 10)}
	}
	if err != nil {
		return nil, persistenceErr("find user by osuid", err)
	}
	u.ResolveGroups()
	return &u, nil
}

// FindByUsername matches the exact name first, then falls back to a
// case-insensitive match. Both sides are folded by the database so the
// fallback agrees with whatever LOWER the backend implements (ASCII-only
// on SQLite).
func (s *UserService) FindByUsername(ctx context.Context, name string) (*models.User, error) {
	name = normalizeUsername(name)
	var u models.User
	err := s.withAssociations(ctx).Where("username = ?", name).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.withAssociations(ctx).Where("LOWER(username) = LOWER(?)", name).First(&u).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "user", Key: name}
	}
	if err != nil {
		return nil, persistenceErr("find user by username", err)
	}
	u.ResolveGroups()
	return &u, nil
}

// normalizeUsername puts names into NFC so composed and decomposed
// spellings of the same osu! name compare equal.
func normalizeUsername(name string) string {
	return norm.NFC.String(name)
}

// UserPatch is a sparse update; nil fields are left unchanged.
type UserPatch struct {
	Username    *string           `json:"username" validate:"omitempty,min=1,max=64"`
	AvatarURL   *string           `json:"avatar_url"`
	CoverURL    *string           `json:"cover_url"`
	CountryCode *string           `json:"country_code" validate:"omitempty,max=8"`
	PP          *float64          `json:"pp" validate:"omitempty,min=0"`
	GlobalRank  *int64            `json:"global_rank" validate:"omitempty,min=0"`
	CountryRank *int64            `json:"country_rank" validate:"omitempty,min=0"`
	UserState   *models.UserState `json:"userState" validate:"omitempty,user_state"`
	Approved    *bool             `json:"approved"`
	Seed        *int              `json:"seed" validate:"omitempty,min=0"`
	Seasonal    *models.Season    `json:"seasonal" validate:"omitempty,season"`
}

func (p *UserPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Username != nil {
		cols["username"] = *p.Username
	}
	if p.AvatarURL != nil {
		cols["avatar_url"] = *p.AvatarURL
	}
	if p.CoverURL != nil {
		cols["cover_url"] = *p.CoverURL
	}
	if p.CountryCode != nil {
		cols["country_code"] = *p.CountryCode
	}
	if p.PP != nil {
		cols["pp"] = *p.PP
	}
	if p.GlobalRank != nil {
		cols["global_rank"] = *p.GlobalRank
	}
	if p.CountryRank != nil {
		cols["country_rank"] = *p.CountryRank
	}
	if p.UserState != nil {
		cols["user_state"] = *p.UserState
	}
	if p.Approved != nil {
		cols["approved"] = *p.Approved
	}
	if p.Seed != nil {
		cols["seed"] = *p.Seed
	}
	if p.Seasonal != nil {
		cols["seasonal"] = *p.Seasonal
	}
	return cols
}

// UpdateProfile applies patch to the user identified by osuID. Unlike the
// login upsert it may change administrative fields.
func (s *UserService) UpdateProfile(ctx context.Context, osuID int64, patch UserPatch) (*models.User, error) {
	if err := validateStruct(&patch); err != nil {
		return nil, err
	}

	var u models.User
	err := s.DB.WithContext(ctx).Where("osuid = ?", osuID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "user", Key: strconv.FormatInt(osuID, 10)}
	}
	if err != nil {
		return nil, persistenceErr("load user for update", err)
	}

	if patch.Username != nil {
		name := normalizeUsername(*patch.Username)
		patch.Username = &name
	}
	if cols := patch.columns(); len(cols) > 0 {
		err := s.DB.WithContext(ctx).Model(&u).Updates(cols).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Warn().Int64("osuid", osuID).Str("username", derefString(patch.Username)).Msg("[USER] username already taken")
			return nil, &ValidationError{Field: "username", Reason: "username is already taken by another user"}
		}
		if err != nil {
			log.Error().Err(err).Int64("osuid", osuID).Msg("[USER] update failed")
			return nil, persistenceErr("update user", err)
		}
		log.Info().Int64("osuid", osuID).Int("fields", len(cols)).Msg("[USER] profile updated")
	}
	return s.FindByExternalID(ctx, osuID)
}

// ListFilter narrows List; zero values mean no filter.
type ListFilter struct {
	Seasonal     models.Season
	ApprovedOnly bool
	ActiveOnly   bool
}

// List returns users ordered by seed then pp, highest pp first.
func (s *UserService) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if f.Seasonal != "" {
		q = q.Where("seasonal = ?", f.Seasonal)
	}
	if f.ApprovedOnly {
		q = q.Where("approved = ?", true)
	}
	if f.ActiveOnly {
		q = q.Where("user_state = ?", models.UserStateActive)
	}
	var users []models.User
	if err := q.Order("seed ASC").Order("pp DESC").Find(&users).Error; err != nil {
		return nil, persistenceErr("list users", err)
	}
	return users, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// ParseOsuID parses a positive osu! user id.
func ParseOsuID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: "osuid", Reason: fmt.Sprintf("invalid osuid %q", raw)}
	}
	return id, nil
}
