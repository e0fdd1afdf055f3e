package services

import (
	"context"
	"errors"

	"tournament-registration/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ConfigService struct {
	DB *gorm.DB
}

func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{DB: db}
}

// ConfigInput is the body of a config replacement. Every field is required.
type ConfigInput struct {
	TournamentName       *string          `json:"tournament_name" validate:"required,min=1"`
	MaxPPForRegistration *float64         `json:"max_pp_for_registration" validate:"required,min=0"`
	MinPPForRegistration *float64         `json:"min_pp_for_registration" validate:"required,min=0"`
	CurrentSeasonal      *models.Season   `json:"current_seasonal" validate:"required,season"`
	CurrentCategory      *models.Category `json:"current_category" validate:"required,category"`
	CanRegister          *bool            `json:"canRegister" validate:"required"`
}

// Get returns the singleton config.
func (s *ConfigService) Get(ctx context.Context) (*models.TournamentConfig, error) {
	var cfg models.TournamentConfig
	err := s.DB.WithContext(ctx).First(&cfg, models.TournamentConfigID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "tournament config", Key: "1"}
	}
	if err != nil {
		return nil, persistenceErr("load tournament config", err)
	}
	return &cfg, nil
}

// Put validates in and creates or replaces the singleton config.
func (s *ConfigService) Put(ctx context.Context, in ConfigInput) (*models.TournamentConfig, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	var cfg models.TournamentConfig
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&cfg, models.TournamentConfigID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		cfg.ID = models.TournamentConfigID
		cfg.TournamentName = *in.TournamentName
		cfg.MaxPPForRegistration = *in.MaxPPForRegistration
		cfg.MinPPForRegistration = *in.MinPPForRegistration
		cfg.CurrentSeasonal = *in.CurrentSeasonal
		cfg.CurrentCategory = *in.CurrentCategory
		cfg.CanRegister = *in.CanRegister
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&cfg).Error
		}
		return tx.Save(&cfg).Error
	})
	if err != nil {
		log.Error().Err(err).Msg("[CONFIG] update failed")
		return nil, persistenceErr("save tournament config", err)
	}
	log.Info().Str("tournament", cfg.TournamentName).Str("seasonal", string(cfg.CurrentSeasonal)).
		Str("category", string(cfg.CurrentCategory)).Bool("can_register", cfg.CanRegister).
		Msg("[CONFIG] tournament config saved")
	return &cfg, nil
}

// Init creates the default config when none exists and returns the
// current row either way.
func (s *ConfigService) Init(ctx context.Context) (*models.TournamentConfig, error) {
	cfg, err := s.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	def := models.DefaultTournamentConfig()
	if err := s.DB.WithContext(ctx).Create(&def).Error; err != nil {
		return nil, persistenceErr("create default tournament config", err)
	}
	log.Info().Str("tournament", def.TournamentName).Msg("[CONFIG] default tournament config created")
	return &def, nil
}
