package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-registration/config"
	"tournament-registration/handlers"
	"tournament-registration/services"
	"tournament-registration/utils"
	"tournament-registration/workers"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenDatabase(cfg.Database.DSN(), cfg.Database.PoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}

	osu := services.NewOsuClient(services.OsuConfig{
		ClientID:     cfg.OsuClientID,
		ClientSecret: cfg.OsuClientSecret,
		RedirectURI:  cfg.OsuRedirectURI,
		BaseURL:      cfg.OsuBaseURL,
	}, services.WithHTTPClient(utils.HTTPClient))
	if cfg.OsuClientID == "" || cfg.OsuClientSecret == "" {
		log.Warn().Msg("OSU_CLIENT_ID or OSU_CLIENT_SECRET is not set, login will fail")
	}

	userService := services.NewUserService(db)
	configService := services.NewConfigService(db)

	var uploader services.ObjectUploader
	r2cfg := utils.R2Config{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		AccessKeySecret: cfg.R2.AccessKeySecret,
		Bucket:          cfg.R2.Bucket,
		CDNBaseURL:      cfg.R2.CDNBaseURL,
	}
	if r2cfg.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, r2cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize R2 client")
		}
		uploader = r2
	} else {
		log.Info().Msg("R2 is not configured, snapshot export is disabled")
	}
	exportService := services.NewExportService(userService, configService, uploader)

	app := handlers.NewApp(handlers.Dependencies{
		AuthURL:        osu,
		Login:          services.NewLoginOrchestrator(osu, userService),
		Sessions:       services.NewSessionCodec(cfg.Production()),
		Users:          userService,
		Configs:        configService,
		Exporter:       exportService,
		Lookup:         osu,
		AdminToken:     cfg.AdminToken,
		LandingPath:    cfg.LandingPath,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	var exporter workers.SnapshotExporter
	if uploader != nil {
		exporter = exportService
	}
	sched, err := workers.StartScheduler(ctx, workers.SchedulerConfig{
		RefreshInterval: cfg.ProfileRefreshInterval,
		ExportInterval:  cfg.ExportInterval,
	}, workers.NewProfileRefreshWorker(db, osu), exporter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Strs("origins", cfg.AllowedOrigins).
		Msg("server running")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := sched.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
