package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/internal/agentconfig"
	"github.com/lisanmuaddib/raider-go/pkg/agent"
	"github.com/lisanmuaddib/raider-go/pkg/control"
	"github.com/lisanmuaddib/raider-go/pkg/db"
	"github.com/lisanmuaddib/raider-go/pkg/interfaces/telegram"
	"github.com/lisanmuaddib/raider-go/pkg/interfaces/twitter"
	"github.com/lisanmuaddib/raider-go/pkg/logging"
	"github.com/lisanmuaddib/raider-go/pkg/memory"
	"github.com/lisanmuaddib/raider-go/pkg/postmetrics"
	"github.com/lisanmuaddib/raider-go/pkg/raid"
	"github.com/lisanmuaddib/raider-go/pkg/telemetry"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	log := logging.NewLogger(os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raidConfig, err := raid.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load raid config")
	}

	source, err := newMetricsSource(raidConfig.MockMode, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create post metrics source")
	}

	telegramConfig, err := telegram.NewTelegramConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to create Telegram config")
	}
	// Override logger to use our main logger
	telegramConfig.Logger = log

	telegramClient, err := telegram.NewTelegramClient(telegramConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to create Telegram client")
	}

	me, err := telegramClient.GetMe(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to reach the Telegram Bot API")
	}
	log.WithField("bot_username", me.Username).Info("Connected to Telegram")

	metricsAddr := os.Getenv("METRICS_ADDR")
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetricsProvider(metricsAddr != "", registry)
	gateway := telemetry.InstrumentGateway(telegramClient, metrics)

	store, err := newRaidStore(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up raid history")
	}
	// Keep the interfaces nil when the store is disabled.
	var (
		history raid.History
		recent  control.RaidHistory
	)
	if store != nil {
		history, recent = store, store
	}

	engine, err := raid.NewEngine(raid.EngineConfig{
		Source:  source,
		Gateway: gateway,
		Logger:  log,
		Config:  raidConfig,
		History: history,
		Metrics: metrics,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create raid engine")
	}
	defer engine.Shutdown()

	surface, err := control.NewSurface(control.Config{
		Engine:   engine,
		Gateway:  gateway,
		History:  recent,
		Logger:   log,
		BotName:  raidConfig.BotName,
		Duration: raidConfig.Duration,
		Now:      time.Now,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create control surface")
	}

	configured, err := agentconfig.ConfigureActions(agentconfig.ActionConfig{
		Updates:     telegramClient,
		Router:      surface,
		Gateway:     gateway,
		Logger:      log,
		MetricsAddr: metricsAddr,
		Gatherer:    registry,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to configure actions")
	}

	bot := agent.New(agent.Config{Logger: log})
	for _, action := range configured {
		if err := bot.RegisterAction(action); err != nil {
			log.WithError(err).Fatal("Failed to register action")
		}
	}

	log.WithFields(logrus.Fields{
		"bot_name":        raidConfig.BotName,
		"mock_mode":       raidConfig.MockMode,
		"raid_duration":   raidConfig.Duration,
		"update_interval": raidConfig.UpdateInterval,
		"history":         history != nil,
		"metrics_addr":    metricsAddr,
	}).Info("Starting raid bot")

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Agent stopped with error")
		engine.Shutdown()
		os.Exit(1)
	}

	log.Info("Agent shutdown complete")
}

// newMetricsSource only builds the Twitter client in live mode, so mock runs
// need no API credentials.
func newMetricsSource(mockMode bool, log *logrus.Logger) (postmetrics.Source, error) {
	if mockMode {
		return postmetrics.NewSource(true, nil, log)
	}

	twitterConfig, err := twitter.NewTwitterConfig()
	if err != nil {
		return nil, err
	}
	twitterConfig.Logger = log

	twitterClient, err := twitter.NewTwitterClient(twitterConfig)
	if err != nil {
		return nil, err
	}
	return postmetrics.NewSource(false, twitterClient, log)
}

// newRaidStore returns nil when no database is configured.
func newRaidStore(log *logrus.Logger) (*memory.RaidStore, error) {
	dbConfig, err := db.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if !dbConfig.Enabled() {
		log.Info("DB_HOST not set, raid history is disabled")
		return nil, nil
	}

	gormDB, err := db.SetupDatabase(log, dbConfig)
	if err != nil {
		return nil, err
	}

	version, dirty, err := db.MigrationStatus(log, dbConfig)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Database schema ready")

	return memory.NewRaidStore(log, gormDB), nil
}
