package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wakepark/internal/api"
	"wakepark/internal/config"
	"wakepark/internal/database"
	"wakepark/internal/domain"
	"wakepark/internal/events"
	"wakepark/internal/google"
	"wakepark/internal/logging"
	"wakepark/internal/metrics"
	"wakepark/internal/models"
	"wakepark/internal/notify"
	"wakepark/internal/repository"
	"wakepark/internal/schedule"
	"wakepark/internal/service"
	"wakepark/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.Database.Path, cfg.Database.TablePrefix, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedSchedule(ctx, cfg, db, &logger); err != nil {
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	sessions := buildSessionRepository(cfg, redisClient, &logger)

	eventBus := events.NewEventBus()
	initNotifier(cfg, eventBus, &logger)

	syncWorker := initSheetsWorker(ctx, cfg, db, redisClient, &logger)

	reservationTTL := time.Duration(cfg.Schedule.ReservationTTLMinutes) * time.Minute
	bookingService := service.NewBookingService(db, eventBus, syncWorker, reservationTTL, &logger)
	scheduleService := service.NewScheduleService(db, eventBus, cfg.Schedule.VisibilityWeeks, &logger)
	leadTime := schedule.NewEvaluator(db, cfg.LeadTimeFailOpen(), &logger)

	if err := scheduleService.InitializeSlots(ctx); err != nil {
		logger.Error().Err(err).Msg("initialize slot inventory")
		return err
	}

	httpServer := api.NewHTTPServer(cfg, bookingService, scheduleService, leadTime, sessions, &logger)

	startMetrics(ctx, cfg, &logger)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()
	logger.Info().Int("http_port", cfg.Server.Port).Msg("booking API started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("booking API stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// scheduleSeed is the yaml shape of configs/schedule.yaml.
type scheduleSeed struct {
	OperatingHours []struct {
		Weekday   int    `yaml:"weekday"`
		OpenTime  string `yaml:"open_time"`
		CloseTime string `yaml:"close_time"`
		IsClosed  bool   `yaml:"is_closed"`
	} `yaml:"operating_hours"`
	PricingRules []struct {
		Name            string `yaml:"name"`
		PriceCents      int64  `yaml:"price_cents"`
		StartTime       string `yaml:"start_time"`
		EndTime         string `yaml:"end_time"`
		AppliesWeekends bool   `yaml:"applies_weekends"`
	} `yaml:"pricing_rules"`
}

// seedSchedule loads default operating hours and pricing on first start. An
// already configured database is left alone.
func seedSchedule(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	existing, err := db.GetOperatingHours(ctx)
	if err != nil {
		return fmt.Errorf("read operating hours: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	data, err := os.ReadFile(cfg.Schedule.SeedPath)
	if err != nil {
		logger.Warn().Err(err).Str("seed_path", cfg.Schedule.SeedPath).Msg("schedule seed missing, starting with empty schedule")
		return nil
	}

	var seed scheduleSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse schedule seed: %w", err)
	}

	hours := make([]models.OperatingHours, 0, len(seed.OperatingHours))
	for _, h := range seed.OperatingHours {
		hours = append(hours, models.OperatingHours{
			Weekday:   h.Weekday,
			OpenTime:  h.OpenTime,
			CloseTime: h.CloseTime,
			IsClosed:  h.IsClosed,
		})
	}
	if err := schedule.ValidateOperatingHours(hours); err != nil {
		return fmt.Errorf("invalid schedule seed: %w", err)
	}
	if err := db.ReplaceOperatingHours(ctx, hours); err != nil {
		return fmt.Errorf("seed operating hours: %w", err)
	}

	rules := make([]models.PricingRule, 0, len(seed.PricingRules))
	for _, r := range seed.PricingRules {
		rules = append(rules, models.PricingRule{
			Name:            r.Name,
			PriceCents:      r.PriceCents,
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			AppliesWeekends: r.AppliesWeekends,
		})
	}
	if len(rules) > 0 {
		if err := db.ReplacePricingRules(ctx, rules); err != nil {
			return fmt.Errorf("seed pricing rules: %w", err)
		}
	}

	logger.Info().Int("hours", len(hours)).Int("pricing_rules", len(rules)).Msg("schedule seeded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildSessionRepository prefers redis with an in-memory fallback so admin
// logins survive a redis hiccup.
func buildSessionRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	ttl := time.Duration(cfg.Admin.SessionTTLHours) * time.Hour
	memory := repository.NewMemorySessionRepository(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisSessionRepository(redisClient, ttl)
	return repository.NewFailoverSessionRepository(primary, memory, logger)
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.OperatorChatID == 0 {
		return
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	notifier.SubscribeTo(bus)
}

func initSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets mirror")
		return nil
	}
	logger.Info().Msg("google sheets connected")

	w := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	go w.Start(ctx)
	return w
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
