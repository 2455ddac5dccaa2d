package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/config"
	"github.com/iliyamo/seminars/internal/database"
	"github.com/iliyamo/seminars/internal/handler"
	"github.com/iliyamo/seminars/internal/ical"
	"github.com/iliyamo/seminars/internal/logger"
	"github.com/iliyamo/seminars/internal/mailer"
	"github.com/iliyamo/seminars/internal/middleware"
	"github.com/iliyamo/seminars/internal/queue"
	"github.com/iliyamo/seminars/internal/repository"
	"github.com/iliyamo/seminars/internal/router"
	"github.com/iliyamo/seminars/internal/scheduler"
	"github.com/iliyamo/seminars/internal/service"
	"github.com/iliyamo/seminars/pkg/validator"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine, the environment may be set already
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, &log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	rdb := config.NewRedisClient()
	invalidate := func(ctx context.Context) {}
	if rdb != nil {
		defer rdb.Close()
		invalidate = func(ctx context.Context) { middleware.Invalidate(ctx, rdb, cfg.Cache.Prefix) }
	}

	publisher := service.NewPublisher(cfg.RabbitURL, log)
	defer publisher.Close()

	mail := mailer.New(cfg.Mail, &log)
	go queue.StartConsumer(ctx, cfg.RabbitURL, mail.Notify, log)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	records := repository.NewRecordRepo(db)

	if cfg.StatusCron != "" {
		c, err := scheduler.Start(cfg.StatusCron, &scheduler.StatusUpdater{
			Store:    events,
			Notifier: publisher,
			Log:      log,
			OnChange: invalidate,
		})
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.StatusCron).Msg("schedule status update")
		}
		defer c.Stop()
	}

	e := newServer(cfg, log, rdb)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)

	eventHandler := handler.NewEventHandler(events, cfg.Features, ical.Options{
		Domain:    envOr("ICAL_DOMAIN", "seminars.local"),
		DetailURL: detailURL(os.Getenv("PUBLIC_BASE_URL")),
	})
	recordHandler := &handler.RecordHandler{Records: records, Users: users, Invalidate: invalidate}
	router.RegisterPublic(e, eventHandler, recordHandler, middleware.NewRedisCache(cfg.Cache, rdb))
	router.RegisterFrontEnd(e,
		&handler.RegistrationHandler{
			Events:        events,
			Registrations: registrations,
			Users:         users,
			Features:      cfg.Features,
			Notifier:      publisher,
			Log:           log,
			Invalidate:    invalidate,
		},
		&handler.EditorHandler{
			Events:     events,
			Users:      users,
			TimeSlots:  repository.NewTimeSlotRepo(db),
			Records:    records,
			Log:        log,
			Invalidate: invalidate,
		},
		cfg.JWTSecret,
	)
	router.RegisterBackEnd(e, recordHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

// newServer creates the echo instance with the global middleware chain.
func newServer(cfg config.Config, log zerolog.Logger, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.Echo{}
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb))
	return e
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// detailURL links calendar entries to the public detail endpoint.
func detailURL(base string) func(uint64) string {
	if base == "" {
		return nil
	}
	return func(id uint64) string { return base + "/v1/events/" + strconv.FormatUint(id, 10) }
}
