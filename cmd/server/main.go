package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/catalog"
	"github.com/advenue/screen-server/internal/config"
	"github.com/advenue/screen-server/internal/database"
	"github.com/advenue/screen-server/internal/handler"
	"github.com/advenue/screen-server/internal/impression"
	"github.com/advenue/screen-server/internal/jobs"
	"github.com/advenue/screen-server/internal/metrics"
	"github.com/advenue/screen-server/internal/middleware"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/redis"
	"github.com/advenue/screen-server/internal/repository"
	"github.com/advenue/screen-server/internal/service"
	"github.com/advenue/screen-server/internal/sse"
	"github.com/advenue/screen-server/internal/store"
	"github.com/advenue/screen-server/internal/util"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	var kv store.Store
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		kv = store.NewRedisStore(redisClient)
	case config.StoreBackendMemory:
		kv = store.NewMemoryStore()
	default:
		kv = store.NewPostgresStore(db.DB)
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("key-value store selected")

	requestRepo := repository.NewPairingRequestRepository(kv)
	screenRepo := repository.NewScreenRepository(kv)
	settingsRepo := repository.NewSettingsRepository(kv)
	catalogRepo := repository.NewCatalogRepository(db.DB)

	sealer, err := newSealer(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init token sealer")
	}

	sink, closeSink := newImpressionSink(cfg)

	broker := sse.NewBroker(redisClient)
	cache := catalog.NewCache(catalogRepo, cfg.CatalogRefresh())

	settingsService := service.NewSettingsService(settingsRepo, screenRepo, broker)
	players := playback.NewManager(settingsService, cache, sink, playback.WithDebounce(cfg.ReloadDebounce()))
	settingsService.AttachPlayers(players)
	screenService := service.NewScreenService(screenRepo, settingsRepo, players, broker)
	pairingService := service.NewPairingService(requestRepo, screenService, broker, sealer)
	displayService := service.NewDisplayService(players)

	cache.Subscribe(players.OnCatalogChange)
	cache.Subscribe(announceCatalog(players, broker))

	startCtx, startCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := cache.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}
	startCancel()

	var limiter middleware.Limiter = middleware.NewRedisRateLimiter(redisClient.Client)
	if cfg.StoreBackend == config.StoreBackendMemory {
		limiter = middleware.NewRateLimiter()
	}
	pairingRateLimit := middleware.NewIPRateLimitMiddleware(limiter, cfg.PairingRateLimitPerMin, "pairing")
	statusRateLimit := middleware.NewIPRateLimitMiddleware(limiter, cfg.StatusRateLimitPerMin, "pairing-status")
	screenAuth := middleware.NewScreenAuthMiddleware(screenService)
	operatorAuth := middleware.NewOperatorAuthMiddleware(cfg.OperatorPasswordHash)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	timeout := chimiddleware.Timeout(config.ServerRequestTimeout)

	pairingHandler := handler.NewPairingHandler(pairingService, pairingRateLimit.Handler, statusRateLimit.Handler)
	eventsHandler := handler.NewEventsHandler(broker, players)
	screenHandler := handler.NewScreenHandler(screenService, displayService, eventsHandler, screenAuth.Handler)
	ownerHandler := handler.NewOwnerHandler(screenService, settingsService)
	adminHandler := handler.NewAdminHandler(cache, catalogRepo, players, broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":         "ok",
			"timestamp":      time.Now().UnixMilli(),
			"catalogVersion": cache.Snapshot().Version,
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(timeout).Mount("/pairing", pairingHandler.Routes())
		// Not under the timeout: the event stream stays open.
		r.Mount("/screens", screenHandler.Routes())
		r.With(timeout).Mount("/owners", ownerHandler.Routes())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(operatorAuth.Handler)
		r.Use(timeout)
		r.Mount("/", adminHandler.Routes())
	})

	r.With(operatorAuth.Handler).Get("/metrics", metrics.Handler().ServeHTTP)

	cleanupJob := jobs.NewCleanupJob(
		requestRepo, screenRepo, settingsRepo, players, broker,
		config.CleanupJobInterval, cfg.PlayerIdle(),
	)
	cleanupJob.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Close event streams first so Shutdown is not held up by them.
	broker.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	cleanupJob.Stop()
	cache.Stop()
	players.StopAll()
	if err := closeSink(); err != nil {
		log.Error().Err(err).Msg("failed to close impression sink")
	}

	log.Info().Msg("server stopped")
}

func newSealer(hexKey string) (*util.Sealer, error) {
	if hexKey == "" {
		return util.NewEphemeralSealer()
	}
	return util.NewSealer(hexKey)
}

// newImpressionSink always logs impressions and also publishes them to
// RabbitMQ when AMQP_URL is set.
func newImpressionSink(cfg *config.Config) (impression.Sink, func() error) {
	logSink := impression.NewLogSink()
	if cfg.AMQPURL == "" {
		return logSink, func() error { return nil }
	}

	pub, err := impression.NewAMQPPublisher(cfg.AMQPURL, cfg.ImpressionQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to amqp")
	}
	amqpSink := impression.NewAMQPSink(pub)
	log.Info().Str("queue", cfg.ImpressionQueue).Msg("publishing impressions to amqp")

	return impression.NewMultiSink(logSink, amqpSink), amqpSink.Close
}

// announceCatalog tells every screen with a running player that the catalog
// moved on, so it can prefetch media before its sequence rebuilds.
func announceCatalog(players *playback.Manager, broker *sse.Broker) catalog.Listener {
	return func(snap *catalog.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := map[string]any{"version": snap.Version}
		for _, id := range players.ScreenIDs() {
			if err := broker.Publish(ctx, id, sse.EventCatalogChanged, data); err != nil {
				log.Warn().Err(err).Str("screenId", id).Msg("failed to announce catalog change")
			}
		}
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
