package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mapfarena/verifier/internal/auth"
	"github.com/mapfarena/verifier/internal/config"
	"github.com/mapfarena/verifier/internal/coordinator"
	"github.com/mapfarena/verifier/internal/httpapi"
	"github.com/mapfarena/verifier/internal/logger"
	"github.com/mapfarena/verifier/internal/sandbox"
	"github.com/mapfarena/verifier/internal/scheduler"
	"github.com/mapfarena/verifier/internal/storage"
	"github.com/mapfarena/verifier/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Setup(cfg.Logger.Level)
	log.Info().
		Int("port", cfg.Server.Port).
		Str("log_level", cfg.Logger.Level).
		Msg("starting mapf verifier")

	store := storage.Open(cfg.DB.URL)
	log.Info().Str("dsn", maskDSN(cfg.DB.URL)).Msg("opened postgres connection pool")

	ctx := context.Background()
	if err := store.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database schema")
	}
	log.Info().Msg("database schema initialized")

	submissions := storage.NewSubmissionRepository(store)
	apiKeys := storage.NewAPIKeyRepository(store)

	cache, err := storage.NewLeaderboardCache(cfg.Redis.URL, cfg.Redis.CacheTTL, submissions)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer cache.Close()

	executor, err := sandbox.NewExecutor(ctx, sandbox.Config{
		TimeoutSeconds: cfg.Solver.TimeoutSeconds,
		InstructionCap: cfg.Solver.InstructionCap,
		MaxModuleBytes: cfg.Solver.MaxWasmSizeMB * 1024 * 1024,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start wazero sandbox")
	}
	defer executor.Close(ctx)

	authService := auth.NewService(apiKeys)
	coord := coordinator.New(executor, validator.Validate, submissions, cfg.Solver.MaxWasmSizeMB*1024*1024)

	server := httpapi.NewServer(httpapi.Config{
		Coordinator:  coord,
		AuthService:  authService,
		Users:        submissions,
		Leaderboard:  cache,
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
		MaxWasmBytes: cfg.Solver.MaxWasmSizeMB * 1024 * 1024,
		Logger:       log,
	})

	sched := scheduler.New(scheduler.Config{
		Pruner: apiKeys,
		Cache:  cache,
		WarmTargets: []scheduler.WarmTarget{
			{MapName: "empty-8-8", ScenarioName: "", Limit: 100},
		},
		Logger: log,
	})
	if err := sched.Start("@every 1h", "@every 5m", 30*time.Second); err != nil {
		log.Fatal().Err(err).Msg("failed to start background scheduler")
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited gracefully")
}

// maskDSN replaces the password segment of a postgres DSN with *** so
// logs never leak credentials.
func maskDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at == -1 {
		return dsn
	}
	colon := strings.LastIndex(dsn[:at], ":")
	if colon == -1 {
		return dsn
	}
	return dsn[:colon+1] + "***" + dsn[at:]
}
