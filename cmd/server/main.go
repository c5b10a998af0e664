package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/brooksh/brook/internal/config"
	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/logging"
	"github.com/brooksh/brook/internal/server"
	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/internal/server/handlers"
	"github.com/brooksh/brook/internal/server/session"
	"github.com/brooksh/brook/internal/server/storage"
	"github.com/brooksh/brook/internal/server/storage/boltdb"
	"github.com/brooksh/brook/internal/server/storage/memory"
	"github.com/brooksh/brook/internal/server/storage/redis"
	"github.com/brooksh/brook/internal/server/storage/sqlite"
	"github.com/brooksh/brook/internal/server/token"
	"github.com/brooksh/brook/internal/telemetry"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const serviceName = "brook-server"

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		printVersion()
		os.Exit(0)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Brook Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, Version, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", slog.Any("error", err))
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close(logger)

	tokens, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	hasher, err := crypto.NewPasswordHasher(crypto.DefaultArgon2Params())
	if err != nil {
		return fmt.Errorf("create password hasher: %w", err)
	}

	sessions := session.NewManager(st.sessions, logger)

	// the sweeper must be gone before the stores close
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Go(func() { sessions.RunSweeper(sweepCtx, cfg.SweepInterval) })
	defer func() {
		cancelSweep()
		wg.Wait()
	}()

	gateway := auth.NewGateway(auth.Deps{
		Credentials: st.credentials,
		Profiles:    st.profiles,
		Sessions:    sessions,
		Tokens:      tokens,
		Hasher:      hasher,
		Logger:      logger,
	})

	srv, err := server.New(server.Config{
		Gateway:         gateway,
		Logger:          logger,
		HealthChecks:    st.checks,
		Addr:            cfg.HTTPAddr,
		Version:         Version,
		RateLimit:       cfg.RateLimit,
		RateWindow:      cfg.RateWindow,
		ShutdownTimeout: cfg.ShutdownTimeout,
		TrustProxy:      cfg.TrustProxy,
	})
	if err != nil {
		return err
	}

	logger.Info("Brook server starting",
		slog.String("version", Version),
		slog.String("profiles", cfg.ProfileBackend),
		slog.String("sessions", cfg.SessionBackend),
		slog.String("tokens", cfg.TokenMode),
	)

	return srv.ListenAndServe(ctx)
}

type stores struct {
	credentials storage.CredentialStorage
	profiles    storage.ProfileStorage
	sessions    storage.SessionStorage
	checks      map[string]handlers.HealthCheck
	closers     []io.Closer
}

func openStores(ctx context.Context, cfg *config.Config) (_ *stores, err error) {
	st := &stores{checks: make(map[string]handlers.HealthCheck)}
	defer func() {
		if err != nil {
			st.close(nil)
		}
	}()

	switch cfg.ProfileBackend {
	case config.ProfileBackendSQLite:
		db, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open profile store: %w", err)
		}
		st.closers = append(st.closers, db)
		st.credentials, st.profiles = db, db
		st.checks["profiles"] = db.Ping
	default:
		mem := memory.New()
		st.credentials, st.profiles = mem, mem
	}

	switch cfg.SessionBackend {
	case config.SessionBackendBolt:
		db, err := boltdb.New(ctx, cfg.SessionDBPath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		st.closers = append(st.closers, db)
		st.sessions = db
		st.checks["sessions"] = db.Ping
	case config.SessionBackendRedis:
		rs, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		st.closers = append(st.closers, rs)
		st.sessions = rs
		st.checks["sessions"] = rs.Ping
	default:
		st.sessions = memory.New()
	}

	return st, nil
}

func (st *stores) close(logger *slog.Logger) {
	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil && logger != nil {
		logger.Warn("Failed to close stores", slog.Any("error", err))
	}
}

func newIssuer(cfg *config.Config) (token.Issuer, error) {
	if cfg.TokenMode == config.TokenModeJWT {
		issuer, err := token.NewJWTIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL, time.Now)
		if err != nil {
			return nil, fmt.Errorf("create jwt issuer: %w", err)
		}
		return issuer, nil
	}
	return token.NewMemoryIssuer(token.WithTTL(cfg.TokenTTL)), nil
}
