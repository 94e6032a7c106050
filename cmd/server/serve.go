package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/quizly/internal/api"
	"github.com/soaringjerry/quizly/internal/cache"
	"github.com/soaringjerry/quizly/internal/config"
	dbstore "github.com/soaringjerry/quizly/internal/db"
	"github.com/soaringjerry/quizly/internal/db/pg"
	"github.com/soaringjerry/quizly/internal/middleware"
	"github.com/soaringjerry/quizly/internal/services"
	"github.com/soaringjerry/quizly/internal/utils"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), configPath, addrFlag)
		},
	}
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(path))
}

// openStore opens and migrates the configured store. The returned closer is never nil.
func openStore(ctx context.Context, cfg config.Config) (api.Store, func(), error) {
	switch cfg.Store.Kind {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, func() {}, fmt.Errorf("create sqlite dir: %w", err)
		}
		conn, err := sql.Open("sqlite3", sqliteDSN(cfg.Store.SQLitePath))
		if err != nil {
			return nil, func() {}, fmt.Errorf("open sqlite: %w", err)
		}
		closer := func() {
			if err := conn.Close(); err != nil {
				log.Printf("warning: failed to close sqlite db: %v", err)
			}
		}
		if err := dbstore.RunMigrations(ctx, conn, cfg.Store.MigrationsDir); err != nil {
			closer()
			return nil, func() {}, err
		}
		store, err := dbstore.NewStore(conn)
		if err != nil {
			closer()
			return nil, func() {}, err
		}
		log.Printf("using sqlite store at %s", cfg.Store.SQLitePath)
		return store, closer, nil
	case config.StorePostgres:
		bdb := pg.Open(cfg.Store.PostgresURL)
		closer := func() {
			if err := bdb.Close(); err != nil {
				log.Printf("warning: failed to close postgres db: %v", err)
			}
		}
		if err := pg.Migrate(ctx, bdb); err != nil {
			closer()
			return nil, func() {}, err
		}
		log.Printf("using postgres store")
		return pg.NewBunStore(bdb), closer, nil
	default:
		log.Printf("using in-memory store; data is lost on restart")
		return api.NewMemoryStore(), func() {}, nil
	}
}

// quizCache puts Redis in front of quiz schema reads when an address is configured.
func quizCache(ctx context.Context, cfg config.Config, store api.Store) (services.QuizReader, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("quiz cache: redis %s unreachable, reads fall back to the store: %v", cfg.Redis.Addr, err)
	}
	return cache.NewQuizCache(client, store, cfg.CacheTTL()), func() { _ = client.Close() }
}

func runServer(ctx context.Context, configPath, addrOverride string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if addrOverride != "" {
		addr = addrOverride
	}
	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		log.Printf("warning: QUIZLY_JWT_SECRET not set, using the development secret")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	reader, closeCache := quizCache(ctx, cfg, store)
	defer closeCache()

	router := api.NewRouter(api.Options{
		Store:         store,
		QuizCache:     reader,
		Verifier:      middleware.NewVerifier(cfg.Auth.JWTSecret),
		TokenTTL:      cfg.TokenTTL(),
		StrictChoices: cfg.Quiz.StrictChoices,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Commit:        cfg.Build.Commit,
		BuildTime:     cfg.Build.BuildTime,
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Quizly server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-stop.Done():
		log.Println("shutting down server...")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), utils.SafeEnvDuration("QUIZLY_SHUTDOWN_TIMEOUT", 5*time.Second))
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
