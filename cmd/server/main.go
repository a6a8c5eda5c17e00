// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/mtgbuilder/tabletop/internal/auth"
	"github.com/mtgbuilder/tabletop/internal/cache"
	"github.com/mtgbuilder/tabletop/internal/config"
	"github.com/mtgbuilder/tabletop/internal/database"
	"github.com/mtgbuilder/tabletop/internal/handlers"
	"github.com/mtgbuilder/tabletop/internal/lobby"
	"github.com/mtgbuilder/tabletop/internal/middleware"
	"github.com/mtgbuilder/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL (or PG_HOST) must be set")
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	verifier := loadVerifier(cfg, logger)
	rdb := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	publisher := cache.NewActionPublisher(rdb, cfg.ActionPrefix, logger)
	store := lobby.NewRoomStore(logger, publisher, cfg.DefaultMaxPlayers)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routes(logger, cfg, store, pool, verifier),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

func routes(logger *logrus.Logger, cfg config.Config, store *lobby.RoomStore, pool *pgxpool.Pool, verifier handlers.TokenVerifier) http.Handler {
	logged := middleware.LogMiddleware(logger)
	decks := database.NewDeckStore(pool)

	mux := http.NewServeMux()
	mux.Handle("/ping", logged(http.HandlerFunc(handlers.PingHandler)))
	mux.Handle("/games", logged(handlers.ListGamesHandler(store)))
	mux.Handle("/ws/game", logged(handlers.GameWSHandler(logger, store, decks, verifier, cfg.AllowedOrigins)))
	return mux
}

// loadVerifier uses the auth service's public key when configured. Without
// one, outside production, it generates a throwaway key pair and logs a
// token so the server can be exercised locally.
func loadVerifier(cfg config.Config, logger *logrus.Logger) *auth.Verifier {
	if cfg.JWTPublicKeyPath != "" {
		v, err := auth.LoadVerifier(cfg.JWTPublicKeyPath)
		if err != nil {
			logger.Fatalf("auth: %v", err)
		}
		return v
	}
	if cfg.Production() {
		logger.Fatal("JWT_PUBLIC_KEY_PATH is required in production")
	}
	signer, v, err := auth.NewKeyPair(24 * time.Hour)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	token, err := signer.CreateJWT(models.User{ID: uuid.New(), Username: "dev"})
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	logger.WithField("token", token).Warn("JWT_PUBLIC_KEY_PATH not set, using ephemeral keys")
	return v
}

// connectRedis returns nil when Redis is unreachable; the action feed is
// optional and the publisher treats a nil client as disabled.
func connectRedis(ctx context.Context, cfg config.Config, logger *logrus.Logger) *redis.Client {
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warnf("action feed disabled: %v", err)
		return nil
	}
	return rdb
}
