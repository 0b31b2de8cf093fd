package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/opentodo/backend/internal/auth"
	"github.com/opentodo/backend/internal/db"
	"github.com/opentodo/backend/internal/middleware"
	"github.com/opentodo/backend/internal/password"
	"github.com/opentodo/backend/internal/refresh"
	"github.com/opentodo/backend/internal/revocation"
	"github.com/opentodo/backend/internal/token"
	"github.com/opentodo/backend/internal/user"
	"github.com/opentodo/backend/pkg/config"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	database, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	redisClient, err := db.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Error("failed to init password hasher", "error", err)
		os.Exit(1)
	}

	signer := token.NewSigner(cfg.JWTSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)

	userRepo := user.NewRepository(database)
	refreshRepo := refresh.NewRepository(database, time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour)
	revocationStore := revocation.NewStore(redisClient)

	service := auth.NewService(log, userRepo, refreshRepo, revocationStore, hasher, signer)
	handler := auth.NewHandler(service)
	gate := middleware.Auth(signer, revocationStore)

	router := gin.Default()
	auth.RegisterRoutes(router.Group("/auth"), handler, gate)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
