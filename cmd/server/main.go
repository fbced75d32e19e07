package main

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/apps"
	"github.com/entropyconquers/expo-update-server-x/internal/assetserver"
	"github.com/entropyconquers/expo-update-server-x/internal/blob/localblob"
	"github.com/entropyconquers/expo-update-server-x/internal/cache"
	"github.com/entropyconquers/expo-update-server-x/internal/cache/memcache"
	"github.com/entropyconquers/expo-update-server-x/internal/cache/rediscache"
	"github.com/entropyconquers/expo-update-server-x/internal/cleanup"
	"github.com/entropyconquers/expo-update-server-x/internal/config"
	"github.com/entropyconquers/expo-update-server-x/internal/lockmap"
	"github.com/entropyconquers/expo-update-server-x/internal/logging"
	"github.com/entropyconquers/expo-update-server-x/internal/manifest"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
	"github.com/entropyconquers/expo-update-server-x/internal/server"
	"github.com/entropyconquers/expo-update-server-x/internal/server/handlers"
	"github.com/entropyconquers/expo-update-server-x/internal/uploads"
)

func main() {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	slog.SetDefault(logger)

	if err := config.Load(); err != nil {
		logger.Warn("env load", "err", err)
	}
	cfg := config.Current

	db, err := meta.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	if err := meta.RunMigrations(db, logger); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	store := meta.NewStore(db)

	blobs, err := localblob.New(cfg.BlobRoot)
	if err != nil {
		logger.Error("blob store init failed", "err", err)
		os.Exit(1)
	}

	var cacheStore cache.Store
	if cfg.CacheRedisURL != "" {
		redisCache, err := rediscache.New(cfg.CacheRedisURL)
		if err != nil {
			logger.Error("redis cache init failed", "err", err)
			os.Exit(1)
		}
		cacheStore = redisCache
	} else {
		cacheStore = memcache.New()
	}

	cleanupCoord := cleanup.New(store, blobs, cacheStore, logger)
	appsRegistry := apps.New(store, cleanupCoord, logger)
	uploadsService := uploads.New(store, lockmap.New(), cleanupCoord, logger)
	manifestServer := manifest.New(store, blobs, cacheStore, cfg.PublicURL, logger)
	assetServer := assetserver.New(blobs)

	h := handlers.New(appsRegistry, uploadsService, manifestServer, assetServer, blobs, cfg.UploadSecretKey, logger)

	app := fiber.New(fiber.Config{
		ServerHeader: "expo-update-server-x",
		AppName:      "expo-update-server-x",
		BodyLimit:    200 * 1024 * 1024,
		ErrorHandler: apperr.FiberHandler(logger),
	})

	server.RegisterRoutes(app, h)

	logger.Info("server listening", "port", cfg.AppPort, "environment", cfg.Environment)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
