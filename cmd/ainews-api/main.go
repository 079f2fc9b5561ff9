package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"ainews/internal/api"
	"ainews/internal/app"
	"ainews/internal/config"
	"ainews/internal/logger"
	"ainews/internal/rss"
	"ainews/internal/storage"
)

func main() {
	logger.Init()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("config: %v", err)
	}

	feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		log.Fatalf("load feeds: %v", err)
	}
	if len(feeds.Feeds) == 0 {
		log.Fatalf("feed list %s is empty", cfg.FeedsConfigPath)
	}

	store, err := storage.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	pipeline := app.BuildPipeline(cfg, feeds)
	handler := api.NewHandler(store, pipeline, cfg.APISecret)

	router := gin.Default()
	api.SetupRoutes(router, handler)

	logger.Info("api server listening", "port", cfg.APIPort)
	if err := router.Run(":" + cfg.APIPort); err != nil {
		log.Fatalf("api server: %v", err)
	}
}
