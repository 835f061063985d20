package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/acastillo/docpipeline/internal/api"
	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/gcp"
	"github.com/acastillo/docpipeline/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	config, err := api.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := gcp.NewGCSStore(ctx)
	if err != nil {
		slog.Error("Failed to create storage client", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	publisher, err := bus.NewPubSubPublisher(ctx, config.ProjectID, config.Topic)
	if err != nil {
		slog.Error("Failed to create publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	resolver := services.NewStatusResolver(store, services.ResolverConfig{
		IntakeBucket:  config.IntakeBucket,
		ResultsBucket: config.ResultsBucket,
		ArchiveBucket: config.ArchiveBucket,
	})

	server := api.NewServer(store, publisher, resolver, *config)
	slog.Info("Starting API server", "port", config.Port)
	if err := server.Router().Run(":" + config.Port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
