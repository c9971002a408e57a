// main.go
package main

import (
	"log"

	"clinic-auth/cmd"
	"clinic-auth/internal/wire"
	"clinic-auth/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("storage", config.App.StorageDriver),
		zap.Bool("debug", config.App.Debug),
	)

	// Open storage
	repos, closeRepos, err := cmd.OpenRepository(config, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeRepos()

	// Limiter and senders
	infra, closeInfra, err := cmd.BuildInfra(config, logger)
	if err != nil {
		logger.Fatal("Failed to build infrastructure", zap.Error(err))
	}
	defer closeInfra()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Wire all dependencies
	app := wire.Wiring(repos, config, infra, registry, logger)

	// Start server
	if err := cmd.APIServer(app.Router, config.App.Port, logger, app.Service.Sweeper.Run); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
