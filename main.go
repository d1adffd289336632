package main

import (
	"context"
	"net/http"

	"mediaproxy/config"
	"mediaproxy/encoder"
	"mediaproxy/logger"
	"mediaproxy/logo"
	"mediaproxy/orgs"
	"mediaproxy/routes"
	"mediaproxy/store"
	"mediaproxy/stream"
	"mediaproxy/watermark"
)

func main() {
	if err := logger.Init(config.GetLogFile(), true); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.Info("Starting media proxy initialization")

	if path := config.GetEncoderPath(); path != "" {
		encoder.Command = path
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}
	logger.Infof("Configuration loaded (store backend: %s)", cfg.Store)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open remote store: %v", err)
	}
	logger.Info("Remote store ready")

	logger.Debug("Opening organization database")
	if err := orgs.Open(config.GetOrgDBPath()); err != nil {
		logger.Fatalf("Failed to open organization store: %v", err)
	}
	defer orgs.Close()
	logger.Info("Organization database ready")

	resolver := &logo.Resolver{Store: st}
	server := &routes.Server{
		Store:  st,
		Stream: &stream.Responder{Store: st},
		Logos:  resolver,
		Marks:  &watermark.Pipeline{Logos: resolver},
	}

	logger.Info("Registering HTTP routes")
	mux := http.NewServeMux()
	server.Register(mux)

	logger.Infof("Media proxy listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}
