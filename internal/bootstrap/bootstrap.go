// Package bootstrap provides dependency initialization for the PromptCast server.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/promptcast/internal/config"
	"github.com/maauso/promptcast/internal/credential"
	"github.com/maauso/promptcast/internal/engine"
	"github.com/maauso/promptcast/internal/gateway"
	"github.com/maauso/promptcast/internal/gemini"
	"github.com/maauso/promptcast/internal/notify"
	"github.com/maauso/promptcast/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Orchestrator *engine.Orchestrator
	Credentials  *credential.Store
	Media        storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// The credential store is both the key source for every provider call
	// and the selector behind the credential gate.
	keys := credential.NewStore(cfg.GeminiAPIKey, cfg.GeminiAPIKeyFile)

	client, err := gemini.NewClient(keys,
		gemini.WithBaseURL(cfg.GeminiBaseURL),
		gemini.WithImageModel(cfg.ImageModel),
		gemini.WithVideoModel(cfg.VideoModel),
		gemini.WithTextModel(cfg.TextModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	gw := gateway.NewGeminiGateway(client, store, logger)

	gate := credential.NewGate(keys, logger)
	selected := gate.Refresh(ctx)
	logger.Info("credential status checked", slog.Bool("selected", selected))

	poller := engine.NewPoller(gw, logger,
		engine.WithPollInterval(cfg.VideoPollInterval),
		engine.WithMaxPolls(cfg.VideoMaxPolls),
	)

	dispatcher := notify.NewDispatcher(logger, notify.WithTimeout(cfg.WebhookTimeout))

	orchestrator := engine.NewOrchestrator(gw, poller, gate, dispatcher, logger)

	return &Dependencies{
		Orchestrator: orchestrator,
		Credentials:  keys,
		Media:        store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.MediaDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("media_dir", localStore.Dir()),
	)
	return localStore, nil
}
