package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// homeEnv overrides the ~/.docqa directory.
const homeEnv = "DOCQA_HOME"

// bootstrap wires the configuration, the AI adapters and the core services.
// When the configuration is invalid or the vector store cannot be opened only
// the settings service is returned, so the config commands can repair it.
func bootstrap(ctx context.Context) (*cli.Services, error) {
	home := os.Getenv(homeEnv)

	store, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settings := services.NewSettingsService(store, ai.NewConfigValidator())
	settingsOnly := &cli.Services{Settings: settings}

	cfg, err := settings.Get()
	if err != nil {
		logger.Error("reading config %s: %v", store.Path(), err)
		return settingsOnly, nil
	}
	if home != "" && cfg.VectorStore.DataDir == "" {
		cfg.VectorStore.DataDir = filepath.Join(home, "data")
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration: %v (see 'docqa config show')", err)
		return settingsOnly, nil
	}

	promptDir := ""
	if home != "" {
		promptDir = filepath.Join(home, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	result, err := ai.Init(ctx, cfg, prompts)
	if err != nil {
		logger.Error("%v", err)
		return settingsOnly, nil
	}

	registry := normalisers.NewDefaultRegistry()
	pipeline, err := postprocessors.NewDefaultPipeline(cfg.Chunking)
	if err != nil {
		_ = result.Close()
		return nil, fmt.Errorf("building chunk pipeline: %w", err)
	}

	embedder := services.NewEmbedder(cfg, result.EmbeddingService, result.VisionService, result.ImageLoader)
	index := services.NewIndexManager(result.VectorStore, cfg)
	answer := services.NewAnswerService(cfg, embedder, index, result.GenerationService)
	answer.SetPromptStore(prompts)

	return &cli.Services{
		Index:     services.NewIndexingService(registry, pipeline, embedder, index),
		Answer:    answer,
		Status:    services.NewStatusService(cfg, index, result.EmbeddingService, result.VisionService, result.GenerationService),
		Settings:  settings,
		MIMETypes: registry.SupportedMIMETypes(),
		Close:     result.Close,
	}, nil
}
