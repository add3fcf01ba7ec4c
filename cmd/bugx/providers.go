package main

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/option"

	"bugx/internal/config"
	"bugx/internal/gemini"
	"bugx/internal/llm"
	"bugx/internal/llm/mockclient"
	"bugx/internal/openrouter"
)

// buildClient returns the chat client for the configured provider.
func buildClient(ctx context.Context, cfg config.Config, logger *log.Logger) (llm.Client, error) {
	apiKey, err := config.APIKey(cfg.Provider)
	if err != nil {
		return nil, err
	}
	model := cfg.ModelFor(cfg.Provider)
	switch cfg.Provider {
	case config.ProviderMock:
		logger.Println("using mock LLM client")
		return mockclient.New(), nil
	case config.ProviderGemini:
		var opts []option.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(cfg.BaseURL))
		}
		client, err := gemini.NewClient(ctx, apiKey, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("init gemini provider: %w", err)
		}
		logger.Printf("Gemini provider ready (model %s)", model)
		return client, nil
	case config.ProviderOpenRouter, config.ProviderOpenAI:
		client := openrouter.NewClient(cfg.Provider, cfg.BaseURL, apiKey, cfg.RequestTimeout(), logger)
		logger.Printf("%s provider ready (model %s, endpoint %s)", cfg.Provider, model, cfg.BaseURL)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
