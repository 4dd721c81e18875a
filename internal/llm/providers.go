package llm

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"

	"moodmate/internal/config"
	"moodmate/internal/utils"
)

func newArkChatModel(ctx context.Context, cfg config.ArkConfig) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, err
	}
	return chatModel, nil
}

func newQwenChatModel(ctx context.Context, cfg config.QwenConfig) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  utils.NewHTTPClient(cfg.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return chatModel, nil
}
