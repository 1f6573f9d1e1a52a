package llm

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/config"
)

// NewJudge builds the judge client for cfg.Provider.
func NewJudge(ctx context.Context, cfg config.JudgeConfig, logger *zap.Logger) (Judge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return NewBedrockJudge(awsCfg, cfg.Model), nil

	case "claude":
		return NewClaudeJudge(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiJudge(ctx, cfg.APIKey, cfg.Model)

	case "openai":
		return NewOpenAIJudge(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		// Ollama serves an OpenAI-compatible API under /v1.
		baseURL := OllamaBaseURL(cfg.BaseURL)
		logger.Info("using ollama through the OpenAI-compatible API", zap.String("base_url", baseURL))

		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by ollama, required by the client
		}
		return NewOpenAIJudge(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported judge provider: %s", provider)
	}
}

func OllamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
}
