package conversation

import (
	"context"
	"net/http"
	"time"

	"persona/app/config"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

func createClient(cfg config.ModelConfig, timeout time.Duration) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	return openai.NewClientWithConfig(clientConfig)
}

func createGeminiClient(ctx context.Context, cfg config.GeminiModelConfig, timeout time.Duration) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
}
