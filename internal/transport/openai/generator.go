package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
	"github.com/rura-ai/rura/internal/metrics"
)

// Generator produces text completions via the chat API.
type Generator struct {
	client *openai.Client
	logger *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger,
	}
}

// NewGeneratorForHost creates a generator against an Ollama host's
// OpenAI-compatible endpoint.
func NewGeneratorForHost(host string, port int, logger *zap.Logger) *Generator {
	return NewGenerator(&GeneratorConfig{
		APIKey:  "ollama", // the endpoint ignores the key but the client requires one
		BaseURL: OllamaBaseURL(host, port),
		Logger:  logger,
	})
}

// OllamaBaseURL builds the OpenAI-compatible base URL for an Ollama host.
func OllamaBaseURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d/v1", host, port)
}

// Generate returns the completion for one prompt.
func (g *Generator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", parseAPIError(err, domain.ErrGenerationProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(model, "success").Inc()
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream writes incremental completion chunks to w as they arrive.
func (g *Generator) GenerateStream(ctx context.Context, model, prompt string, w io.Writer) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(model, "error").Inc()
		return parseAPIError(err, domain.ErrGenerationProviderError)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			metrics.GenerationRequestsTotal.WithLabelValues(model, "success").Inc()
			return nil
		}
		if err != nil {
			metrics.GenerationRequestsTotal.WithLabelValues(model, "error").Inc()
			return parseAPIError(err, domain.ErrGenerationProviderError)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if _, err := io.WriteString(w, resp.Choices[0].Delta.Content); err != nil {
			return fmt.Errorf("write stream chunk: %w", err)
		}
	}
}
