package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// AIClient é o contrato usado pelas sugestões (texto) e pela busca de notas semelhantes (embeddings).
type AIClient interface {
	Complete(ctx context.Context, instructions string, input string) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

type OpenAIConfig struct {
	ApiKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// OpenAIClient implementa AIClient com o SDK oficial.
type OpenAIClient struct {
	client         openai.Client
	model          string
	embeddingModel string
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.ApiKey)),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(1),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4.1-mini"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	return &OpenAIClient{
		client:         openai.NewClient(opts...),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

// Complete envia instructions + input e devolve o texto do assistente.
func (c *OpenAIClient) Complete(ctx context.Context, instructions string, input string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(input),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}

	var sb strings.Builder
	for _, choice := range resp.Choices {
		text := strings.TrimSpace(choice.Message.Content)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return out, nil
}

// Embed devolve o vetor de embedding do texto.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return resp.Data[0].Embedding, nil
}
