package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultVisionModel is the model used to describe extracted images
	DefaultVisionModel = "gpt-4o-mini"

	describePrompt = "Describe the content of this image in a few sentences so it can be found by text search. Mention any visible text, charts, and diagrams."
)

var (
	// ErrEmptyBatch is returned when no texts are passed for embedding
	ErrEmptyBatch = errors.New("embedding batch cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrCountMismatch is returned when the provider returns a different number of vectors than requested
	ErrCountMismatch = errors.New("embedding count does not match request")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for batched embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VisionAPI defines the interface for image description
type VisionAPI interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

// Client wraps the OpenAI API for embeddings and vision descriptions
type Client struct {
	api        EmbeddingAPI
	vision     VisionAPI
	dimensions int
}

type OpenAIAdapter struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	visionModel string
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel, visionModel string) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}
	return &OpenAIAdapter{
		client:      openai.NewClient(apiKey),
		model:       model,
		visionModel: visionModel,
	}
}

// CreateEmbeddings calls the OpenAI API once for the whole batch. The
// response is order-preserving: vector i belongs to texts[i].
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, ErrCountMismatch
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// DescribeImage asks the vision model for a text description of the image
// at the given URL.
func (a *OpenAIAdapter) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: describePrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no description returned")
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	VisionModel         string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.VisionModel)
	return &Client{
		api:        adapter,
		vision:     adapter,
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbeddings generates embeddings for a batch of texts, preserving
// order and validating dimensions.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	vectors, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, ErrCountMismatch
	}
	for _, v := range vectors {
		if len(v) != c.dimensions {
			return nil, ErrWrongDimensions
		}
	}
	return vectors, nil
}

// DescribeImage returns a text description of the image at the URL.
func (c *Client) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	if imageURL == "" {
		return "", errors.New("image URL cannot be empty")
	}
	return c.vision.DescribeImage(ctx, imageURL)
}

// IsRetryable reports whether an OpenAI error is transient: rate limits,
// server-side failures and transport errors are retried; malformed input
// and auth failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
