// Package embedding generates chunk embeddings through an
// OpenAI-compatible API.
package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Embedder calls the embeddings endpoint once per chunk.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
	}
}

// ChunkEmbedding pairs a chunk with its vector.
type ChunkEmbedding struct {
	Text   string
	Vector []float32
}

// Embed returns the embedding vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedChunks embeds chunks one at a time, in order. A chunk whose
// vector length does not match the configured dimension is dropped
// rather than failing the document; an API error aborts the call so the
// message can be redelivered.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []string) ([]ChunkEmbedding, error) {
	log := logger.FromContext(ctx)

	out := make([]ChunkEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := e.Embed(ctx, chunk)
		if err != nil {
			metrics.EmbeddingChunks.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("embedding chunk %d of %d: %w", i+1, len(chunks), err)
		}
		if len(vec) != e.dimensions {
			metrics.EmbeddingChunks.WithLabelValues("dim_mismatch").Inc()
			log.Warn("dropping chunk with unexpected embedding dimension",
				zap.Int("chunk", i),
				zap.Int("dimension", len(vec)),
				zap.Int("want", e.dimensions))
			continue
		}
		metrics.EmbeddingChunks.WithLabelValues("embedded").Inc()
		out = append(out, ChunkEmbedding{Text: chunk, Vector: vec})
	}
	return out, nil
}

// parseAPIError extracts a readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("embedding request failed: %w", err)
}
