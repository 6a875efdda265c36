package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gita-knowledge-api/pkg/schema/config"
)

// CustomEmbedder implements Embedder using a sentence-transformers HTTP sidecar.
// The served model is symmetric, so query and document texts are encoded identically.
type CustomEmbedder struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewCustomEmbedder creates a new custom HTTP embedder
func NewCustomEmbedder(cfg *config.Config) *CustomEmbedder {
	return &CustomEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type customEmbeddingRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type customEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type customBatchEmbeddingRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type customBatchEmbeddingResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed generates an embedding for a single text
func (e *CustomEmbedder) Embed(ctx context.Context, text string, _ TaskType) ([]float32, error) {
	var embResp customEmbeddingResponse
	err := e.post(ctx, "/embed", customEmbeddingRequest{
		Text:  text,
		Model: e.cfg.EmbeddingModel,
	}, &embResp)
	if err != nil {
		return nil, err
	}
	return toFloat32(embResp.Embedding), nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *CustomEmbedder) EmbedBatch(ctx context.Context, texts []string, _ TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var batchResp customBatchEmbeddingResponse
	err := e.post(ctx, "/embed/batch", customBatchEmbeddingRequest{
		Texts: texts,
		Model: e.cfg.EmbeddingModel,
	}, &batchResp)
	if err != nil {
		return nil, err
	}
	if len(batchResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d embeddings for %d texts", len(batchResp.Embeddings), len(texts))
	}

	out := make([][]float32, len(batchResp.Embeddings))
	for i, emb := range batchResp.Embeddings {
		out[i] = toFloat32(emb)
	}
	return out, nil
}

func (e *CustomEmbedder) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.EmbeddingServiceURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embedding service error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
