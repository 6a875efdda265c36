package services

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/gita-knowledge-api/pkg/schema/config"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	vertexBatchLimit = 250
)

// VertexEmbedder implements Embedder using Google Cloud Vertex AI text embedding models
type VertexEmbedder struct {
	cfg      *config.Config
	client   *aiplatform.PredictionClient
	endpoint string
}

// NewVertexEmbedder creates a new Vertex AI embedder
func NewVertexEmbedder(ctx context.Context, cfg *config.Config) (*VertexEmbedder, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required for Vertex AI embeddings")
	}

	clientEndpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.GCPLocation)
	client, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(clientEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	endpoint := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
		cfg.GCPProjectID, cfg.GCPLocation, cfg.EmbeddingModel)

	return &VertexEmbedder{
		cfg:      cfg,
		client:   client,
		endpoint: endpoint,
	}, nil
}

// Close closes the Vertex AI client
func (e *VertexEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Embed generates an embedding for a single text
func (e *VertexEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting at the API batch limit
func (e *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += vertexBatchLimit {
		end := min(i+vertexBatchLimit, len(texts))
		batch, err := e.predict(ctx, texts[i:end], taskType)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (e *VertexEmbedder) predict(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	instances := make([]*structpb.Value, len(texts))
	for i, text := range texts {
		instance, err := structpb.NewStruct(map[string]interface{}{
			"content":   text,
			"task_type": string(taskType),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create instance: %w", err)
		}
		instances[i] = structpb.NewStructValue(instance)
	}

	req := &aiplatformpb.PredictRequest{
		Endpoint:  e.endpoint,
		Instances: instances,
	}
	if e.cfg.EmbeddingDimensions > 0 {
		params, err := structpb.NewStruct(map[string]interface{}{
			"outputDimensionality": e.cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create parameters: %w", err)
		}
		req.Parameters = structpb.NewStructValue(params)
	}

	resp, err := e.client.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vertex AI prediction failed: %w", err)
	}

	embeddings := make([][]float32, len(resp.Predictions))
	for i, prediction := range resp.Predictions {
		values, err := predictionValues(prediction)
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		embeddings[i] = values
	}
	return embeddings, nil
}

// predictionValues extracts predictions[i].embeddings.values
func predictionValues(prediction *structpb.Value) ([]float32, error) {
	predStruct := prediction.GetStructValue()
	if predStruct == nil {
		return nil, fmt.Errorf("unexpected prediction format")
	}
	embStruct := predStruct.Fields["embeddings"].GetStructValue()
	if embStruct == nil {
		return nil, fmt.Errorf("no embeddings field in prediction")
	}
	valuesList := embStruct.Fields["values"].GetListValue()
	if valuesList == nil {
		return nil, fmt.Errorf("no values field in embeddings")
	}

	embedding := make([]float32, len(valuesList.Values))
	for j, v := range valuesList.Values {
		embedding[j] = float32(v.GetNumberValue())
	}
	return embedding, nil
}
