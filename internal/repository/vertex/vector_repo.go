package vertex

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
	"github.com/gita-knowledge-api/internal/repository/postgres"
	"google.golang.org/api/option"
)

// Ensure VectorSearchRepository implements repository.Index and repository.Exporter
var (
	_ repository.Index    = (*VectorSearchRepository)(nil)
	_ repository.Exporter = (*VectorSearchRepository)(nil)
)

const upsertBatchSize = 100

// Config holds Vertex AI Vector Search configuration
type Config struct {
	ProjectID            string // GCP project ID
	Location             string // e.g., "us-central1"
	IndexID              string // Index receiving streaming upserts
	IndexEndpointID      string // Deployed index endpoint ID
	DeployedIndexID      string // The deployed index ID within the endpoint
	PublicEndpointDomain string // Public endpoint domain for queries (e.g., "123.us-central1-456.vdb.vertexai.goog")
}

// VectorSearchRepository implements repository.Index using Vertex AI Vector Search for neighbours
// and PostgreSQL for verse metadata, counts and the index schema
type VectorSearchRepository struct {
	config      Config
	matchClient *aiplatform.MatchClient
	indexClient *aiplatform.IndexClient
	meta        *postgres.VectorSearchRepository
}

// NewVectorSearchRepository creates a new Vertex AI vector search repository
func NewVectorSearchRepository(ctx context.Context, config Config, meta *postgres.VectorSearchRepository) (*VectorSearchRepository, error) {
	regional := fmt.Sprintf("%s-aiplatform.googleapis.com:443", config.Location)

	// For public endpoints, use the public domain; otherwise use regional endpoint
	matchEndpoint := regional
	if config.PublicEndpointDomain != "" {
		matchEndpoint = fmt.Sprintf("%s:443", config.PublicEndpointDomain)
	}

	matchClient, err := aiplatform.NewMatchClient(ctx, option.WithEndpoint(matchEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create match client: %w", err)
	}

	indexClient, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(regional))
	if err != nil {
		_ = matchClient.Close()
		return nil, fmt.Errorf("create index client: %w", err)
	}

	return &VectorSearchRepository{
		config:      config,
		matchClient: matchClient,
		indexClient: indexClient,
		meta:        meta,
	}, nil
}

// Close closes the Vertex AI clients and the metadata database
func (r *VectorSearchRepository) Close() error {
	var firstErr error
	for _, closeFn := range []func() error{r.matchClient.Close, r.indexClient.Close, r.meta.Close} {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Count returns the number of documents recorded in PostgreSQL
func (r *VectorSearchRepository) Count(ctx context.Context) (int, error) {
	return r.meta.Count(ctx)
}

// All streams every document recorded in PostgreSQL
func (r *VectorSearchRepository) All(ctx context.Context, fn func(models.Match) error) error {
	return r.meta.All(ctx, fn)
}

// LoadSchema returns the recorded schema
func (r *VectorSearchRepository) LoadSchema(ctx context.Context) (*models.IndexSchema, error) {
	return r.meta.LoadSchema(ctx)
}

// SaveSchema records the schema
func (r *VectorSearchRepository) SaveSchema(ctx context.Context, schema models.IndexSchema) error {
	return r.meta.SaveSchema(ctx, schema)
}

// Upsert stores documents in PostgreSQL, then streams their datapoints to the Vertex index
func (r *VectorSearchRepository) Upsert(ctx context.Context, docs []models.IndexedDocument, embeddings [][]float32) error {
	if err := r.meta.Upsert(ctx, docs, embeddings); err != nil {
		return err
	}

	indexName := fmt.Sprintf("projects/%s/locations/%s/indexes/%s",
		r.config.ProjectID, r.config.Location, r.config.IndexID)

	for start := 0; start < len(docs); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(docs))
		datapoints := make([]*aiplatformpb.IndexDatapoint, 0, end-start)
		for i := start; i < end; i++ {
			datapoints = append(datapoints, &aiplatformpb.IndexDatapoint{
				DatapointId:   docs[i].ID,
				FeatureVector: embeddings[i],
				Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
					{Namespace: "collection", AllowList: []string{r.meta.Collection()}},
				},
			})
		}

		_, err := r.indexClient.UpsertDatapoints(ctx, &aiplatformpb.UpsertDatapointsRequest{
			Index:      indexName,
			Datapoints: datapoints,
		})
		if err != nil {
			return fmt.Errorf("upsert datapoints %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Query performs nearest neighbour search using Vertex AI Vector Search
func (r *VectorSearchRepository) Query(ctx context.Context, embedding []float32, k int) ([]models.Match, error) {
	if k <= 0 {
		return []models.Match{}, nil
	}

	// Build the index endpoint resource name
	indexEndpoint := fmt.Sprintf(
		"projects/%s/locations/%s/indexEndpoints/%s",
		r.config.ProjectID,
		r.config.Location,
		r.config.IndexEndpointID,
	)

	req := &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:       indexEndpoint,
		DeployedIndexId:     r.config.DeployedIndexID,
		ReturnFullDatapoint: true,
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{
			{
				Datapoint: &aiplatformpb.IndexDatapoint{
					FeatureVector: embedding,
					Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
						{Namespace: "collection", AllowList: []string{r.meta.Collection()}},
					},
				},
				NeighborCount: int32(k),
			},
		},
	}

	resp, err := r.matchClient.FindNeighbors(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}
	if len(resp.NearestNeighbors) == 0 || len(resp.NearestNeighbors[0].Neighbors) == 0 {
		return []models.Match{}, nil
	}

	neighbors := resp.NearestNeighbors[0].Neighbors
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.GetDatapoint().GetDatapointId()
	}

	// Verse text lives in PostgreSQL
	byID, err := r.meta.LookupVerses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup verses: %w", err)
	}

	// Preserve the order from Vertex AI (sorted by relevance)
	results := make([]models.Match, 0, len(neighbors))
	for _, n := range neighbors {
		m, ok := byID[n.GetDatapoint().GetDatapointId()]
		if !ok {
			continue
		}
		if fv := n.GetDatapoint().GetFeatureVector(); len(fv) > 0 {
			m.Embedding = fv
		}
		m.Distance = n.GetDistance()
		results = append(results, m)
	}
	return results, nil
}
