package vertex

import (
	"context"
	"fmt"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// AdminConfig describes where Vertex AI Vector Search resources are created
type AdminConfig struct {
	ProjectID   string
	Location    string
	DisplayName string
	Dimensions  int
}

func (c AdminConfig) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.ProjectID, c.Location)
}

func (c AdminConfig) endpoint() string {
	return fmt.Sprintf("%s-aiplatform.googleapis.com:443", c.Location)
}

// IndexMetadata builds the tree-AH cosine index configuration.
// contentsURI may be empty to create an empty stream-update index.
func IndexMetadata(dimensions int, contentsURI string) (*structpb.Struct, error) {
	cfg := map[string]any{
		"dimensions":                dimensions,
		"approximateNeighborsCount": 10,
		"distanceMeasureType":       "COSINE_DISTANCE",
		"algorithmConfig": map[string]any{
			"treeAhConfig": map[string]any{
				"leafNodeEmbeddingCount":   100,
				"leafNodesToSearchPercent": 10,
			},
		},
	}
	meta := map[string]any{"config": cfg}
	if contentsURI != "" {
		meta["contentsDeltaUri"] = contentsURI
	}
	s, err := structpb.NewStruct(meta)
	if err != nil {
		return nil, fmt.Errorf("build index metadata: %w", err)
	}
	return s, nil
}

// CreateIndex creates a stream-update index and waits for it. It returns the index ID.
func CreateIndex(ctx context.Context, cfg AdminConfig, contentsURI string) (string, error) {
	meta, err := IndexMetadata(cfg.Dimensions, contentsURI)
	if err != nil {
		return "", err
	}

	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(cfg.endpoint()))
	if err != nil {
		return "", fmt.Errorf("create index client: %w", err)
	}
	defer client.Close()

	op, err := client.CreateIndex(ctx, &aiplatformpb.CreateIndexRequest{
		Parent: cfg.parent(),
		Index: &aiplatformpb.Index{
			DisplayName:       cfg.DisplayName,
			Description:       "Bhagavad Gita verse embeddings",
			Metadata:          structpb.NewStructValue(meta),
			IndexUpdateMethod: aiplatformpb.Index_STREAM_UPDATE,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}

	index, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for index: %w", err)
	}
	return ResourceID(index.GetName()), nil
}

// CreateEndpoint creates a public index endpoint. It returns the endpoint ID and public domain.
func CreateEndpoint(ctx context.Context, cfg AdminConfig) (string, string, error) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(cfg.endpoint()))
	if err != nil {
		return "", "", fmt.Errorf("create endpoint client: %w", err)
	}
	defer client.Close()

	op, err := client.CreateIndexEndpoint(ctx, &aiplatformpb.CreateIndexEndpointRequest{
		Parent: cfg.parent(),
		IndexEndpoint: &aiplatformpb.IndexEndpoint{
			DisplayName:           cfg.DisplayName + "-endpoint",
			Description:           "Public endpoint for Gita verse search",
			PublicEndpointEnabled: true,
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("create endpoint: %w", err)
	}

	ep, err := op.Wait(ctx)
	if err != nil {
		return "", "", fmt.Errorf("wait for endpoint: %w", err)
	}
	return ResourceID(ep.GetName()), ep.GetPublicEndpointDomainName(), nil
}

// DeployIndex deploys an index to an endpoint and returns the deployed index ID
func DeployIndex(ctx context.Context, cfg AdminConfig, indexID, endpointID string) (string, error) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(cfg.endpoint()))
	if err != nil {
		return "", fmt.Errorf("create endpoint client: %w", err)
	}
	defer client.Close()

	deployedID := DeployedIndexID(cfg.DisplayName, time.Now())
	op, err := client.DeployIndex(ctx, &aiplatformpb.DeployIndexRequest{
		IndexEndpoint: fmt.Sprintf("%s/indexEndpoints/%s", cfg.parent(), endpointID),
		DeployedIndex: &aiplatformpb.DeployedIndex{
			Id:    deployedID,
			Index: fmt.Sprintf("%s/indexes/%s", cfg.parent(), indexID),
			AutomaticResources: &aiplatformpb.AutomaticResources{
				MinReplicaCount: 1,
				MaxReplicaCount: 1,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("deploy index: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for deployment: %w", err)
	}
	return deployedID, nil
}

// DeployedIndexID derives a deployed index ID: it must start with a letter and
// contain only letters, digits and underscores.
func DeployedIndexID(displayName string, now time.Time) string {
	var b strings.Builder
	for _, r := range displayName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return fmt.Sprintf("deployed_%s_%d", b.String(), now.Unix())
}

// ResourceID returns the last component of a resource name like projects/X/locations/Y/indexes/Z
func ResourceID(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
