package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gita-knowledge-api/internal/config"
	"github.com/gita-knowledge-api/internal/repository/vertex"
	schemacfg "github.com/gita-knowledge-api/pkg/schema/config"
)

func newVertexCmd() *cobra.Command {
	var displayName string

	adminConfig := func() (vertex.AdminConfig, error) {
		cfg := config.GetConfig()
		if cfg.VertexProjectID == "" {
			return vertex.AdminConfig{}, errors.New("VERTEX_PROJECT_ID is required")
		}
		return vertex.AdminConfig{
			ProjectID:   cfg.VertexProjectID,
			Location:    cfg.VertexLocation,
			DisplayName: displayName,
			Dimensions:  schemacfg.GetConfig().EmbeddingDimensions,
		}, nil
	}

	cmd := &cobra.Command{
		Use:   "vertex",
		Short: "Provision Vertex AI Vector Search resources for the vertex backend",
	}
	cmd.PersistentFlags().StringVar(&displayName, "display-name", "gita-verses", "resource display name")

	var contentsURI string
	createIndex := &cobra.Command{
		Use:   "create-index",
		Short: "Create a stream-update index, optionally seeded from an exported JSONL folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ac, err := adminConfig()
			if err != nil {
				return err
			}
			cmd.Println("Creating index; this can take 30-60 minutes...")
			id, err := vertex.CreateIndex(cmd.Context(), ac, contentsURI)
			if err != nil {
				return err
			}
			cmd.Printf("VERTEX_INDEX_ID=%s\n", id)
			return nil
		},
	}
	createIndex.Flags().StringVar(&contentsURI, "contents-uri", "", "gs:// folder holding exported embeddings")

	createEndpoint := &cobra.Command{
		Use:   "create-endpoint",
		Short: "Create a public index endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ac, err := adminConfig()
			if err != nil {
				return err
			}
			id, domain, err := vertex.CreateEndpoint(cmd.Context(), ac)
			if err != nil {
				return err
			}
			cmd.Printf("VERTEX_INDEX_ENDPOINT_ID=%s\n", id)
			cmd.Printf("VERTEX_PUBLIC_ENDPOINT_DOMAIN=%s\n", domain)
			return nil
		},
	}

	var indexID, endpointID string
	deploy := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy an index to an endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ac, err := adminConfig()
			if err != nil {
				return err
			}
			cmd.Println("Deploying index; this can take 20-30 minutes...")
			deployedID, err := vertex.DeployIndex(cmd.Context(), ac, indexID, endpointID)
			if err != nil {
				return err
			}
			cmd.Printf("VERTEX_DEPLOYED_INDEX_ID=%s\n", deployedID)
			return nil
		},
	}
	deploy.Flags().StringVar(&indexID, "index-id", "", "index ID")
	deploy.Flags().StringVar(&endpointID, "endpoint-id", "", "endpoint ID")
	_ = deploy.MarkFlagRequired("index-id")
	_ = deploy.MarkFlagRequired("endpoint-id")

	cmd.AddCommand(createIndex, createEndpoint, deploy)
	return cmd
}
