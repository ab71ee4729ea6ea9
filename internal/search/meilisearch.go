package search

import (
	"context"
	"fmt"

	"github.com/meilisearch/meilisearch-go"
)

const projectsIndex = "projects"

// MeiliIndex implements Index against a Meilisearch instance.
type MeiliIndex struct {
	client meilisearch.ServiceManager
}

// NewMeiliIndex connects to Meilisearch and configures the projects index
// settings. The settings update is idempotent.
func NewMeiliIndex(url, apiKey string) (*MeiliIndex, error) {
	var opts []meilisearch.Option
	if apiKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(apiKey))
	}
	client := meilisearch.New(url, opts...)

	idx := client.Index(projectsIndex)
	_, err := idx.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"title", "description", "author", "slug"},
		FilterableAttributes: []string{"categories", "versions", "license", "client_side", "server_side", "project_type"},
		SortableAttributes:   []string{"downloads", "follows", "date_created", "date_modified"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure search index: %w", err)
	}

	return &MeiliIndex{client: client}, nil
}

// UpsertProject adds or replaces the project document.
func (m *MeiliIndex) UpsertProject(ctx context.Context, doc ProjectDocument) error {
	_, err := m.client.Index(projectsIndex).AddDocuments([]ProjectDocument{doc}, "project_id")
	if err != nil {
		return fmt.Errorf("failed to upsert search document %s: %w", doc.ProjectID, err)
	}
	return nil
}

// DeleteProject removes the document by id. Missing documents are not an
// error on the Meilisearch side.
func (m *MeiliIndex) DeleteProject(ctx context.Context, documentID string) error {
	_, err := m.client.Index(projectsIndex).DeleteDocument(documentID)
	if err != nil {
		return fmt.Errorf("failed to delete search document %s: %w", documentID, err)
	}
	return nil
}
