// Package search maintains the external search index that powers project
// discovery. The relational store stays the source of truth; the index is a
// derived view kept in sync on status and content changes.
package search

import (
	"context"
	"time"

	"github.com/Geometrically/fabricate/internal/models"
)

// ProjectDocument is the denormalized search document for one project.
// Document ids carry a "local-" prefix so locally hosted projects stay
// distinguishable from any externally ingested ones.
type ProjectDocument struct {
	ProjectID    string    `json:"project_id"`
	ProjectType  string    `json:"project_type"`
	Slug         *string   `json:"slug"`
	Author       string    `json:"author"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Categories   []string  `json:"categories"`
	Versions     []string  `json:"versions"`
	Downloads    int64     `json:"downloads"`
	Follows      int64     `json:"follows"`
	IconURL      string    `json:"icon_url"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
	License      string    `json:"license"`
	ClientSide   string    `json:"client_side"`
	ServerSide   string    `json:"server_side"`
}

// DocumentID returns the index key for a project.
func DocumentID(projectID models.ID) string {
	return "local-" + projectID.Base62()
}

// Index is the search backend. UpsertProject is usually called through the
// async queue; DeleteProject runs synchronously because hiding a project
// must not race with readers.
type Index interface {
	UpsertProject(ctx context.Context, doc ProjectDocument) error
	DeleteProject(ctx context.Context, documentID string) error
}
