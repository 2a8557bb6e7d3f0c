package repository

import (
	"context"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// WorkflowStore persists workflows.
type WorkflowStore interface {
	// CreateWorkflow inserts a workflow and fills in its ID, derived fields
	// and timestamps.
	CreateWorkflow(ctx context.Context, wf *models.Workflow) error
	// GetWorkflow retrieves a workflow by its ID.
	GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error)
	// ListWorkflows returns workflows, most recently updated first.
	ListWorkflows(ctx context.Context, filter models.WorkflowFilter) ([]*models.Workflow, error)
	// UpdateWorkflow applies upd and returns the stored result.
	UpdateWorkflow(ctx context.Context, id int64, upd models.WorkflowUpdate) (*models.Workflow, error)
	// DeleteWorkflow removes the workflow row only.
	DeleteWorkflow(ctx context.Context, id int64) error
	// WorkflowExistsByHash reports whether any workflow has the fingerprint.
	WorkflowExistsByHash(ctx context.Context, contentHash string) (bool, error)
}

// ServerStore persists remote servers.
type ServerStore interface {
	CreateServer(ctx context.Context, srv *models.Server) error
	GetServer(ctx context.Context, id int64) (*models.Server, error)
	GetServerByName(ctx context.Context, name string) (*models.Server, error)
	ListServers(ctx context.Context) ([]*models.Server, error)
	UpdateServer(ctx context.Context, id int64, upd models.ServerUpdate) (*models.Server, error)
	DeleteServer(ctx context.Context, id int64) error
	// SetDefaultServer makes id the only default server.
	SetDefaultServer(ctx context.Context, id int64) error
	// GetDefaultServer returns nil and no error when no default is set.
	GetDefaultServer(ctx context.Context) (*models.Server, error)
}

// SyncHistoryStore records sync attempts.
type SyncHistoryStore interface {
	AddSyncEntry(ctx context.Context, entry *models.SyncHistoryEntry) error
	ListSyncHistory(ctx context.Context, filter models.SyncFilter) ([]*models.SyncHistoryEntry, error)
}

// VersionStore keeps document snapshots.
type VersionStore interface {
	// AddVersion snapshots doc as the next version of the workflow.
	AddVersion(ctx context.Context, workflowID int64, doc []byte, note string) (*models.WorkflowVersion, error)
	// ListVersions returns the versions of a workflow, newest first.
	ListVersions(ctx context.Context, workflowID int64) ([]*models.WorkflowVersion, error)
	GetVersion(ctx context.Context, workflowID int64, number int) (*models.WorkflowVersion, error)
}

// TemplateStore persists workflow templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, tpl *models.Template) error
	GetTemplate(ctx context.Context, id int64) (*models.Template, error)
	// ListTemplates returns all templates, or those of one category.
	ListTemplates(ctx context.Context, category string) ([]*models.Template, error)
	DeleteTemplate(ctx context.Context, id int64) error
}

// CatalogStore reads the static node type catalog.
type CatalogStore interface {
	ListNodeTypes(ctx context.Context) ([]models.NodeType, error)
}

// Repository is the complete local store.
type Repository interface {
	WorkflowStore
	ServerStore
	SyncHistoryStore
	VersionStore
	TemplateStore
	CatalogStore

	Ping(ctx context.Context) error
	Close() error
}
