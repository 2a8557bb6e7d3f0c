package models

import (
	"encoding/json"
	"time"
)

// Source records how a workflow entered the local store.
type Source string

const (
	SourceLocal    Source = "local"
	SourceImport   Source = "import"
	SourcePull     Source = "pull"
	SourceTemplate Source = "template"
	SourceAPI      Source = "api"
	SourceAPIBuild Source = "api-build"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceLocal, SourceImport, SourcePull, SourceTemplate, SourceAPI, SourceAPIBuild:
		return true
	}
	return false
}

// Workflow is a locally stored n8n workflow definition.
type Workflow struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Document    json.RawMessage `json:"workflow_json"` // opaque n8n document
	ContentHash string          `json:"content_hash"`  // fingerprint of the canonical document
	NodeCount   int             `json:"node_count"`
	TriggerType string          `json:"trigger_type"`
	Tags        []string        `json:"tags"`
	Active      bool            `json:"is_active"`
	Source      Source          `json:"source"`
	RemoteID    string          `json:"n8n_id"`    // assigned by the remote server
	ServerID    *int64          `json:"server_id"` // weak reference
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WorkflowVersion is an immutable snapshot of a workflow document.
type WorkflowVersion struct {
	ID            int64           `json:"id"`
	WorkflowID    int64           `json:"workflow_id"`
	VersionNumber int             `json:"version_number"`
	Document      json.RawMessage `json:"workflow_json"`
	ContentHash   string          `json:"content_hash"`
	ChangeNote    string          `json:"change_note"`
	CreatedAt     time.Time       `json:"created_at"`
}

// WorkflowFilter narrows ListWorkflows. Zero values mean no filter.
type WorkflowFilter struct {
	ServerID *int64
	Source   Source
}

// WorkflowUpdate carries the fields to change on a workflow. Nil fields are
// left untouched. When Document is set the derived fields are recomputed
// unless ContentHash, NodeCount or TriggerType are given explicitly.
type WorkflowUpdate struct {
	Name        *string
	Description *string
	Document    json.RawMessage
	Tags        []string
	Active      *bool
	RemoteID    *string
	ServerID    *int64

	ContentHash *string
	NodeCount   *int
	TriggerType *string
}

// IsEmpty reports whether the update changes nothing.
func (u WorkflowUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Document == nil && u.Tags == nil &&
		u.Active == nil && u.RemoteID == nil && u.ServerID == nil &&
		u.ContentHash == nil && u.NodeCount == nil && u.TriggerType == nil
}
