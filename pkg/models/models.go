// Package models defines the domain models for the workflow manager
package models

import "time"

// SyncDirection is the direction of a sync attempt.
type SyncDirection string

const (
	SyncPush SyncDirection = "push"
	SyncPull SyncDirection = "pull"
)

// SyncStatus is the outcome of a sync attempt.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// SyncHistoryEntry is an append-only audit record of one push or pull.
type SyncHistoryEntry struct {
	ID         int64         `json:"id"`
	WorkflowID *int64        `json:"workflow_id"` // nil for whole-server pulls
	ServerID   int64         `json:"server_id"`
	Direction  SyncDirection `json:"direction"`
	Status     SyncStatus    `json:"status"`
	Details    string        `json:"details"`
	SyncedAt   time.Time     `json:"synced_at"`
}

// SyncFilter narrows ListSyncHistory.
type SyncFilter struct {
	WorkflowID *int64
	ServerID   *int64
	Limit      int
}

// Template is a workflow document with {{key}} placeholders.
type Template struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Document     string    `json:"template_json"` // not necessarily JSON until instantiated
	Placeholders []string  `json:"placeholders"`
	CreatedAt    time.Time `json:"created_at"`
}

// NodeType is display metadata for a known n8n node type.
type NodeType struct {
	Type        string `json:"node_type"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
}

// Status summarizes the local store.
type Status struct {
	Workflows     int     `json:"workflows"`
	Servers       int     `json:"servers"`
	Templates     int     `json:"templates"`
	DefaultServer *Server `json:"default_server,omitempty"`
}
