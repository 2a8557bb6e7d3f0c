package models

import "time"

// ServerStatus is the last known reachability of a server.
type ServerStatus string

const (
	ServerStatusUnknown ServerStatus = "unknown"
	ServerStatusOnline  ServerStatus = "online"
	ServerStatusOffline ServerStatus = "offline"
)

// Server is a remote n8n instance.
type Server struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	URL       string       `json:"url"`
	APIKey    string       `json:"api_key,omitempty"`
	IsDefault bool         `json:"is_default"`
	Status    ServerStatus `json:"status"`
	LastPing  *time.Time   `json:"last_ping,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// HasCredential reports whether an API key is configured.
func (s *Server) HasCredential() bool {
	return s != nil && s.APIKey != ""
}

// ServerUpdate carries the fields to change on a server. Nil fields are left
// untouched. Making a server the default goes through SetDefaultServer.
type ServerUpdate struct {
	Name     *string
	URL      *string
	APIKey   *string
	Status   *ServerStatus
	LastPing *time.Time
	// ClearDefault drops the default flag from this server.
	ClearDefault bool
}
