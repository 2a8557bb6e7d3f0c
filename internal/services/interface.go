package services

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/lukisch/n8n-workflow-manager/internal/n8n"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// RemoteClient is the part of the n8n REST API the services use.
type RemoteClient interface {
	// Ping succeeds when the server answers an authenticated listing.
	Ping(ctx context.Context) error
	// ListAll returns every workflow on the server, following pagination.
	ListAll(ctx context.Context, pageSize int) ([]json.RawMessage, error)
	Get(ctx context.Context, remoteID string) (json.RawMessage, error)
	Create(ctx context.Context, doc []byte) (json.RawMessage, error)
	Update(ctx context.Context, remoteID string, doc []byte) (json.RawMessage, error)
	Delete(ctx context.Context, remoteID string) error
	Activate(ctx context.Context, remoteID string) (json.RawMessage, error)
	Deactivate(ctx context.Context, remoteID string) (json.RawMessage, error)
}

// ClientFactory returns a client bound to one server.
type ClientFactory func(srv *models.Server) RemoteClient

// NewClientFactory builds n8n REST clients with the given per-call timeout.
func NewClientFactory(timeout time.Duration) ClientFactory {
	return func(srv *models.Server) RemoteClient {
		return n8n.NewClient(srv.URL, srv.APIKey, n8n.WithTimeout(timeout))
	}
}
