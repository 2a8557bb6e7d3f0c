package services

import (
	"context"
	"time"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// PingResult is the outcome of a reachability check.
type PingResult struct {
	ServerID int64               `json:"server_id"`
	Status   models.ServerStatus `json:"status"`
	Detail   string              `json:"detail,omitempty"`
	PingedAt time.Time           `json:"pinged_at"`
}

// ServerService manages remote servers.
type ServerService struct {
	store   repository.Repository
	clients ClientFactory
	logger  *logging.Logger
	now     func() time.Time
}

// NewServerService creates a new ServerService.
func NewServerService(store repository.Repository, clients ClientFactory, logger *logging.Logger) *ServerService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ServerService{store: store, clients: clients, logger: logger, now: time.Now}
}

func (s *ServerService) List(ctx context.Context) ([]*models.Server, error) {
	return s.store.ListServers(ctx)
}

func (s *ServerService) Get(ctx context.Context, id int64) (*models.Server, error) {
	return s.store.GetServer(ctx, id)
}

// Resolve returns the server with id, or the default server when id is 0.
func (s *ServerService) Resolve(ctx context.Context, id int64) (*models.Server, error) {
	if id != 0 {
		return s.store.GetServer(ctx, id)
	}
	srv, err := s.store.GetDefaultServer(ctx)
	if err != nil {
		return nil, err
	}
	if srv == nil {
		return nil, apperr.Configuration("no server configured")
	}
	return srv, nil
}

// Add stores a server; IsDefault makes it the only default.
func (s *ServerService) Add(ctx context.Context, srv *models.Server) error {
	if err := s.store.CreateServer(ctx, srv); err != nil {
		return err
	}
	s.logger.Info("added server %d %q (%s)", srv.ID, srv.Name, srv.URL)
	return nil
}

// Update changes a server. makeDefault true moves the default flag to it,
// false drops the flag, nil leaves it alone.
func (s *ServerService) Update(ctx context.Context, id int64, upd models.ServerUpdate, makeDefault *bool) (*models.Server, error) {
	if makeDefault != nil && !*makeDefault {
		upd.ClearDefault = true
	}
	if _, err := s.store.UpdateServer(ctx, id, upd); err != nil {
		return nil, err
	}
	if makeDefault != nil && *makeDefault {
		if err := s.store.SetDefaultServer(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.store.GetServer(ctx, id)
}

func (s *ServerService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteServer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted server %d", id)
	return nil
}

func (s *ServerService) SetDefault(ctx context.Context, id int64) error {
	return s.store.SetDefaultServer(ctx, id)
}

// Ping checks reachability and stores the resulting status and time. An
// unreachable server is a result, not an error.
func (s *ServerService) Ping(ctx context.Context, id int64) (*PingResult, error) {
	srv, err := s.store.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !srv.HasCredential() {
		return nil, apperr.Configuration("credential missing for server %q", srv.Name)
	}

	res := &PingResult{ServerID: srv.ID, Status: models.ServerStatusOnline, PingedAt: s.now().UTC()}
	if err := s.clients(srv).Ping(ctx); err != nil {
		res.Status = models.ServerStatusOffline
		res.Detail = err.Error()
	}
	_, err = s.store.UpdateServer(ctx, srv.ID, models.ServerUpdate{Status: &res.Status, LastPing: &res.PingedAt})
	if err != nil {
		return nil, err
	}
	s.logger.Info("server %q is %s", srv.Name, res.Status)
	return res, nil
}
