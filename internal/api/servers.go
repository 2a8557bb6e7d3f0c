package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// ServerRequest creates or changes a server. On update nil fields are left
// untouched.
type ServerRequest struct {
	Name      *string `json:"name"`
	URL       *string `json:"url"`
	APIKey    *string `json:"api_key"`
	IsDefault *bool   `json:"is_default"`
}

// redact hides the API key from responses.
func redact(srv *models.Server) *models.Server {
	out := *srv
	out.APIKey = ""
	return &out
}

// ListServers (GET /api/v1/servers)
func (s *Server) ListServers(c echo.Context) error {
	servers, err := s.Servers.List(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	out := make([]*models.Server, 0, len(servers))
	for _, srv := range servers {
		out = append(out, redact(srv))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateServer (POST /api/v1/servers)
func (s *Server) CreateServer(c echo.Context) error {
	var req ServerRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	srv := &models.Server{}
	if req.Name != nil {
		srv.Name = *req.Name
	}
	if req.URL != nil {
		srv.URL = *req.URL
	}
	if req.APIKey != nil {
		srv.APIKey = *req.APIKey
	}
	if req.IsDefault != nil {
		srv.IsDefault = *req.IsDefault
	}
	if err := s.Servers.Add(c.Request().Context(), srv); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, redact(srv))
}

// GetServer (GET /api/v1/servers/:id)
func (s *Server) GetServer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	srv, err := s.Servers.Get(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, redact(srv))
}

// UpdateServer (PUT /api/v1/servers/:id)
func (s *Server) UpdateServer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	var req ServerRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	upd := models.ServerUpdate{Name: req.Name, URL: req.URL, APIKey: req.APIKey}
	srv, err := s.Servers.Update(c.Request().Context(), id, upd, req.IsDefault)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, redact(srv))
}

// DeleteServer (DELETE /api/v1/servers/:id)
func (s *Server) DeleteServer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	if err := s.Servers.Delete(c.Request().Context(), id); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetDefaultServer (POST /api/v1/servers/:id/default)
func (s *Server) SetDefaultServer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	ctx := c.Request().Context()
	if err := s.Servers.SetDefault(ctx, id); err != nil {
		return s.writeError(c, err)
	}
	srv, err := s.Servers.Get(ctx, id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, redact(srv))
}

// PingServer checks reachability and records it
// (POST /api/v1/servers/:id/ping)
func (s *Server) PingServer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	res, err := s.Servers.Ping(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// PullWorkflows imports new workflows from a server; id 0 means the default
// (POST /api/v1/servers/:id/pull)
func (s *Server) PullWorkflows(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	res, err := s.Sync.Pull(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	s.audit(c, "pulled from server %d: %s", res.ServerID, res.Summary())
	return c.JSON(http.StatusOK, res)
}

// SyncHistory lists history entries, newest first
// (GET /api/v1/sync/history?workflow_id=&server_id=&limit=)
func (s *Server) SyncHistory(c echo.Context) error {
	workflowID, err := queryID(c, "workflow_id")
	if err != nil {
		return s.writeError(c, err)
	}
	serverID, err := queryID(c, "server_id")
	if err != nil {
		return s.writeError(c, err)
	}
	filter := models.SyncFilter{WorkflowID: workflowID, ServerID: serverID}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return s.writeError(c, apperr.InvalidInput("invalid limit %q", raw))
		}
		filter.Limit = n
	}
	entries, err := s.Repo.ListSyncHistory(c.Request().Context(), filter)
	if err != nil {
		return s.writeError(c, err)
	}
	if entries == nil {
		entries = []*models.SyncHistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
