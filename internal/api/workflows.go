package api

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/export"
	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// ListWorkflows returns workflows, newest first
// (GET /api/v1/workflows?server_id=&source=)
func (s *Server) ListWorkflows(c echo.Context) error {
	serverID, err := queryID(c, "server_id")
	if err != nil {
		return s.writeError(c, err)
	}
	filter := models.WorkflowFilter{ServerID: serverID, Source: models.Source(c.QueryParam("source"))}
	workflows, err := s.Workflows.List(c.Request().Context(), filter)
	if err != nil {
		return s.writeError(c, err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflow stores a client supplied document
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	var req services.CreateRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Workflows.Create(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, wf)
}

// GetWorkflow (GET /api/v1/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Workflows.Get(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// UpdateWorkflow (PUT /api/v1/workflows/:id)
func (s *Server) UpdateWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	var req services.UpdateRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Workflows.Update(c.Request().Context(), id, req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// DeleteWorkflow (DELETE /api/v1/workflows/:id)
func (s *Server) DeleteWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	if err := s.Workflows.Delete(c.Request().Context(), id); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// WorkflowGraph returns the materialized graph
// (GET /api/v1/workflows/:id/graph)
func (s *Server) WorkflowGraph(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	g, err := s.Workflows.Graph(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// ExportWorkflow renders the workflow as JSON or Markdown
// (GET /api/v1/workflows/:id/export?format=)
func (s *Server) ExportWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return s.writeError(c, err)
	}
	body, err := s.Workflows.Export(c.Request().Context(), id, format)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Blob(http.StatusOK, format.ContentType(), body)
}

type buildResponse struct {
	*models.Workflow
	Message string `json:"message"`
}

// BuildWorkflow assembles and stores a declared workflow
// (POST /api/v1/workflows/build)
func (s *Server) BuildWorkflow(c echo.Context) error {
	var req services.BuildRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Workflows.Build(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, buildResponse{Workflow: wf, Message: "Workflow '" + wf.Name + "' built"})
}

// ImportRequest carries an external document and a fallback name.
type ImportRequest struct {
	Document json.RawMessage `json:"workflow_json"`
	Name     string          `json:"name"`
}

// ImportWorkflow stores an external document unless it is a duplicate
// (POST /api/v1/import)
func (s *Server) ImportWorkflow(c echo.Context) error {
	var req ImportRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Workflows.Import(c.Request().Context(), req.Document, req.Name)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, wf)
}

// ListVersions (GET /api/v1/workflows/:id/versions)
func (s *Server) ListVersions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	versions, err := s.Workflows.ListVersions(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	if versions == nil {
		versions = []*models.WorkflowVersion{}
	}
	return c.JSON(http.StatusOK, versions)
}

type versionRequest struct {
	Note string `json:"note"`
}

// AddVersion snapshots the current document
// (POST /api/v1/workflows/:id/versions)
func (s *Server) AddVersion(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	var req versionRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return s.writeError(c, err)
		}
	}
	v, err := s.Workflows.AddVersion(c.Request().Context(), id, req.Note)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func versionNumber(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("version"))
	if err != nil || n < 1 {
		return 0, apperr.InvalidInput("invalid version %q", c.Param("version"))
	}
	return n, nil
}

// GetVersion (GET /api/v1/workflows/:id/versions/:version)
func (s *Server) GetVersion(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	n, err := versionNumber(c)
	if err != nil {
		return s.writeError(c, err)
	}
	v, err := s.Workflows.GetVersion(c.Request().Context(), id, n)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// RestoreVersion (POST /api/v1/workflows/:id/versions/:version/restore)
func (s *Server) RestoreVersion(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	n, err := versionNumber(c)
	if err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Workflows.RestoreVersion(c.Request().Context(), id, n)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// PushWorkflow sends the workflow to a server, the default when server_id
// is absent
// (POST /api/v1/workflows/:id/push?server_id=)
func (s *Server) PushWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	serverID, err := queryID(c, "server_id")
	if err != nil {
		return s.writeError(c, err)
	}
	var sid int64
	if serverID != nil {
		sid = *serverID
	}
	res, err := s.Sync.Push(c.Request().Context(), id, sid)
	if err != nil {
		return s.writeError(c, err)
	}
	s.audit(c, "pushed workflow %d to server %d as %s", res.WorkflowID, res.ServerID, res.RemoteID)
	return c.JSON(http.StatusOK, res)
}

// ActivateWorkflow (POST /api/v1/workflows/:id/activate)
func (s *Server) ActivateWorkflow(c echo.Context) error {
	return s.setActive(c, true)
}

// DeactivateWorkflow (POST /api/v1/workflows/:id/deactivate)
func (s *Server) DeactivateWorkflow(c echo.Context) error {
	return s.setActive(c, false)
}

func (s *Server) setActive(c echo.Context, active bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Sync.SetActive(c.Request().Context(), id, active)
	if err != nil {
		return s.writeError(c, err)
	}
	s.audit(c, "set workflow %d active=%t", id, active)
	return c.JSON(http.StatusOK, wf)
}

// UnpublishWorkflow deletes the remote copy
// (DELETE /api/v1/workflows/:id/remote)
func (s *Server) UnpublishWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Sync.Unpublish(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	s.audit(c, "unpublished workflow %d", id)
	return c.JSON(http.StatusOK, wf)
}

// WorkflowDrift compares the local and remote copies
// (GET /api/v1/workflows/:id/drift)
func (s *Server) WorkflowDrift(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	res, err := s.Sync.Drift(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RegisterWorkflow hands the workflow to the toolchain registry
// (POST /api/v1/workflows/:id/register)
func (s *Server) RegisterWorkflow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	name, err := s.Workflows.Register(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"toolchain": name})
}
