// Package api contains the HTTP handlers for the workflow manager REST API.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/auth"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server holds the dependencies for the API server.
type Server struct {
	Repo      repository.Repository
	Workflows *services.WorkflowService
	Sync      *services.SyncService
	Servers   *services.ServerService
	Templates *services.TemplateService
	Logger    *logging.Logger
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
}

// HandleHealth reports liveness. It answers 200 even when the database is
// unreachable and says so in the body.
func (s *Server) HandleHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "n8n-workflow-manager",
		Version:   Version,
		Database:  "ok",
	}
	if err := s.Repo.Ping(c.Request().Context()); err != nil {
		status.Database = err.Error()
	}
	return c.JSON(http.StatusOK, status)
}

// Status summarizes the store
// (GET /api/v1/status)
func (s *Server) Status(c echo.Context) error {
	st, err := s.Workflows.Status(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ListNodeTypes returns the node catalog
// (GET /api/v1/node-types)
func (s *Server) ListNodeTypes(c echo.Context) error {
	types, err := s.Workflows.NodeTypes(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	if types == nil {
		types = []models.NodeType{}
	}
	return c.JSON(http.StatusOK, types)
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidInput, apperr.KindConfiguration:
		return http.StatusBadRequest
	case apperr.KindUpstream, apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// audit logs a change made on a remote server together with the caller.
func (s *Server) audit(c echo.Context, format string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.With("subject", auth.Subject(c.Request().Context())).Info(format, args...)
}

// writeError writes err as an RFC 7807 Problem Details response.
func (s *Server) writeError(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		if s.Logger != nil {
			s.Logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
		}
		detail = "internal error"
	}
	return problem(c, status, string(kind), detail)
}

func problem(c echo.Context, status int, title, detail string) error {
	body, err := json.Marshal(ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
	if err != nil {
		return c.String(status, detail)
	}
	return c.Blob(status, "application/problem+json", body)
}

// ErrorHandler renders errors that escape the handlers, such as unknown
// routes, as Problem Details.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
		_ = problem(c, he.Code, http.StatusText(he.Code), detail)
		return
	}
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	_ = problem(c, status, string(kind), detail)
}

// pathID binds an integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, apperr.InvalidInput("invalid %s: %v", name, err)
	}
	return id, nil
}

// queryID binds an optional integer query parameter.
func queryID(c echo.Context, name string) (*int64, error) {
	var id *int64
	if err := runtime.BindQueryParameter("form", true, false, name, c.QueryParams(), &id); err != nil {
		return nil, apperr.InvalidInput("invalid %s: %v", name, err)
	}
	return id, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.InvalidInput("invalid request body: %v", err)
	}
	return nil
}
