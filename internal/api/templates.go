package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// ListTemplates (GET /api/v1/templates?category=)
func (s *Server) ListTemplates(c echo.Context) error {
	templates, err := s.Templates.List(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return s.writeError(c, err)
	}
	if templates == nil {
		templates = []*models.Template{}
	}
	return c.JSON(http.StatusOK, templates)
}

// CreateTemplate (POST /api/v1/templates)
func (s *Server) CreateTemplate(c echo.Context) error {
	var tpl models.Template
	if err := bind(c, &tpl); err != nil {
		return s.writeError(c, err)
	}
	tpl.ID = 0
	if err := s.Templates.Create(c.Request().Context(), &tpl); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tpl)
}

// GetTemplate (GET /api/v1/templates/:id)
func (s *Server) GetTemplate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	tpl, err := s.Templates.Get(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate (DELETE /api/v1/templates/:id)
func (s *Server) DeleteTemplate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	if err := s.Templates.Delete(c.Request().Context(), id); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// InstantiateRequest fills a template's placeholders.
type InstantiateRequest struct {
	Values map[string]any `json:"values"`
}

// InstantiateTemplate stores a filled template as a new workflow
// (POST /api/v1/templates/:id/instantiate)
func (s *Server) InstantiateTemplate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return s.writeError(c, err)
	}
	var req InstantiateRequest
	if err := bind(c, &req); err != nil {
		return s.writeError(c, err)
	}
	wf, err := s.Templates.Instantiate(c.Request().Context(), id, services.StringValues(req.Values))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, wf)
}
