package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterHandlers mounts the REST API on g, which is expected to be the
// /api/v1 group.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/status", s.Status)
	g.GET("/node-types", s.ListNodeTypes)
	g.POST("/import", s.ImportWorkflow)

	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow)
	g.POST("/workflows/build", s.BuildWorkflow)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.PUT("/workflows/:id", s.UpdateWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)
	g.GET("/workflows/:id/graph", s.WorkflowGraph)
	g.GET("/workflows/:id/export", s.ExportWorkflow)
	g.GET("/workflows/:id/versions", s.ListVersions)
	g.POST("/workflows/:id/versions", s.AddVersion)
	g.GET("/workflows/:id/versions/:version", s.GetVersion)
	g.POST("/workflows/:id/versions/:version/restore", s.RestoreVersion)
	g.POST("/workflows/:id/push", s.PushWorkflow)
	g.POST("/workflows/:id/activate", s.ActivateWorkflow)
	g.POST("/workflows/:id/deactivate", s.DeactivateWorkflow)
	g.DELETE("/workflows/:id/remote", s.UnpublishWorkflow)
	g.GET("/workflows/:id/drift", s.WorkflowDrift)
	g.POST("/workflows/:id/register", s.RegisterWorkflow)

	g.GET("/servers", s.ListServers)
	g.POST("/servers", s.CreateServer)
	g.GET("/servers/:id", s.GetServer)
	g.PUT("/servers/:id", s.UpdateServer)
	g.DELETE("/servers/:id", s.DeleteServer)
	g.POST("/servers/:id/default", s.SetDefaultServer)
	g.POST("/servers/:id/ping", s.PingServer)
	g.POST("/servers/:id/pull", s.PullWorkflows)
	g.GET("/sync/history", s.SyncHistory)

	g.GET("/templates", s.ListTemplates)
	g.POST("/templates", s.CreateTemplate)
	g.GET("/templates/:id", s.GetTemplate)
	g.DELETE("/templates/:id", s.DeleteTemplate)
	g.POST("/templates/:id/instantiate", s.InstantiateTemplate)
}
