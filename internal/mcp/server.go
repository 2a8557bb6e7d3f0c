// Package mcp exposes the workflow manager as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	workflows *services.WorkflowService
	sync      *services.SyncService
	servers   *services.ServerService
}

func NewServer(workflows *services.WorkflowService, sync *services.SyncService, servers *services.ServerService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"n8n Workflow Manager",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
		sync:      sync,
		servers:   servers,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List stored workflows, newest first"),
			mcp.WithString("source", mcp.Description("Only workflows from this source (local, api, api-build, import, pull, template)")),
			mcp.WithNumber("server_id", mcp.Description("Only workflows linked to this server")),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_workflow_graph",
			mcp.WithDescription("Render a stored workflow as nodes and edges"),
			mcp.WithNumber("workflow_id", mcp.Required(), mcp.Description("The ID of the workflow")),
		),
		s.handleGetWorkflowGraph,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"import_workflow",
			mcp.WithDescription("Import an n8n workflow document unless an identical one is stored"),
			mcp.WithString("workflow_json", mcp.Required(), mcp.Description("The workflow document as JSON text")),
			mcp.WithString("name", mcp.Description("Name to use when the document has none")),
		),
		s.handleImportWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"build_workflow",
			mcp.WithDescription("Build and store a workflow from declared nodes and connections"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name")),
			mcp.WithArray("nodes", mcp.Required(), mcp.Description("Nodes: {type, name, parameters, position}")),
			mcp.WithArray("connections", mcp.Description("Connections: {from_node, to_node, output_index, input_index}")),
		),
		s.handleBuildWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"push_workflow",
			mcp.WithDescription("Push a stored workflow to an n8n server"),
			mcp.WithNumber("workflow_id", mcp.Required(), mcp.Description("The ID of the workflow")),
			mcp.WithNumber("server_id", mcp.Description("Target server; the default server when omitted")),
		),
		s.handlePushWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"pull_workflows",
			mcp.WithDescription("Import every new workflow from an n8n server"),
			mcp.WithNumber("server_id", mcp.Description("Source server; the default server when omitted")),
		),
		s.handlePullWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_servers",
			mcp.WithDescription("List configured n8n servers"),
		),
		s.handleListServers,
	)
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

// optionalID reads a numeric id argument; absent means 0.
func optionalID(args map[string]interface{}, key string) (int64, bool) {
	v, present := args[key]
	if !present || v == nil {
		return 0, true
	}
	f, ok := v.(float64)
	if !ok || f < 0 || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func requiredID(args map[string]interface{}, key string) (int64, bool) {
	id, ok := optionalID(args, key)
	return id, ok && id > 0
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	filter := models.WorkflowFilter{}
	if src, ok := args["source"].(string); ok {
		filter.Source = models.Source(src)
	}
	serverID, ok := optionalID(args, "server_id")
	if !ok {
		return mcp.NewToolResultError("Invalid parameter: server_id"), nil
	}
	if serverID > 0 {
		filter.ServerID = &serverID
	}

	workflows, err := s.workflows.List(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}
	type summary struct {
		ID          int64         `json:"id"`
		Name        string        `json:"name"`
		NodeCount   int           `json:"node_count"`
		TriggerType string        `json:"trigger_type"`
		Source      models.Source `json:"source"`
		RemoteID    string        `json:"n8n_id,omitempty"`
		Active      bool          `json:"is_active"`
	}
	out := make([]summary, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, summary{wf.ID, wf.Name, wf.NodeCount, wf.TriggerType, wf.Source, wf.RemoteID, wf.Active})
	}
	return jsonResult(out)
}

func (s *Server) handleGetWorkflowGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	id, ok := requiredID(args, "workflow_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}

	g, err := s.workflows.Graph(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render workflow: %v", err)), nil
	}
	return jsonResult(g)
}

func (s *Server) handleImportWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	doc, ok := args["workflow_json"].(string)
	if !ok || doc == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_json"), nil
	}
	name, _ := args["name"].(string)

	wf, err := s.workflows.Import(ctx, []byte(doc), name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to import: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Imported workflow %d %q with %d nodes", wf.ID, wf.Name, wf.NodeCount)), nil
}

func (s *Server) handleBuildWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	if name, ok := args["name"].(string); !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}
	if _, ok := args["nodes"].([]interface{}); !ok {
		return mcp.NewToolResultError("Missing required parameter: nodes"), nil
	}

	// Round-trip through JSON to reuse the request's field names.
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	var req services.BuildRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	wf, err := s.workflows.Build(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build: %v", err)), nil
	}
	return jsonResult(wf)
}

func (s *Server) handlePushWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	id, ok := requiredID(args, "workflow_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	serverID, ok := optionalID(args, "server_id")
	if !ok {
		return mcp.NewToolResultError("Invalid parameter: server_id"), nil
	}

	res, err := s.sync.Push(ctx, id, serverID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to push: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) handlePullWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	serverID, ok := optionalID(args, "server_id")
	if !ok {
		return mcp.NewToolResultError("Invalid parameter: server_id"), nil
	}

	res, err := s.sync.Pull(ctx, serverID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to pull: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) handleListServers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	servers, err := s.servers.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list servers: %v", err)), nil
	}
	out := make([]models.Server, 0, len(servers))
	for _, srv := range servers {
		cp := *srv
		cp.APIKey = ""
		out = append(out, cp)
	}
	return jsonResult(out)
}

// MountHTTPHandlers serves the MCP SSE transport under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
