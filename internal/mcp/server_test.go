package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const doc = `{"name":"Flow","nodes":[{"name":"Start","type":"n8n-nodes-base.manualTrigger"}],"connections":{}}`

func newTestServer(t *testing.T) (*Server, repository.Repository) {
	t.Helper()
	repo, err := repository.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	clients := services.NewClientFactory(time.Second)
	return NewServer(
		services.NewWorkflowService(repo, nil, nil),
		services.NewSyncService(repo, clients, nil),
		services.NewServerService(repo, clients, nil),
	), repo
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestImportListAndGraph(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleImportWorkflow(ctx, call(map[string]interface{}{"workflow_json": doc}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"Flow"`)

	res, err = s.handleImportWorkflow(ctx, call(map[string]interface{}{"workflow_json": doc}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "duplicate")

	res, err = s.handleListWorkflows(ctx, call(map[string]interface{}{"source": "import"}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())
	id := gjson.Get(out, "0.id").Float()

	res, err = s.handleGetWorkflowGraph(ctx, call(map[string]interface{}{"workflow_id": id}))
	require.NoError(t, err)
	assert.Equal(t, "#ff6d5a", gjson.Get(text(t, res), "nodes.0.color").String())

	res, err = s.handleGetWorkflowGraph(ctx, call(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestBuildWorkflow(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleBuildWorkflow(context.Background(), call(map[string]interface{}{
		"name": "Built",
		"nodes": []interface{}{
			map[string]interface{}{"type": "n8n-nodes-base.webhook", "name": "Hook", "parameters": map[string]interface{}{"path": "x"}},
			map[string]interface{}{"name": "Next", "position": []interface{}{500.0, 300.0}},
		},
		"connections": []interface{}{
			map[string]interface{}{"from_node": "Hook", "to_node": "Next"},
		},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	out := text(t, res)
	assert.Equal(t, "api-build", gjson.Get(out, "source").String())
	assert.Equal(t, int64(2), gjson.Get(out, "node_count").Int())

	res, err = s.handleBuildWorkflow(context.Background(), call(map[string]interface{}{"name": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestPushAndPullTools(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"9"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"3","name":"Remote","nodes":[],"connections":{}}]}`))
	}))
	defer remote.Close()

	res, err := s.handlePullWorkflows(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "no server configured")

	require.NoError(t, repo.CreateServer(ctx, &models.Server{Name: "n8n", URL: remote.URL, APIKey: "secret", IsDefault: true}))

	res, err = s.handlePullWorkflows(ctx, call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, int64(1), gjson.Get(text(t, res), "imported").Int())

	wf := &models.Workflow{Name: "Local", Document: []byte(doc)}
	require.NoError(t, repo.CreateWorkflow(ctx, wf))
	res, err = s.handlePushWorkflow(ctx, call(map[string]interface{}{"workflow_id": float64(wf.ID)}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, "9", gjson.Get(text(t, res), "n8n_id").String())

	res, err = s.handleListServers(ctx, call(nil))
	require.NoError(t, err)
	out := text(t, res)
	assert.Equal(t, "n8n", gjson.Get(out, "0.name").String())
	assert.NotContains(t, out, "secret")
}
