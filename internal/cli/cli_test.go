package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
)

const flowDoc = `{"name":"Flow","nodes":[{"name":"Start","type":"n8n-nodes-base.manualTrigger","parameters":{}},{"name":"Call","type":"n8n-nodes-base.httpRequest","parameters":{"url":"http://x"}}],"connections":{"Start":{"main":[[{"node":"Call","type":"main","index":0}]]}}}`

type harness struct {
	dir string
	db  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{dir: dir, db: filepath.Join(dir, "manager.db")}
}

// run executes one command line against the harness database.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--db", h.db}, args...)
	err := Execute(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, "", args...)
	require.NoError(t, err, "n8nmgr %s", strings.Join(args, " "))
	return out
}

func (h *harness) writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestImportListAndExport(t *testing.T) {
	h := newHarness(t)
	file := h.writeFile(t, "flow.json", flowDoc)

	out := h.mustRun(t, "import", file)
	assert.Contains(t, out, "Imported workflow 1 (Flow, 2 nodes)")

	_, err := h.run(t, "", "import", file)
	assert.True(t, apperr.IsConflict(err))

	out = h.mustRun(t, "list")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Flow")
	assert.Contains(t, out, "n8n-nodes-base.manualTrigger")

	out = h.mustRun(t, "--json", "list")
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())
	assert.Equal(t, "import", gjson.Get(out, "0.source").String())

	out = h.mustRun(t, "export", "1", "--format", "markdown")
	assert.True(t, strings.HasPrefix(out, "# Flow\n"))

	target := filepath.Join(h.dir, "out.json")
	h.mustRun(t, "export", "1", "-o", target)
	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "Flow", gjson.GetBytes(body, "name").String())

	dir := filepath.Join(h.dir, "all")
	out = h.mustRun(t, "export", "--all", dir)
	assert.Contains(t, out, "Exported 1 workflows")
	assert.FileExists(t, filepath.Join(dir, "1_Flow.json"))

	out = h.mustRun(t, "graph", "1")
	assert.Equal(t, int64(2), gjson.Get(out, "nodes.#").Int())
	assert.Equal(t, int64(1), gjson.Get(out, "edges.#").Int())
}

func TestImportFromStdin(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, `{"nodes":[],"connections":{}}`, "import", "-", "--name", "Piped")
	require.NoError(t, err)
	assert.Contains(t, out, "(Piped, 0 nodes)")

	_, err = h.run(t, `not json`, "import", "-")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestInvalidArguments(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "graph", "abc")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = h.run(t, "", "export")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = h.run(t, "", "graph", "42")
	assert.True(t, apperr.IsNotFound(err))

	_, err = h.run(t, "", "graph")
	assert.Error(t, err)
}

func TestServersPushAndPull(t *testing.T) {
	h := newHarness(t)

	var created int
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			created++
			_, _ = w.Write([]byte(`{"id":"77"}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"data":[` + flowDoc + `,{"id":"5","name":"Other","nodes":[],"connections":{}}]}`))
		}
	}))
	defer remote.Close()

	h.mustRun(t, "import", h.writeFile(t, "flow.json", flowDoc))

	_, err := h.run(t, "", "push", "1")
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))

	out := h.mustRun(t, "servers", "add", "local", remote.URL, "--api-key", "secret", "--default")
	assert.Contains(t, out, "Added server 1 (local)")

	out = h.mustRun(t, "servers", "list")
	assert.Contains(t, out, remote.URL)
	assert.NotContains(t, out, "secret")

	out = h.mustRun(t, "--json", "servers", "list")
	assert.False(t, gjson.Get(out, "0.api_key").Exists())
	assert.True(t, gjson.Get(out, "0.is_default").Bool())

	out = h.mustRun(t, "servers", "ping", "1")
	assert.Contains(t, out, "Server 1 is online")

	out = h.mustRun(t, "push", "1")
	assert.Contains(t, out, "Created workflow 1 on server 1 as 77")
	assert.Equal(t, 1, created)

	out = h.mustRun(t, "--json", "pull")
	assert.Equal(t, int64(1), gjson.Get(out, "imported").Int())
	assert.Equal(t, int64(1), gjson.Get(out, "skipped").Int())

	out = h.mustRun(t, "--json", "history", "--server", "1")
	assert.Equal(t, int64(2), gjson.Get(out, "#").Int())
	assert.Equal(t, "pull", gjson.Get(out, "0.direction").String())
	assert.Equal(t, "push", gjson.Get(out, "1.direction").String())

	out = h.mustRun(t, "status")
	assert.Contains(t, out, "Workflows: 2")
	assert.Contains(t, out, "Default:   local")

	h.mustRun(t, "servers", "add", "backup", "http://backup:5678")
	h.mustRun(t, "servers", "default", "2")
	out = h.mustRun(t, "--json", "status")
	assert.Equal(t, "backup", gjson.Get(out, "default_server.name").String())

	out = h.mustRun(t, "servers", "remove", "1")
	assert.Contains(t, out, "Removed server 1")
	_, err = h.run(t, "", "servers", "ping", "1")
	assert.True(t, apperr.IsNotFound(err))
}

func TestTemplates(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "templates", "seed")
	assert.Contains(t, out, "Added 3 built-in templates")

	out = h.mustRun(t, "templates", "list", "--category", "integration")
	assert.Contains(t, out, "Webhook to HTTP")
	assert.Contains(t, out, "name, webhook_path, target_url")

	doc := `{"name":"{{name}}","nodes":[{"name":"Hook","type":"n8n-nodes-base.webhook","parameters":{"path":"{{path}}"}}],"connections":{}}`
	out = h.mustRun(t, "templates", "add", "Hook", h.writeFile(t, "hook.json", doc), "--category", "custom")
	assert.Contains(t, out, "Added template 4 with placeholders [name, path]")

	out = h.mustRun(t, "--json", "templates", "instantiate", "4", "--set", "name=Orders", "--set", "path=orders")
	assert.Equal(t, "Orders", gjson.Get(out, "name").String())
	assert.Equal(t, "template", gjson.Get(out, "source").String())
	assert.Equal(t, "orders", gjson.Get(out, "workflow_json.nodes.0.parameters.path").String())
}

func TestVersions(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "import", h.writeFile(t, "flow.json", flowDoc))

	out := h.mustRun(t, "versions", "add", "1", "-m", "first")
	assert.Contains(t, out, "Saved version 1 of workflow 1")

	out = h.mustRun(t, "versions", "list", "1")
	assert.Contains(t, out, "first")

	out = h.mustRun(t, "versions", "restore", "1", "1")
	assert.Contains(t, out, "Restored workflow 1 to version 1")

	_, err := h.run(t, "", "versions", "restore", "1", "9")
	assert.True(t, apperr.IsNotFound(err))
}

func TestRegisterNeedsConfiguration(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "import", h.writeFile(t, "flow.json", flowDoc))

	_, err := h.run(t, "", "register", "1")
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
}

func TestConfigSkipsStore(t *testing.T) {
	h := newHarness(t)
	cfgFile := h.writeFile(t, "config.yaml", "auth:\n  client_secret: hunter2\nremote:\n  page_size: 25\n")

	out := h.mustRun(t, "--config", cfgFile, "config")
	assert.Equal(t, h.db, gjson.Get(out, "DB.Path").String())
	assert.Equal(t, "sqlite", gjson.Get(out, "DB.Driver").String())
	assert.Equal(t, int64(25), gjson.Get(out, "Remote.PageSize").Int())
	assert.Equal(t, "***", gjson.Get(out, "Auth.ClientSecret").String())
	assert.NoFileExists(t, h.db)
}
