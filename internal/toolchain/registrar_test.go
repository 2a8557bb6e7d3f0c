package toolchain

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

func newRegistry(t *testing.T, withTable bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	if withTable {
		_, err = db.Exec(`CREATE TABLE toolchains (
			name TEXT PRIMARY KEY, chain_json TEXT, description TEXT, created_at TEXT, updated_at TEXT)`)
	} else {
		_, err = db.Exec(`CREATE TABLE other (id INTEGER)`)
	}
	require.NoError(t, err)
	return path
}

func workflow() *models.Workflow {
	return &models.Workflow{
		ID:          3,
		Name:        "Lead intake",
		Description: "CRM sync",
		RemoteID:    "77",
		Document: json.RawMessage(`{"nodes":[
			{"name":"Hook","type":"n8n-nodes-base.webhook","parameters":{"path":"lead"}},
			{"type":"n8n-nodes-base.set"}
		],"connections":{}}`),
	}
}

func TestRegisterInsertsOrReplaces(t *testing.T) {
	path := newRegistry(t, true)
	r := NewRegistrar(path)
	ctx := context.Background()

	name, err := r.Register(ctx, workflow())
	require.NoError(t, err)
	assert.Equal(t, "n8n_Lead_intake", name)
	_, err = r.Register(ctx, workflow())
	require.NoError(t, err)

	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM toolchains`).Scan(&count))
	assert.Equal(t, 1, count)

	var chain, desc string
	require.NoError(t, db.QueryRow(`SELECT chain_json, description FROM toolchains WHERE name = ?`, name).Scan(&chain, &desc))
	assert.Equal(t, "CRM sync", desc)
	assert.Equal(t, "n8nManager", gjson.Get(chain, "source").String())
	assert.Equal(t, int64(3), gjson.Get(chain, "workflow_id").Int())
	assert.Equal(t, "77", gjson.Get(chain, "n8n_id").String())
	assert.Equal(t, "lead", gjson.Get(chain, "steps.0.parameters.path").String())
	assert.Equal(t, "Step_2", gjson.Get(chain, "steps.1.name").String())
	assert.Equal(t, int64(2), gjson.Get(chain, "steps.1.step").Int())
}

func TestRegisterMissingDatabaseOrTable(t *testing.T) {
	ctx := context.Background()

	_, err := NewRegistrar(filepath.Join(t.TempDir(), "absent.db")).Register(ctx, workflow())
	assert.True(t, apperr.IsNotFound(err))

	_, err = NewRegistrar(newRegistry(t, false)).Register(ctx, workflow())
	assert.True(t, apperr.IsNotFound(err))
}

func TestChainNameTruncates(t *testing.T) {
	name := ChainName(strings.Repeat("x y", 60))
	assert.Len(t, name, 100)
	assert.True(t, strings.HasPrefix(name, "n8n_x_y"))
}
