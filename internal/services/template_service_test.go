package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const webhookTemplate = `{"name":"{{name}}","nodes":[{"name":"Hook","type":"n8n-nodes-base.webhook","parameters":{"path":"{{path}}","note":"{{ $json.body }}"}}],"connections":{},"retries":{{retries}}}`

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"name", "path", "retries"}, Placeholders(webhookTemplate))
	assert.Empty(t, Placeholders(`{"a":"{{ $json.x }}"}`))
	assert.Equal(t, []string{"a.b"}, Placeholders(`{{a.b}} {{a.b}}`))
	assert.Equal(t, `x {{missing}}`, Fill(`{{v}} {{missing}}`, map[string]string{"v": "x"}))
}

func TestFillDoesNotRescanValues(t *testing.T) {
	values := map[string]string{"name": "{{b}}", "b": "X"}
	for i := 0; i < 50; i++ {
		assert.Equal(t, `{"name":"{{b}}","x":"X"}`, Fill(`{"name":"{{name}}","x":"{{b}}"}`, values))
	}
}

func TestInstantiate(t *testing.T) {
	ctx := context.Background()
	svc := NewTemplateService(newStore(t), nil)

	tpl := &models.Template{Name: "Webhook", Description: "basic hook", Document: webhookTemplate}
	require.NoError(t, svc.Create(ctx, tpl))
	assert.Equal(t, []string{"name", "path", "retries"}, tpl.Placeholders)
	assert.Equal(t, "general", tpl.Category)

	wf, err := svc.Instantiate(ctx, tpl.ID, StringValues(map[string]any{
		"name": "Orders", "path": "orders", "retries": 3,
	}))
	require.NoError(t, err)
	assert.Equal(t, "Orders", wf.Name)
	assert.Equal(t, "basic hook", wf.Description)
	assert.Equal(t, models.SourceTemplate, wf.Source)
	assert.Equal(t, "n8n-nodes-base.webhook", wf.TriggerType)
	assert.Equal(t, int64(3), gjson.GetBytes(wf.Document, "retries").Int())
	assert.Equal(t, "{{ $json.body }}", gjson.GetBytes(wf.Document, "nodes.0.parameters.note").String())

	_, err = svc.Instantiate(ctx, tpl.ID, map[string]string{"name": "Broken"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = svc.Instantiate(ctx, 999, nil)
	assert.True(t, apperr.IsNotFound(err))

	dup := &models.Template{Name: "Webhook", Document: "{}"}
	assert.True(t, apperr.IsConflict(svc.Create(ctx, dup)))
}

func TestSeedBuiltins(t *testing.T) {
	ctx := context.Background()
	svc := NewTemplateService(newStore(t), nil)

	added, err := svc.SeedBuiltins(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(builtins), added)

	added, err = svc.SeedBuiltins(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	templates, err := svc.List(ctx, "integration")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, []string{"name", "webhook_path", "target_url"}, templates[0].Placeholders)

	wf, err := svc.Instantiate(ctx, templates[0].ID, map[string]string{
		"name": "Relay", "webhook_path": "in", "target_url": "https://example.com/hook",
	})
	require.NoError(t, err)
	assert.Equal(t, "Relay", gjson.GetBytes(wf.Document, "name").String())
	assert.Equal(t, 2, wf.NodeCount)
	assert.Equal(t, "n8n-nodes-base.webhook", wf.TriggerType)
}
