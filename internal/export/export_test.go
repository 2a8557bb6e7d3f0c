package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const doc = `{"name":"Report","nodes":[
 {"name":"Cron","type":"n8n-nodes-base.scheduleTrigger","parameters":{}},
 {"name":"Fetch","type":"n8n-nodes-base.httpRequest","parameters":{"url":"https://x","method":"GET","timeout":30,"retry":true}}
],"connections":{"Cron":{"main":[[{"node":"Fetch","type":"main","index":0}]]}}}`

func sample() *models.Workflow {
	return &models.Workflow{
		ID:          7,
		Name:        "Daily / Report",
		Description: "Fetches the report",
		Document:    json.RawMessage(doc),
		TriggerType: "n8n-nodes-base.scheduleTrigger",
		Source:      models.SourceImport,
		CreatedAt:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestJSONIsIndentedDocument(t *testing.T) {
	out, err := JSON(sample())
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
	assert.Contains(t, string(out), "\n  \"nodes\"")

	_, err = JSON(&models.Workflow{Document: json.RawMessage(`{bad`)})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestMarkdown(t *testing.T) {
	md := string(Markdown(sample()))

	assert.True(t, strings.HasPrefix(md, "# Daily / Report\n\n> Fetches the report\n"))
	assert.Contains(t, md, "- **Nodes:** 2\n")
	assert.Contains(t, md, "- **Trigger:** n8n-nodes-base.scheduleTrigger\n")
	assert.Contains(t, md, "- **Created:** 2026-03-01T08:00:00Z\n")
	assert.Contains(t, md, "| 2 | Fetch | `n8n-nodes-base.httpRequest` | url=https://x, method=GET, timeout=30... |\n")
	assert.Contains(t, md, "- Cron -> Fetch\n")
}

func TestFileNameAndWriteAll(t *testing.T) {
	wf := sample()
	assert.Equal(t, "7_Daily___Report.json", FileName(wf))

	long := &models.Workflow{ID: 1, Name: strings.Repeat("a", 80)}
	assert.Equal(t, "1_"+strings.Repeat("a", 50)+".json", FileName(long))

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll([]*models.Workflow{wf}, dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(data))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MD")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("yaml")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}
