package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/document"
	"github.com/lukisch/n8n-workflow-manager/internal/graph"
)

func TestConnectGrowsOutputSlots(t *testing.T) {
	b := New("Branching")
	src := b.AddNode("n8n-nodes-base.switch", "Route", nil, nil)
	dst := b.AddNode("n8n-nodes-base.noOp", "Third", nil, nil)

	b.Connect(src, dst, 2, 0)

	slots := b.Build().Connections[src]["main"]
	require.Len(t, slots, 3)
	assert.Empty(t, slots[0])
	assert.Empty(t, slots[1])
	assert.Equal(t, []Target{{Node: "Third", Type: "main", Index: 0}}, slots[2])

	b.Connect(src, dst, 0, 1)
	slots = b.Build().Connections[src]["main"]
	require.Len(t, slots, 3)
	assert.Equal(t, []Target{{Node: "Third", Type: "main", Index: 1}}, slots[0])
}

func TestBuiltWorkflowIsNotChangedByLaterConnects(t *testing.T) {
	b := New("Snapshot")
	a := b.AddNode("n8n-nodes-base.manualTrigger", "A", nil, nil)
	c := b.AddNode("n8n-nodes-base.noOp", "C", nil, nil)
	d := b.AddNode("n8n-nodes-base.noOp", "D", nil, nil)
	b.Connect(a, c, 0, 0)

	built := b.Build()
	b.Connect(a, d, 0, 0)
	b.Connect(c, d, 0, 0)

	assert.Len(t, built.Connections, 1)
	assert.Equal(t, []Target{{Node: "C", Type: "main", Index: 0}}, built.Connections[a]["main"][0])
	assert.Len(t, b.Build().Connections[a]["main"][0], 2)
}

func TestAddNodeDefaults(t *testing.T) {
	b := New("")
	first := b.AddNode("n8n-nodes-base.set", "", nil, nil)
	second := b.AddNode("n8n-nodes-base.set", "Named", nil, nil)
	third := b.AddNode("n8n-nodes-base.set", "", nil, &[2]float64{10, 20})

	assert.Equal(t, "Node_1", first)
	assert.Equal(t, "Named", second)
	assert.Equal(t, "Node_2", third)

	wf := b.Build()
	assert.Equal(t, "New Workflow", wf.Name)
	assert.Equal(t, [2]float64{0, 300}, wf.Nodes[0].Position)
	assert.Equal(t, [2]float64{250, 300}, wf.Nodes[1].Position)
	assert.Equal(t, [2]float64{10, 20}, wf.Nodes[2].Position)
	assert.NotEqual(t, wf.Nodes[0].ID, wf.Nodes[1].ID)
	assert.NotNil(t, wf.Nodes[0].Parameters)
}

func TestBuildProducesValidDocument(t *testing.T) {
	b := New("Daily report")
	trigger := b.AddScheduleTrigger("0 9 * * *", "")
	fetch := b.AddHTTPRequest("https://example.com/report", "GET", "")
	check := b.AddIfNode("status", "", "ok", "")
	b.Connect(trigger, fetch, 0, 0)
	b.Connect(fetch, check, 0, 0)

	doc, err := b.Build().JSON()
	require.NoError(t, err)

	ok, reason := document.Validate(doc)
	assert.True(t, ok, reason)
	assert.False(t, gjson.GetBytes(doc, "active").Bool())
	assert.Equal(t, "v1", gjson.GetBytes(doc, "settings.executionOrder").String())
	assert.Equal(t, "[]", gjson.GetBytes(doc, "tags").Raw)
	assert.Equal(t, `={{$json["status"]}}`, gjson.GetBytes(doc, "nodes.2.parameters.conditions.string.0.value1").String())

	md := document.Derive(doc)
	assert.Equal(t, 3, md.NodeCount)
	assert.Equal(t, "n8n-nodes-base.scheduleTrigger", md.TriggerType)

	g := graph.Materialize(doc, nil)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, 0, g.Edges[0].From)
	assert.Equal(t, 1, g.Edges[0].To)
}

func TestEmptyBuildIsValid(t *testing.T) {
	doc, err := New("Empty").Build().JSON()
	require.NoError(t, err)

	ok, _ := document.Validate(doc)
	assert.True(t, ok)
	assert.Equal(t, "{}", gjson.GetBytes(doc, "connections").Raw)
}
