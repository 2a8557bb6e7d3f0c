package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const sampleDoc = `{
	"name": "Sample",
	"nodes": [
		{"name": "Start", "type": "n8n-nodes-base.manualTrigger", "position": [250, 300]},
		{"name": "Fetch", "type": "n8n-nodes-base.httpRequest", "parameters": {"url": "https://example.com"}},
		{"name": "Check", "type": "n8n-nodes-base.if", "position": [650, "x"]},
		{"name": "Notify", "type": "n8n-nodes-base.slack", "position": [850, 120.5]}
	],
	"connections": {
		"Start": {"main": [[{"node": "Fetch", "type": "main", "index": 0}]]},
		"Fetch": {"main": [[{"node": "Check", "type": "main", "index": 0}, {"node": "Ghost", "type": "main", "index": 0}]]},
		"Check": {"main": [[], [{"node": "Notify", "type": "main", "index": 1}]]},
		"Missing": {"main": [[{"node": "Start", "type": "main", "index": 0}]]}
	}
}`

func TestMaterialize(t *testing.T) {
	g := Materialize([]byte(sampleDoc), nil)

	require.Len(t, g.Nodes, 4)
	for i, n := range g.Nodes {
		assert.Equal(t, i, n.ID)
	}

	assert.Equal(t, "Start", g.Nodes[0].Label)
	assert.Equal(t, 250.0, g.Nodes[0].X)
	assert.Equal(t, 300.0, g.Nodes[0].Y)
	assert.Equal(t, ColorTrigger, g.Nodes[0].Color)

	// no position: fallback from index
	assert.Equal(t, 300.0, g.Nodes[1].X)
	assert.Equal(t, 200.0, g.Nodes[1].Y)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(g.Nodes[1].Parameters))

	// malformed position: fallback
	assert.Equal(t, 500.0, g.Nodes[2].X)
	assert.Equal(t, 200.0, g.Nodes[2].Y)
	assert.Equal(t, ColorBranch, g.Nodes[2].Color)

	assert.Equal(t, 120.5, g.Nodes[3].Y)
	assert.Equal(t, ColorAction, g.Nodes[3].Color)

	require.Len(t, g.Edges, 3)
	assert.Equal(t, Edge{ID: 0, From: 0, To: 1, Arrows: "to", OutputType: "main"}, g.Edges[0])
	assert.Equal(t, Edge{ID: 1, From: 1, To: 2, Arrows: "to", OutputType: "main"}, g.Edges[1])
	assert.Equal(t, Edge{ID: 2, From: 2, To: 3, Arrows: "to", OutputType: "main", OutputIndex: 1, InputIndex: 1}, g.Edges[2])
}

func TestMaterializeEmptyAndMalformed(t *testing.T) {
	for _, doc := range []string{
		`{"nodes": [], "connections": {}}`,
		`{}`,
		`[]`,
		`not json`,
		`{"nodes": "x", "connections": 5}`,
	} {
		g := Materialize([]byte(doc), nil)
		assert.Equal(t, Graph{Nodes: []Node{}, Edges: []Edge{}}, g, doc)
	}
}

func TestMaterializeUnnamedNodes(t *testing.T) {
	doc := `{"nodes": [{"type": "x"}, {}], "connections": {"Node_0": {"main": [[{"node": "Node_1"}]]}}}`

	g := Materialize([]byte(doc), nil)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "Node_0", g.Nodes[0].Label)
	assert.Equal(t, "Node_1", g.Nodes[1].Label)
	assert.Equal(t, "unknown", g.Nodes[1].Type)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 0, g.Edges[0].From)
	assert.Equal(t, 1, g.Edges[0].To)
}

func TestMaterializeDuplicateNamesLastWins(t *testing.T) {
	doc := []byte(`{
		"nodes": [
			{"name": "A", "type": "t"},
			{"name": "B", "type": "t"},
			{"name": "A", "type": "t"}
		],
		"connections": {"B": {"main": [[{"node": "A"}]]}}
	}`)

	g := Materialize(doc, nil)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 2, g.Edges[0].To)
	assert.True(t, HasDuplicateNames(doc))
	assert.Equal(t, []string{"A"}, DuplicateNames(doc))
	assert.False(t, HasDuplicateNames([]byte(sampleDoc)))
}

func TestMaterializeIsDeterministic(t *testing.T) {
	first := Materialize([]byte(sampleDoc), nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Materialize([]byte(sampleDoc), nil))
	}
}

func TestMaterializeUsesCatalog(t *testing.T) {
	catalog := NewCatalog([]models.NodeType{
		{Type: "n8n-nodes-base.httpRequest", DisplayName: "HTTP Request", Category: "action", Color: "#123456"},
	})

	g := Materialize([]byte(sampleDoc), catalog)
	assert.Equal(t, "#123456", g.Nodes[1].Color)
	assert.Equal(t, "action", g.Nodes[1].Category)
	assert.Equal(t, "HTTP Request\nFetch", g.Nodes[1].Title)
	// not in the catalog: built-in classification
	assert.Equal(t, ColorTrigger, g.Nodes[0].Color)
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"aiTriggerAgent":                    ColorTrigger,
		"n8n-nodes-base.webhook":            ColorTrigger,
		"n8n-nodes-base.switch":             ColorBranch,
		"n8n-nodes-base.merge":              ColorBranch,
		"@n8n/n8n-nodes-langchain.chainLlm": ColorAI,
		"n8n-nodes-base.openAi":             ColorAI,
		"n8n-nodes-base.emailSend":          ColorAction,
		"n8n-nodes-base.telegram":           ColorAction,
		"n8n-nodes-base.code":               ColorDefault,
		"":                                  ColorDefault,
	}
	for nodeType, want := range tests {
		assert.Equal(t, want, Classify(nodeType), nodeType)
	}
}
