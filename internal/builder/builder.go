// Package builder constructs n8n workflow documents programmatically.
package builder

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	stepX    = 250
	defaultY = 300
	mainType = "main"
)

// Node is one node of a built workflow.
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion int            `json:"typeVersion"`
	Position    [2]float64     `json:"position"`
	Parameters  map[string]any `json:"parameters"`
}

// Target is a connection endpoint inside an output slot.
type Target struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Connections maps source node name -> output type -> output slot -> targets.
type Connections map[string]map[string][][]Target

// Workflow is a complete n8n workflow document.
type Workflow struct {
	Name        string         `json:"name"`
	Nodes       []Node         `json:"nodes"`
	Connections Connections    `json:"connections"`
	Settings    map[string]any `json:"settings"`
	Active      bool           `json:"active"`
	Tags        []string       `json:"tags"`
}

// JSON encodes the workflow.
func (w Workflow) JSON() ([]byte, error) {
	return json.Marshal(w)
}

func (c Connections) clone() Connections {
	out := make(Connections, len(c))
	for source, outputs := range c {
		types := make(map[string][][]Target, len(outputs))
		for kind, slots := range outputs {
			copied := make([][]Target, len(slots))
			for i, targets := range slots {
				copied[i] = append([]Target{}, targets...)
			}
			types[kind] = copied
		}
		out[source] = types
	}
	return out
}

// Builder accumulates nodes and connections.
type Builder struct {
	name        string
	nodes       []Node
	connections Connections
	unnamed     int
}

// New returns a Builder for a workflow with the given name.
func New(name string) *Builder {
	if name == "" {
		name = "New Workflow"
	}
	return &Builder{name: name, connections: Connections{}}
}

// AddNode appends a node and returns its name. An empty name becomes
// Node_<n>; a nil position places the node right of the previous ones.
func (b *Builder) AddNode(nodeType, name string, params map[string]any, position *[2]float64) string {
	if name == "" {
		b.unnamed++
		name = fmt.Sprintf("Node_%d", b.unnamed)
	}
	pos := [2]float64{float64(stepX * len(b.nodes)), defaultY}
	if position != nil {
		pos = *position
	}
	if params == nil {
		params = map[string]any{}
	}
	b.nodes = append(b.nodes, Node{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        nodeType,
		TypeVersion: 1,
		Position:    pos,
		Parameters:  params,
	})
	return name
}

// Connect links output slot outputSlot of source to input slot inputSlot of
// target, growing the source's slot list with empty slots as needed.
func (b *Builder) Connect(source, target string, outputSlot, inputSlot int) {
	if outputSlot < 0 {
		outputSlot = 0
	}
	outputs, ok := b.connections[source]
	if !ok {
		outputs = map[string][][]Target{mainType: {}}
		b.connections[source] = outputs
	}
	slots := outputs[mainType]
	for len(slots) <= outputSlot {
		slots = append(slots, []Target{})
	}
	slots[outputSlot] = append(slots[outputSlot], Target{Node: target, Type: mainType, Index: inputSlot})
	outputs[mainType] = slots
}

// Build returns the workflow document.
func (b *Builder) Build() Workflow {
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return Workflow{
		Name:        b.name,
		Nodes:       nodes,
		Connections: b.connections.clone(),
		Settings:    map[string]any{"executionOrder": "v1"},
		Active:      false,
		Tags:        []string{},
	}
}

// AddWebhookTrigger adds a webhook trigger listening on path.
func (b *Builder) AddWebhookTrigger(path, method, name string) string {
	if name == "" {
		name = "Webhook"
	}
	return b.AddNode("n8n-nodes-base.webhook", name,
		map[string]any{"path": path, "httpMethod": method}, &[2]float64{stepX, defaultY})
}

// AddScheduleTrigger adds a cron-driven trigger.
func (b *Builder) AddScheduleTrigger(cron, name string) string {
	if name == "" {
		name = "Schedule Trigger"
	}
	params := map[string]any{
		"rule": map[string]any{
			"interval": []any{map[string]any{"field": "cronExpression", "expression": cron}},
		},
	}
	return b.AddNode("n8n-nodes-base.scheduleTrigger", name, params, &[2]float64{stepX, defaultY})
}

// AddHTTPRequest adds an HTTP request node.
func (b *Builder) AddHTTPRequest(url, method, name string) string {
	if name == "" {
		name = "HTTP Request"
	}
	return b.AddNode("n8n-nodes-base.httpRequest", name, map[string]any{"url": url, "method": method}, nil)
}

// AddCodeNode adds a JavaScript code node.
func (b *Builder) AddCodeNode(code, name string) string {
	if name == "" {
		name = "Code"
	}
	return b.AddNode("n8n-nodes-base.code", name, map[string]any{"jsCode": code}, nil)
}

// AddIfNode adds a string comparison on a field of the incoming item.
func (b *Builder) AddIfNode(field, operation, value, name string) string {
	if name == "" {
		name = "IF"
	}
	if operation == "" {
		operation = "equal"
	}
	params := map[string]any{
		"conditions": map[string]any{
			"string": []any{map[string]any{
				"value1":    fmt.Sprintf(`={{$json["%s"]}}`, field),
				"operation": operation,
				"value2":    value,
			}},
		},
	}
	return b.AddNode("n8n-nodes-base.if", name, params, nil)
}
