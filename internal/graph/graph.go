// Package graph turns an n8n workflow document into a positioned node/edge
// graph for rendering. Materialize never fails: malformed parts of a document
// are skipped or replaced by fallbacks.
package graph

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// Node colors of the built-in classification.
const (
	ColorTrigger = "#ff6d5a"
	ColorBranch  = "#ffcc00"
	ColorAI      = "#9b59b6"
	ColorAction  = "#28a745"
	ColorDefault = "#4285f4"
)

const (
	fallbackX     = 100
	fallbackY     = 200
	fallbackStepX = 200
)

// Node is a rendered workflow node. ID is the node's index in the document.
type Node struct {
	ID         int             `json:"id"`
	Label      string          `json:"label"`
	Title      string          `json:"title"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Color      string          `json:"color"`
	Shape      string          `json:"shape"`
	Category   string          `json:"category,omitempty"`
	Type       string          `json:"n8n_type"`
	Parameters json.RawMessage `json:"n8n_params"`
}

// Edge connects two nodes by their IDs.
type Edge struct {
	ID          int    `json:"id"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	Arrows      string `json:"arrows"`
	OutputType  string `json:"output_type"`
	OutputIndex int    `json:"output_index"`
	InputIndex  int    `json:"input_index"`
}

// Graph is the materialized form of a workflow document.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Catalog resolves display metadata for known node types.
type Catalog interface {
	Lookup(nodeType string) (models.NodeType, bool)
}

// CatalogMap is a Catalog keyed by node type.
type CatalogMap map[string]models.NodeType

func (m CatalogMap) Lookup(nodeType string) (models.NodeType, bool) {
	nt, ok := m[nodeType]
	return nt, ok
}

// NewCatalog indexes a list of node types.
func NewCatalog(types []models.NodeType) CatalogMap {
	m := make(CatalogMap, len(types))
	for _, nt := range types {
		m[nt.Type] = nt
	}
	return m
}

// Materialize converts doc into a Graph. A nil catalog uses only the built-in
// color classification.
func Materialize(doc []byte, catalog Catalog) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	if !gjson.ValidBytes(doc) {
		return g
	}
	root := gjson.ParseBytes(doc)

	// Connections reference nodes by name; a later node with the same name
	// takes over the slot.
	ids := make(map[string]int)
	nodes := root.Get("nodes")
	if nodes.IsArray() {
		for i, raw := range nodes.Array() {
			n := materializeNode(i, raw, catalog)
			ids[n.Label] = i
			g.Nodes = append(g.Nodes, n)
		}
	}

	connections := root.Get("connections")
	if !connections.IsObject() {
		return g
	}
	connections.ForEach(func(source, outputs gjson.Result) bool {
		from, ok := ids[source.String()]
		if !ok || !outputs.IsObject() {
			return true
		}
		outputs.ForEach(func(outputType, slots gjson.Result) bool {
			if !slots.IsArray() {
				return true
			}
			for slot, targets := range slots.Array() {
				if !targets.IsArray() {
					continue
				}
				for _, target := range targets.Array() {
					to, ok := ids[target.Get("node").String()]
					if !ok {
						continue
					}
					g.Edges = append(g.Edges, Edge{
						ID:          len(g.Edges),
						From:        from,
						To:          to,
						Arrows:      "to",
						OutputType:  outputType.String(),
						OutputIndex: slot,
						InputIndex:  int(target.Get("index").Int()),
					})
				}
			}
			return true
		})
		return true
	})
	return g
}

func materializeNode(i int, raw gjson.Result, catalog Catalog) Node {
	name := raw.Get("name").String()
	if name == "" {
		name = fmt.Sprintf("Node_%d", i)
	}
	nodeType := raw.Get("type").String()
	if nodeType == "" {
		nodeType = "unknown"
	}

	n := Node{
		ID:         i,
		Label:      name,
		Title:      nodeType + "\n" + name,
		X:          float64(fallbackX + i*fallbackStepX),
		Y:          fallbackY,
		Color:      Classify(nodeType),
		Shape:      "box",
		Type:       nodeType,
		Parameters: json.RawMessage(`{}`),
	}
	if x, y, ok := position(raw.Get("position")); ok {
		n.X, n.Y = x, y
	}
	if params := raw.Get("parameters"); params.IsObject() {
		n.Parameters = json.RawMessage(params.Raw)
	}
	if catalog != nil {
		if nt, ok := catalog.Lookup(nodeType); ok {
			if nt.Color != "" {
				n.Color = nt.Color
			}
			n.Category = nt.Category
			if nt.DisplayName != "" {
				n.Title = nt.DisplayName + "\n" + name
			}
		}
	}
	return n
}

func position(p gjson.Result) (float64, float64, bool) {
	if !p.IsArray() {
		return 0, 0, false
	}
	coords := p.Array()
	if len(coords) < 2 || coords[0].Type != gjson.Number || coords[1].Type != gjson.Number {
		return 0, 0, false
	}
	return coords[0].Num, coords[1].Num, true
}

// Classify returns the built-in color for a node type. Rules are checked in
// order and the first match wins, so an AI trigger is still a trigger.
func Classify(nodeType string) string {
	t := strings.ToLower(nodeType)
	switch {
	case containsAny(t, "trigger", "webhook"):
		return ColorTrigger
	case containsAny(t, "if", "switch", "merge"):
		return ColorBranch
	case containsAny(t, "langchain", "agent", "openai"):
		return ColorAI
	case containsAny(t, "email", "slack", "telegram", "send"):
		return ColorAction
	default:
		return ColorDefault
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// DuplicateNames returns node names used more than once, in order of their
// second occurrence. Such nodes are ambiguous connection endpoints.
func DuplicateNames(doc []byte) []string {
	seen := make(map[string]int)
	var dups []string
	gjson.GetBytes(doc, "nodes").ForEach(func(_, node gjson.Result) bool {
		if !node.IsObject() {
			return true
		}
		name := node.Get("name").String()
		if name == "" {
			return true
		}
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
		return true
	})
	return dups
}

// HasDuplicateNames reports whether any node name appears more than once.
func HasDuplicateNames(doc []byte) bool {
	return len(DuplicateNames(doc)) > 0
}
