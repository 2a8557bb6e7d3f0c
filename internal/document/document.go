// Package document validates n8n workflow documents and derives the scalar
// metadata the store keeps next to them. Documents are never fully typed;
// reads go through gjson paths.
package document

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
)

// DefaultName is used when a document carries no name.
const DefaultName = "Unnamed"

// Metadata holds the values derived from a document.
type Metadata struct {
	Name        string
	NodeCount   int
	TriggerType string
	Tags        []string
}

// Validate reports whether doc is a mapping with a "nodes" sequence and a
// "connections" mapping. The reason is suitable for direct display.
func Validate(doc []byte) (bool, string) {
	if !gjson.ValidBytes(doc) {
		return false, "document is not valid JSON"
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return false, "document must be a JSON object"
	}
	nodes := root.Get("nodes")
	if !nodes.Exists() {
		return false, "required field 'nodes' is missing"
	}
	connections := root.Get("connections")
	if !connections.Exists() {
		return false, "required field 'connections' is missing"
	}
	if !nodes.IsArray() {
		return false, "'nodes' must be a list"
	}
	if !connections.IsObject() {
		return false, "'connections' must be an object"
	}
	return true, ""
}

// Check is Validate returning an InvalidInput error.
func Check(doc []byte) error {
	if ok, reason := Validate(doc); !ok {
		return apperr.InvalidInput("%s", reason)
	}
	return nil
}

// Derive extracts metadata from doc. Malformed documents yield zero values.
func Derive(doc []byte) Metadata {
	if !gjson.ValidBytes(doc) {
		return Metadata{Name: DefaultName}
	}
	root := gjson.ParseBytes(doc)
	md := Metadata{
		Name:        root.Get("name").String(),
		NodeCount:   NodeCount(doc),
		TriggerType: TriggerType(doc),
		Tags:        Tags(doc),
	}
	if md.Name == "" {
		md.Name = DefaultName
	}
	return md
}

// NodeCount returns the length of the "nodes" array.
func NodeCount(doc []byte) int {
	nodes := gjson.GetBytes(doc, "nodes")
	if !nodes.IsArray() {
		return 0
	}
	return len(nodes.Array())
}

// TriggerType returns the type of the first node whose type contains
// "trigger" or "webhook", case-insensitively.
func TriggerType(doc []byte) string {
	var found string
	nodes := gjson.GetBytes(doc, "nodes")
	if !nodes.IsArray() {
		return ""
	}
	nodes.ForEach(func(_, node gjson.Result) bool {
		t := node.Get("type").String()
		if IsTriggerType(t) {
			found = t
			return false
		}
		return true
	})
	return found
}

// IsTriggerType reports whether a node type starts a workflow.
func IsTriggerType(nodeType string) bool {
	t := strings.ToLower(nodeType)
	return strings.Contains(t, "trigger") || strings.Contains(t, "webhook")
}

// Tags returns the tag names of a document. n8n exports tags as objects with
// a "name"; hand-written documents often use plain strings.
func Tags(doc []byte) []string {
	tags := []string{}
	list := gjson.GetBytes(doc, "tags")
	if !list.IsArray() {
		return tags
	}
	list.ForEach(func(_, tag gjson.Result) bool {
		switch {
		case tag.IsObject():
			if name := tag.Get("name").String(); name != "" {
				tags = append(tags, name)
			}
		case tag.Type == gjson.String:
			if tag.Str != "" {
				tags = append(tags, tag.Str)
			}
		}
		return true
	})
	return tags
}

// RemoteID returns the "id" field of a document as a string, whether the
// remote encoded it as a string or a number.
func RemoteID(doc []byte) string {
	id := gjson.GetBytes(doc, "id")
	if !id.Exists() || id.Type == gjson.Null {
		return ""
	}
	return id.String()
}
