// Package export renders stored workflows as n8n JSON files or Markdown
// documentation.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// Format selects an export rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

const (
	maxSafeName    = 50
	maxTableParams = 3
)

// ParseFormat accepts json, markdown and md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", apperr.InvalidInput("unknown export format %q", s)
}

// ContentType returns the MIME type of the rendering.
func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/json"
}

// Render renders wf in the given format.
func Render(wf *models.Workflow, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(wf)
	case FormatMarkdown:
		return Markdown(wf), nil
	}
	return nil, apperr.InvalidInput("unknown export format %q", f)
}

// JSON returns the workflow document indented with two spaces, ready to be
// imported by n8n.
func JSON(wf *models.Workflow) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, wf.Document, "", "  "); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "workflow %d has an invalid document", wf.ID)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Markdown documents the workflow: a summary, a node table and the list of
// connections.
func Markdown(wf *models.Workflow) []byte {
	doc := gjson.ParseBytes(wf.Document)
	nodes := doc.Get("nodes")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", wf.Name)
	if wf.Description != "" {
		fmt.Fprintf(&b, "> %s\n\n", wf.Description)
	}
	nodeCount := 0
	if nodes.IsArray() {
		nodeCount = len(nodes.Array())
	}
	fmt.Fprintf(&b, "- **Nodes:** %d\n", nodeCount)
	fmt.Fprintf(&b, "- **Trigger:** %s\n", orDash(wf.TriggerType))
	fmt.Fprintf(&b, "- **Source:** %s\n", orDash(string(wf.Source)))
	created := "-"
	if !wf.CreatedAt.IsZero() {
		created = wf.CreatedAt.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(&b, "- **Created:** %s\n\n", created)

	b.WriteString("## Nodes\n\n")
	b.WriteString("| # | Name | Type | Parameters |\n")
	b.WriteString("|---|------|------|------------|\n")
	if nodes.IsArray() {
		for i, node := range nodes.Array() {
			fmt.Fprintf(&b, "| %d | %s | `%s` | %s |\n", i+1,
				cell(orDash(node.Get("name").String())),
				orDash(node.Get("type").String()),
				cell(paramSummary(node.Get("parameters"))))
		}
	}
	b.WriteString("\n## Connections\n\n")
	doc.Get("connections").ForEach(func(source, outputs gjson.Result) bool {
		outputs.ForEach(func(_, slots gjson.Result) bool {
			slots.ForEach(func(_, targets gjson.Result) bool {
				targets.ForEach(func(_, target gjson.Result) bool {
					to := target.Get("node").String()
					if to == "" {
						to = "?"
					}
					fmt.Fprintf(&b, "- %s -> %s\n", source.String(), to)
					return true
				})
				return true
			})
			return true
		})
		return true
	})
	return []byte(b.String())
}

func paramSummary(params gjson.Result) string {
	if !params.IsObject() {
		return ""
	}
	var parts []string
	total := 0
	params.ForEach(func(key, value gjson.Result) bool {
		total++
		if total <= maxTableParams {
			v := value.Raw
			if value.Type == gjson.String {
				v = value.String()
			}
			parts = append(parts, key.String()+"="+v)
		}
		return true
	})
	s := strings.Join(parts, ", ")
	if total > maxTableParams {
		s += "..."
	}
	return s
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// FileName is the export-all file name of wf: <id>_<safe name>.json.
func FileName(wf *models.Workflow) string {
	safe := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(wf.Name)
	if r := []rune(safe); len(r) > maxSafeName {
		safe = string(r[:maxSafeName])
	}
	return fmt.Sprintf("%d_%s.json", wf.ID, safe)
}

// WriteAll writes every workflow as a JSON file into dir, creating it if
// needed, and returns the written paths.
func WriteAll(workflows []*models.Workflow, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	paths := make([]string, 0, len(workflows))
	for _, wf := range workflows {
		data, err := JSON(wf)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, FileName(wf))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
