// Package toolchain registers workflows as toolchains in an external SQLite
// registry that owns a "toolchains" table.
package toolchain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const (
	chainPrefix  = "n8n_"
	maxChainName = 100
	sourceName   = "n8nManager"
)

// Step is one toolchain step derived from a workflow node.
type Step struct {
	Step       int             `json:"step"`
	Tool       string          `json:"tool"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// Chain is the JSON stored in chain_json.
type Chain struct {
	Source     string `json:"source"`
	WorkflowID int64  `json:"workflow_id"`
	RemoteID   string `json:"n8n_id"`
	Steps      []Step `json:"steps"`
}

// Registrar writes into the registry database at Path. The database must
// already exist; it is never created.
type Registrar struct {
	Path string
	now  func() time.Time
}

// NewRegistrar creates a Registrar for the registry at path.
func NewRegistrar(path string) *Registrar {
	return &Registrar{Path: path, now: time.Now}
}

// ChainName is the toolchain name of a workflow.
func ChainName(workflowName string) string {
	name := strings.ReplaceAll(chainPrefix+workflowName, " ", "_")
	if r := []rune(name); len(r) > maxChainName {
		name = string(r[:maxChainName])
	}
	return name
}

// BuildChain converts the workflow's nodes into numbered steps.
func BuildChain(wf *models.Workflow) Chain {
	chain := Chain{Source: sourceName, WorkflowID: wf.ID, RemoteID: wf.RemoteID, Steps: []Step{}}
	nodes := gjson.GetBytes(wf.Document, "nodes")
	if !nodes.IsArray() {
		return chain
	}
	for i, node := range nodes.Array() {
		step := Step{
			Step:       i + 1,
			Tool:       node.Get("type").String(),
			Name:       node.Get("name").String(),
			Parameters: json.RawMessage(`{}`),
		}
		if step.Tool == "" {
			step.Tool = "unknown"
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("Step_%d", i+1)
		}
		if params := node.Get("parameters"); params.IsObject() {
			step.Parameters = json.RawMessage(params.Raw)
		}
		chain.Steps = append(chain.Steps, step)
	}
	return chain
}

// Register inserts or replaces the workflow's toolchain and returns its name.
func (r *Registrar) Register(ctx context.Context, wf *models.Workflow) (string, error) {
	if _, err := os.Stat(r.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.NotFound("registry database not found: %s", r.Path)
		}
		return "", apperr.Wrap(apperr.KindInternal, err, "registry database %s", r.Path)
	}

	db, err := sql.Open("sqlite", "file:"+r.Path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "open registry database")
	}
	defer db.Close()

	var table string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'toolchains'`).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("table 'toolchains' does not exist in %s", r.Path)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "inspect registry database")
	}

	chainJSON, err := json.Marshal(BuildChain(wf))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "encode toolchain")
	}
	name := ChainName(wf.Name)
	now := r.now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO toolchains
		(name, chain_json, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, string(chainJSON), wf.Description, now, now)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "register toolchain %s", name)
	}
	return name, nil
}
