package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/contenthash"
	"github.com/lukisch/n8n-workflow-manager/internal/document"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const workflowColumns = `id, name, description, n8n_id, server_id, workflow_json, content_hash,
	node_count, trigger_type, tags, is_active, source, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		wf                   models.Workflow
		serverID             sql.NullInt64
		doc, tags, src       string
		createdAt, updatedAt string
	)
	err := row.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.RemoteID, &serverID, &doc,
		&wf.ContentHash, &wf.NodeCount, &wf.TriggerType, &tags, &wf.Active, &src, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	wf.ServerID = intPtr(serverID)
	wf.Document = []byte(doc)
	wf.Tags = decodeStrings(tags)
	wf.Source = models.Source(src)
	wf.CreatedAt = parseTime(createdAt)
	wf.UpdatedAt = parseTime(updatedAt)
	return &wf, nil
}

func checkDocumentJSON(doc []byte) error {
	if len(doc) == 0 || !json.Valid(doc) {
		return apperr.InvalidInput("workflow document is not valid JSON")
	}
	return nil
}

// CreateWorkflow inserts wf. Derived fields left at their zero value are
// computed from the document.
func (s *SQLStore) CreateWorkflow(ctx context.Context, wf *models.Workflow) error {
	if strings.TrimSpace(wf.Name) == "" {
		return apperr.InvalidInput("workflow name is required")
	}
	if err := checkDocumentJSON(wf.Document); err != nil {
		return err
	}
	if wf.Source == "" {
		wf.Source = models.SourceLocal
	}
	if wf.ContentHash == "" {
		wf.ContentHash = contenthash.Fingerprint(wf.Document)
	}
	md := document.Derive(wf.Document)
	if wf.NodeCount == 0 {
		wf.NodeCount = md.NodeCount
	}
	if wf.TriggerType == "" {
		wf.TriggerType = md.TriggerType
	}
	if wf.Tags == nil {
		wf.Tags = md.Tags
	}
	now := s.timestamp()

	err := s.db.QueryRowContext(ctx, s.q(`INSERT INTO workflows
		(name, description, n8n_id, server_id, workflow_json, content_hash, node_count,
		 trigger_type, tags, is_active, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		wf.Name, wf.Description, wf.RemoteID, nullInt(wf.ServerID), string(wf.Document), wf.ContentHash,
		wf.NodeCount, wf.TriggerType, encodeStrings(wf.Tags), wf.Active, string(wf.Source),
		formatTime(now), formatTime(now)).Scan(&wf.ID)
	if err != nil {
		return s.mapErr(err, "create workflow %q", wf.Name)
	}
	wf.CreatedAt, wf.UpdatedAt = now, now
	return nil
}

// GetWorkflow retrieves a workflow by its ID.
func (s *SQLStore) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	return s.getWorkflow(ctx, s.db, id)
}

func (s *SQLStore) getWorkflow(ctx context.Context, db queryer, id int64) (*models.Workflow, error) {
	row := db.QueryRowContext(ctx, s.q(`SELECT `+workflowColumns+` FROM workflows WHERE id = ?`), id)
	wf, err := scanWorkflow(row)
	if err != nil {
		return nil, s.mapErr(err, "workflow %d", id)
	}
	return wf, nil
}

// ListWorkflows returns workflows ordered by updated_at descending, ties
// broken by id descending.
func (s *SQLStore) ListWorkflows(ctx context.Context, filter models.WorkflowFilter) ([]*models.Workflow, error) {
	var (
		where []string
		args  []any
	)
	if filter.ServerID != nil {
		where = append(where, "server_id = ?")
		args = append(args, *filter.ServerID)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(filter.Source))
	}
	query := `SELECT ` + workflowColumns + ` FROM workflows`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, s.mapErr(err, "list workflows")
	}
	defer rows.Close()

	workflows := []*models.Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, s.mapErr(err, "scan workflow")
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err, "list workflows")
	}
	return workflows, nil
}

// UpdateWorkflow applies upd. A new document recomputes the fingerprint,
// node count and trigger type unless the update overrides them.
func (s *SQLStore) UpdateWorkflow(ctx context.Context, id int64, upd models.WorkflowUpdate) (*models.Workflow, error) {
	if upd.Document != nil {
		if err := checkDocumentJSON(upd.Document); err != nil {
			return nil, err
		}
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, apperr.InvalidInput("workflow name is required")
	}

	var out *models.Workflow
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		wf, err := s.getWorkflow(ctx, tx, id)
		if err != nil {
			return err
		}
		applyWorkflowUpdate(wf, upd)

		now := s.timestamp()
		if !now.After(wf.UpdatedAt) {
			now = wf.UpdatedAt
		}
		wf.UpdatedAt = now

		_, err = tx.ExecContext(ctx, s.q(`UPDATE workflows SET
			name = ?, description = ?, n8n_id = ?, server_id = ?, workflow_json = ?, content_hash = ?,
			node_count = ?, trigger_type = ?, tags = ?, is_active = ?, updated_at = ?
			WHERE id = ?`),
			wf.Name, wf.Description, wf.RemoteID, nullInt(wf.ServerID), string(wf.Document), wf.ContentHash,
			wf.NodeCount, wf.TriggerType, encodeStrings(wf.Tags), wf.Active, formatTime(now), id)
		if err != nil {
			return s.mapErr(err, "update workflow %d", id)
		}
		out = wf
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyWorkflowUpdate(wf *models.Workflow, upd models.WorkflowUpdate) {
	if upd.Name != nil {
		wf.Name = *upd.Name
	}
	if upd.Description != nil {
		wf.Description = *upd.Description
	}
	if upd.Document != nil {
		wf.Document = upd.Document
		md := document.Derive(upd.Document)
		wf.ContentHash = contenthash.Fingerprint(upd.Document)
		wf.NodeCount = md.NodeCount
		wf.TriggerType = md.TriggerType
	}
	if upd.ContentHash != nil {
		wf.ContentHash = *upd.ContentHash
	}
	if upd.NodeCount != nil {
		wf.NodeCount = *upd.NodeCount
	}
	if upd.TriggerType != nil {
		wf.TriggerType = *upd.TriggerType
	}
	if upd.Tags != nil {
		wf.Tags = upd.Tags
	}
	if upd.Active != nil {
		wf.Active = *upd.Active
	}
	if upd.RemoteID != nil {
		wf.RemoteID = *upd.RemoteID
	}
	if upd.ServerID != nil {
		id := *upd.ServerID
		wf.ServerID = &id
	}
}

// DeleteWorkflow removes the workflow. Its versions and history stay.
func (s *SQLStore) DeleteWorkflow(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM workflows WHERE id = ?`), id)
	if err != nil {
		return s.mapErr(err, "delete workflow %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("workflow %d", id)
	}
	return nil
}

// WorkflowExistsByHash reports whether a workflow with the fingerprint exists.
func (s *SQLStore) WorkflowExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM workflows WHERE content_hash = ? LIMIT 1`), contentHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, s.mapErr(err, "lookup content hash")
	}
	return true, nil
}
