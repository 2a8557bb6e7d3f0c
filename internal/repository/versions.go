package repository

import (
	"context"
	"database/sql"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/contenthash"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const versionColumns = `id, workflow_id, version_number, workflow_json, content_hash, change_note, created_at`

func scanVersion(row rowScanner) (*models.WorkflowVersion, error) {
	var (
		v              models.WorkflowVersion
		doc, createdAt string
	)
	if err := row.Scan(&v.ID, &v.WorkflowID, &v.VersionNumber, &doc, &v.ContentHash, &v.ChangeNote, &createdAt); err != nil {
		return nil, err
	}
	v.Document = []byte(doc)
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

// AddVersion numbers the snapshot max+1 for the workflow. The workflow row is
// locked for the read-then-insert; SQLite gets the same effect from its
// immediate transactions.
func (s *SQLStore) AddVersion(ctx context.Context, workflowID int64, doc []byte, note string) (*models.WorkflowVersion, error) {
	if err := checkDocumentJSON(doc); err != nil {
		return nil, err
	}
	v := &models.WorkflowVersion{
		WorkflowID:  workflowID,
		Document:    doc,
		ContentHash: contenthash.Fingerprint(doc),
		ChangeNote:  note,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		lock := `SELECT id FROM workflows WHERE id = ?`
		if s.dialect == DialectPostgres {
			lock += ` FOR UPDATE`
		}
		var id int64
		if err := tx.QueryRowContext(ctx, s.q(lock), workflowID).Scan(&id); err != nil {
			return s.mapErr(err, "workflow %d", workflowID)
		}

		var current int
		err := tx.QueryRowContext(ctx, s.q(
			`SELECT COALESCE(MAX(version_number), 0) FROM workflow_versions WHERE workflow_id = ?`),
			workflowID).Scan(&current)
		if err != nil {
			return s.mapErr(err, "next version of workflow %d", workflowID)
		}
		v.VersionNumber = current + 1

		now := s.timestamp()
		err = tx.QueryRowContext(ctx, s.q(`INSERT INTO workflow_versions
			(workflow_id, version_number, workflow_json, content_hash, change_note, created_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			workflowID, v.VersionNumber, string(doc), v.ContentHash, note, formatTime(now)).Scan(&v.ID)
		if err != nil {
			return s.mapErr(err, "add version %d of workflow %d", v.VersionNumber, workflowID)
		}
		v.CreatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListVersions returns versions newest first. Versions of deleted workflows
// are still listed.
func (s *SQLStore) ListVersions(ctx context.Context, workflowID int64) ([]*models.WorkflowVersion, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+versionColumns+` FROM workflow_versions
		WHERE workflow_id = ? ORDER BY version_number DESC`), workflowID)
	if err != nil {
		return nil, s.mapErr(err, "list versions")
	}
	defer rows.Close()

	versions := []*models.WorkflowVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, s.mapErr(err, "scan version")
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err, "list versions")
	}
	return versions, nil
}

func (s *SQLStore) GetVersion(ctx context.Context, workflowID int64, number int) (*models.WorkflowVersion, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, s.q(`SELECT `+versionColumns+` FROM workflow_versions
		WHERE workflow_id = ? AND version_number = ?`), workflowID, number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("version %d of workflow %d", number, workflowID)
		}
		return nil, s.mapErr(err, "version %d of workflow %d", number, workflowID)
	}
	return v, nil
}
