package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// DefaultHistoryLimit caps ListSyncHistory when the filter sets no limit.
const DefaultHistoryLimit = 50

// AddSyncEntry appends an entry. History is never updated or deleted.
func (s *SQLStore) AddSyncEntry(ctx context.Context, entry *models.SyncHistoryEntry) error {
	if entry.Direction != models.SyncPush && entry.Direction != models.SyncPull {
		return apperr.InvalidInput("unknown sync direction %q", entry.Direction)
	}
	if entry.Status == "" {
		entry.Status = models.SyncSuccess
	}
	now := s.timestamp()
	err := s.db.QueryRowContext(ctx, s.q(`INSERT INTO sync_history
		(workflow_id, server_id, direction, status, details, synced_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		nullInt(entry.WorkflowID), entry.ServerID, string(entry.Direction), string(entry.Status),
		entry.Details, formatTime(now)).Scan(&entry.ID)
	if err != nil {
		return s.mapErr(err, "record sync history")
	}
	entry.SyncedAt = now
	return nil
}

// ListSyncHistory returns entries newest first.
func (s *SQLStore) ListSyncHistory(ctx context.Context, filter models.SyncFilter) ([]*models.SyncHistoryEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.WorkflowID != nil {
		where = append(where, "workflow_id = ?")
		args = append(args, *filter.WorkflowID)
	}
	if filter.ServerID != nil {
		where = append(where, "server_id = ?")
		args = append(args, *filter.ServerID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := `SELECT id, workflow_id, server_id, direction, status, details, synced_at FROM sync_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY synced_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, s.mapErr(err, "list sync history")
	}
	defer rows.Close()

	entries := []*models.SyncHistoryEntry{}
	for rows.Next() {
		var (
			e                 models.SyncHistoryEntry
			workflowID        sql.NullInt64
			direction, status string
			syncedAt          string
		)
		if err := rows.Scan(&e.ID, &workflowID, &e.ServerID, &direction, &status, &e.Details, &syncedAt); err != nil {
			return nil, s.mapErr(err, "scan sync history")
		}
		e.WorkflowID = intPtr(workflowID)
		e.Direction = models.SyncDirection(direction)
		e.Status = models.SyncStatus(status)
		e.SyncedAt = parseTime(syncedAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err, "list sync history")
	}
	return entries, nil
}
