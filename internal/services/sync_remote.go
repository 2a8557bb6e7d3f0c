package services

import (
	"context"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/contenthash"
	"github.com/lukisch/n8n-workflow-manager/internal/n8n"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// DriftResult compares a local workflow with its remote copy.
type DriftResult struct {
	WorkflowID int64  `json:"workflow_id"`
	RemoteID   string `json:"n8n_id"`
	LocalHash  string `json:"local_hash"`
	RemoteHash string `json:"remote_hash"`
	InSync     bool   `json:"in_sync"`
}

// linked returns a pushed workflow and the server it was pushed to.
func (s *SyncService) linked(ctx context.Context, workflowID int64) (*models.Workflow, *models.Server, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	if wf.RemoteID == "" {
		return nil, nil, apperr.InvalidInput("workflow %d has not been pushed", workflowID)
	}
	var serverID int64
	if wf.ServerID != nil {
		serverID = *wf.ServerID
	}
	srv, err := resolveServer(ctx, s.store, serverID)
	if err != nil {
		return nil, nil, err
	}
	return wf, srv, nil
}

// SetActive activates or deactivates the remote copy and mirrors the flag
// locally.
func (s *SyncService) SetActive(ctx context.Context, workflowID int64, active bool) (*models.Workflow, error) {
	wf, srv, err := s.linked(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	client := s.clients(srv)
	if active {
		_, err = client.Activate(ctx, wf.RemoteID)
	} else {
		_, err = client.Deactivate(ctx, wf.RemoteID)
	}
	if err != nil {
		s.recordFailure(ctx, &wf.ID, srv.ID, models.SyncPush, err)
		return nil, err
	}
	s.logger.Info("set workflow %d active=%t on %s", wf.ID, active, srv.Name)
	return s.store.UpdateWorkflow(ctx, wf.ID, models.WorkflowUpdate{Active: &active})
}

// Unpublish deletes the remote copy and forgets its remote id. The local
// workflow stays.
func (s *SyncService) Unpublish(ctx context.Context, workflowID int64) (*models.Workflow, error) {
	wf, srv, err := s.linked(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := s.clients(srv).Delete(ctx, wf.RemoteID); err != nil {
		s.recordFailure(ctx, &wf.ID, srv.ID, models.SyncPush, err)
		return nil, err
	}
	s.record(ctx, &models.SyncHistoryEntry{
		WorkflowID: &wf.ID,
		ServerID:   srv.ID,
		Direction:  models.SyncPush,
		Status:     models.SyncSuccess,
		Details:    "deleted n8n_id=" + wf.RemoteID,
	})
	cleared := ""
	return s.store.UpdateWorkflow(ctx, wf.ID, models.WorkflowUpdate{RemoteID: &cleared})
}

// Drift fetches the remote copy and compares fingerprints. Remote documents
// carry server fields such as id and timestamps, so those are stripped
// before hashing.
func (s *SyncService) Drift(ctx context.Context, workflowID int64) (*DriftResult, error) {
	wf, srv, err := s.linked(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	remote, err := s.clients(srv).Get(ctx, wf.RemoteID)
	if err != nil {
		return nil, err
	}
	local, err := n8n.StripServerFields(wf.Document)
	if err != nil {
		return nil, err
	}
	theirs, err := n8n.StripServerFields(remote)
	if err != nil {
		return nil, err
	}
	res := &DriftResult{
		WorkflowID: wf.ID,
		RemoteID:   wf.RemoteID,
		LocalHash:  contenthash.Fingerprint(local),
		RemoteHash: contenthash.Fingerprint(theirs),
	}
	res.InSync = res.LocalHash == res.RemoteHash
	return res, nil
}
