package services

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/contenthash"
	"github.com/lukisch/n8n-workflow-manager/internal/document"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// DefaultPullName names pulled workflows whose document has no name.
const DefaultPullName = "Import"

const defaultPageSize = 100

// PushResult describes a successful push.
type PushResult struct {
	WorkflowID int64  `json:"workflow_id"`
	ServerID   int64  `json:"server_id"`
	RemoteID   string `json:"n8n_id"`
	Created    bool   `json:"created"`
}

// PullResult describes a completed pull. Failed counts remote items that
// could not be stored; they never abort the batch.
type PullResult struct {
	ServerID    int64   `json:"server_id"`
	Imported    int     `json:"imported"`
	Skipped     int     `json:"skipped"`
	Failed      int     `json:"failed"`
	WorkflowIDs []int64 `json:"workflow_ids"`
}

// Summary is the text recorded in the sync history.
func (r *PullResult) Summary() string {
	s := fmt.Sprintf("imported=%d, skipped=%d", r.Imported, r.Skipped)
	if r.Failed > 0 {
		s += fmt.Sprintf(", failed=%d", r.Failed)
	}
	return s
}

// SyncService pushes workflows to and pulls them from remote servers.
type SyncService struct {
	store    repository.Repository
	clients  ClientFactory
	logger   *logging.Logger
	metrics  *syncMetrics
	pageSize int
}

// NewSyncService creates a new SyncService.
func NewSyncService(store repository.Repository, clients ClientFactory, logger *logging.Logger) *SyncService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SyncService{
		store:    store,
		clients:  clients,
		logger:   logger,
		metrics:  newSyncMetrics(),
		pageSize: defaultPageSize,
	}
}

// SetPageSize sets the listing page size used by Pull.
func (s *SyncService) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// resolveServer returns the server with id, or the default when id is 0.
func resolveServer(ctx context.Context, store repository.ServerStore, id int64) (*models.Server, error) {
	var (
		srv *models.Server
		err error
	)
	if id == 0 {
		srv, err = store.GetDefaultServer(ctx)
		if err != nil {
			return nil, err
		}
		if srv == nil {
			return nil, apperr.Configuration("no server configured")
		}
	} else {
		srv, err = store.GetServer(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if !srv.HasCredential() {
		return nil, apperr.Configuration("credential missing for server %q", srv.Name)
	}
	return srv, nil
}

// Push sends the workflow to the server (0 means the default server). A
// workflow that already has a remote id is updated in place, otherwise it is
// created and the assigned id is stored.
func (s *SyncService) Push(ctx context.Context, workflowID, serverID int64) (*PushResult, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	srv, err := resolveServer(ctx, s.store, serverID)
	if err != nil {
		return nil, err
	}
	client := s.clients(srv)

	var (
		resp    []byte
		created = wf.RemoteID == ""
	)
	if created {
		resp, err = client.Create(ctx, wf.Document)
	} else {
		resp, err = client.Update(ctx, wf.RemoteID, wf.Document)
	}
	if err != nil {
		s.recordFailure(ctx, &wf.ID, srv.ID, models.SyncPush, err)
		s.logger.Error("push of workflow %d to %s failed: %v", wf.ID, srv.Name, err)
		return nil, err
	}

	remoteID := document.RemoteID(resp)
	if remoteID == "" {
		remoteID = wf.RemoteID
	}
	if remoteID != "" {
		_, err = s.store.UpdateWorkflow(ctx, wf.ID, models.WorkflowUpdate{RemoteID: &remoteID, ServerID: &srv.ID})
		if err != nil {
			return nil, err
		}
	}
	s.record(ctx, &models.SyncHistoryEntry{
		WorkflowID: &wf.ID,
		ServerID:   srv.ID,
		Direction:  models.SyncPush,
		Status:     models.SyncSuccess,
		Details:    "n8n_id=" + remoteID,
	})
	s.logger.Info("pushed workflow %d to %s as %s", wf.ID, srv.Name, remoteID)

	return &PushResult{WorkflowID: wf.ID, ServerID: srv.ID, RemoteID: remoteID, Created: created}, nil
}

// Pull imports every remote workflow whose fingerprint is not yet stored.
// Items are written one by one; a bad item is counted and skipped.
func (s *SyncService) Pull(ctx context.Context, serverID int64) (*PullResult, error) {
	srv, err := resolveServer(ctx, s.store, serverID)
	if err != nil {
		return nil, err
	}

	items, err := s.clients(srv).ListAll(ctx, s.pageSize)
	if err != nil {
		s.recordFailure(ctx, nil, srv.ID, models.SyncPull, err)
		s.logger.Error("listing workflows on %s failed: %v", srv.Name, err)
		return nil, err
	}

	res := &PullResult{ServerID: srv.ID, WorkflowIDs: []int64{}}
	for _, item := range items {
		id, imported, err := s.pullOne(ctx, srv, item)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Warn("skipping remote workflow %q from %s: %v", document.RemoteID(item), srv.Name, err)
		case imported:
			res.Imported++
			res.WorkflowIDs = append(res.WorkflowIDs, id)
		default:
			res.Skipped++
		}
	}
	s.metrics.pulled(ctx, "imported", res.Imported)
	s.metrics.pulled(ctx, "skipped", res.Skipped)
	s.metrics.pulled(ctx, "failed", res.Failed)

	s.record(ctx, &models.SyncHistoryEntry{
		ServerID:  srv.ID,
		Direction: models.SyncPull,
		Status:    models.SyncSuccess,
		Details:   res.Summary(),
	})
	s.logger.Info("pulled from %s: %s", srv.Name, res.Summary())
	return res, nil
}

func (s *SyncService) pullOne(ctx context.Context, srv *models.Server, item []byte) (int64, bool, error) {
	if err := document.Check(item); err != nil {
		return 0, false, err
	}
	exists, err := s.store.WorkflowExistsByHash(ctx, contenthash.Fingerprint(item))
	if err != nil {
		return 0, false, err
	}
	if exists {
		return 0, false, nil
	}

	name := gjson.GetBytes(item, "name").String()
	if name == "" {
		name = DefaultPullName
	}
	serverID := srv.ID
	wf := &models.Workflow{
		Name:     name,
		Document: item,
		Active:   gjson.GetBytes(item, "active").Bool(),
		Source:   models.SourcePull,
		RemoteID: document.RemoteID(item),
		ServerID: &serverID,
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return 0, false, err
	}
	return wf.ID, true, nil
}

// record appends a history entry. History is an audit trail, so a failure
// to write it is logged rather than returned.
func (s *SyncService) record(ctx context.Context, entry *models.SyncHistoryEntry) {
	s.metrics.operation(ctx, entry.Direction, entry.Status)
	if err := s.store.AddSyncEntry(ctx, entry); err != nil {
		s.logger.Error("recording %s history for server %d: %v", entry.Direction, entry.ServerID, err)
	}
}

func (s *SyncService) recordFailure(ctx context.Context, workflowID *int64, serverID int64, dir models.SyncDirection, cause error) {
	s.record(ctx, &models.SyncHistoryEntry{
		WorkflowID: workflowID,
		ServerID:   serverID,
		Direction:  dir,
		Status:     models.SyncError,
		Details:    errorDetails(cause),
	})
}

// errorDetails renders err as the JSON error descriptor stored in history.
func errorDetails(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.KindInternal, err, "%s", err.Error())
	}
	detail := e.Message
	if e.Err != nil {
		detail += ": " + e.Err.Error()
	}
	b, mErr := json.Marshal(struct {
		IsError    bool        `json:"is_error"`
		Kind       apperr.Kind `json:"kind"`
		StatusCode int         `json:"status_code,omitempty"`
		Detail     string      `json:"detail"`
	}{true, e.Kind, e.StatusCode, detail})
	if mErr != nil {
		return err.Error()
	}
	return string(b)
}
