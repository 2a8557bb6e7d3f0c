package services

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockClient) ListAll(ctx context.Context, pageSize int) ([]json.RawMessage, error) {
	args := m.Called(ctx, pageSize)
	items, _ := args.Get(0).([]json.RawMessage)
	return items, args.Error(1)
}

func (m *mockClient) raw(args mock.Arguments) (json.RawMessage, error) {
	out, _ := args.Get(0).(json.RawMessage)
	return out, args.Error(1)
}

func (m *mockClient) Get(ctx context.Context, remoteID string) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, remoteID))
}

func (m *mockClient) Create(ctx context.Context, doc []byte) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, doc))
}

func (m *mockClient) Update(ctx context.Context, remoteID string, doc []byte) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, remoteID, doc))
}

func (m *mockClient) Delete(ctx context.Context, remoteID string) error {
	return m.Called(ctx, remoteID).Error(0)
}

func (m *mockClient) Activate(ctx context.Context, remoteID string) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, remoteID))
}

func (m *mockClient) Deactivate(ctx context.Context, remoteID string) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, remoteID))
}

func factoryFor(c RemoteClient) ClientFactory {
	return func(*models.Server) RemoteClient { return c }
}

func newStore(t *testing.T) repository.Repository {
	t.Helper()
	s, err := repository.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addServer(t *testing.T, store repository.Repository, name, apiKey string, isDefault bool) *models.Server {
	t.Helper()
	srv := &models.Server{Name: name, URL: "http://" + name + ":5678", APIKey: apiKey, IsDefault: isDefault}
	require.NoError(t, store.CreateServer(context.Background(), srv))
	return srv
}

func addWorkflow(t *testing.T, store repository.Repository, doc string) *models.Workflow {
	t.Helper()
	wf := &models.Workflow{Name: "wf", Document: json.RawMessage(doc), Source: models.SourceLocal}
	require.NoError(t, store.CreateWorkflow(context.Background(), wf))
	return wf
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }
