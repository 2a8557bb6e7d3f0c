package services

import (
	"context"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/builder"
	"github.com/lukisch/n8n-workflow-manager/internal/contenthash"
	"github.com/lukisch/n8n-workflow-manager/internal/document"
	"github.com/lukisch/n8n-workflow-manager/internal/export"
	"github.com/lukisch/n8n-workflow-manager/internal/graph"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// DefaultImportName names imports that carry neither a document name nor a
// fallback.
const DefaultImportName = "Import"

// Registrar registers a workflow with a downstream tool registry.
type Registrar interface {
	Register(ctx context.Context, wf *models.Workflow) (string, error)
}

// WorkflowService manages locally stored workflows.
type WorkflowService struct {
	store     repository.Repository
	registrar Registrar
	logger    *logging.Logger
}

// NewWorkflowService creates a new WorkflowService. A nil registrar
// disables registration.
func NewWorkflowService(store repository.Repository, registrar Registrar, logger *logging.Logger) *WorkflowService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &WorkflowService{store: store, registrar: registrar, logger: logger}
}

// CreateRequest is a workflow supplied directly by a client.
type CreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Document    json.RawMessage `json:"workflow_json"`
	Source      models.Source   `json:"source"`
}

// UpdateRequest changes a workflow. Nil fields are left untouched.
type UpdateRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Document    json.RawMessage `json:"workflow_json,omitempty"`
	Active      *bool           `json:"is_active,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

func (s *WorkflowService) List(ctx context.Context, filter models.WorkflowFilter) ([]*models.Workflow, error) {
	if filter.Source != "" && !filter.Source.Valid() {
		return nil, apperr.InvalidInput("unknown source %q", filter.Source)
	}
	return s.store.ListWorkflows(ctx, filter)
}

func (s *WorkflowService) Get(ctx context.Context, id int64) (*models.Workflow, error) {
	return s.store.GetWorkflow(ctx, id)
}

// Create validates and stores a workflow. Duplicates are allowed here; only
// imports and pulls deduplicate.
func (s *WorkflowService) Create(ctx context.Context, req CreateRequest) (*models.Workflow, error) {
	if err := document.Check(req.Document); err != nil {
		return nil, err
	}
	src := req.Source
	if src == "" {
		src = models.SourceAPI
	}
	if !src.Valid() {
		return nil, apperr.InvalidInput("unknown source %q", src)
	}
	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = document.Derive(req.Document).Name
	}
	wf := &models.Workflow{
		Name:        name,
		Description: req.Description,
		Document:    req.Document,
		Source:      src,
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	s.logger.Info("created workflow %d %q", wf.ID, wf.Name)
	return wf, nil
}

// Update validates a new document before anything is written.
func (s *WorkflowService) Update(ctx context.Context, id int64, req UpdateRequest) (*models.Workflow, error) {
	if req.Document != nil {
		if err := document.Check(req.Document); err != nil {
			return nil, err
		}
	}
	upd := models.WorkflowUpdate{
		Name:        req.Name,
		Description: req.Description,
		Document:    req.Document,
		Active:      req.Active,
		Tags:        req.Tags,
	}
	if upd.IsEmpty() {
		return s.store.GetWorkflow(ctx, id)
	}
	return s.store.UpdateWorkflow(ctx, id, upd)
}

func (s *WorkflowService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted workflow %d", id)
	return nil
}

// Import stores an external document unless one with the same fingerprint
// already exists. The name comes from the document, else fallbackName.
func (s *WorkflowService) Import(ctx context.Context, doc []byte, fallbackName string) (*models.Workflow, error) {
	if err := document.Check(doc); err != nil {
		return nil, err
	}
	exists, err := s.store.WorkflowExistsByHash(ctx, contenthash.Fingerprint(doc))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("workflow already exists (duplicate)")
	}

	name := document.Derive(doc).Name
	if name == document.DefaultName {
		name = fallbackName
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultImportName
	}
	wf := &models.Workflow{
		Name:     name,
		Document: json.RawMessage(doc),
		Source:   models.SourceImport,
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	s.logger.Info("imported workflow %d %q", wf.ID, wf.Name)
	return wf, nil
}

// Catalog loads the node catalog for graph rendering.
func (s *WorkflowService) Catalog(ctx context.Context) (graph.CatalogMap, error) {
	types, err := s.store.ListNodeTypes(ctx)
	if err != nil {
		return nil, err
	}
	return graph.NewCatalog(types), nil
}

func (s *WorkflowService) NodeTypes(ctx context.Context) ([]models.NodeType, error) {
	return s.store.ListNodeTypes(ctx)
}

// Graph materializes the stored document of a workflow.
func (s *WorkflowService) Graph(ctx context.Context, id int64) (graph.Graph, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return graph.Graph{}, err
	}
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return graph.Graph{}, err
	}
	if dups := graph.DuplicateNames(wf.Document); len(dups) > 0 {
		s.logger.Warn("workflow %d has duplicate node names %v; only the last of each is connected", id, dups)
	}
	return graph.Materialize(wf.Document, catalog), nil
}

// AddVersion snapshots the current document of a workflow.
func (s *WorkflowService) AddVersion(ctx context.Context, id int64, note string) (*models.WorkflowVersion, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.AddVersion(ctx, wf.ID, wf.Document, note)
}

func (s *WorkflowService) ListVersions(ctx context.Context, id int64) ([]*models.WorkflowVersion, error) {
	return s.store.ListVersions(ctx, id)
}

func (s *WorkflowService) GetVersion(ctx context.Context, id int64, number int) (*models.WorkflowVersion, error) {
	return s.store.GetVersion(ctx, id, number)
}

// RestoreVersion writes a snapshot back as the workflow's document.
func (s *WorkflowService) RestoreVersion(ctx context.Context, id int64, number int) (*models.Workflow, error) {
	v, err := s.store.GetVersion(ctx, id, number)
	if err != nil {
		return nil, err
	}
	wf, err := s.store.UpdateWorkflow(ctx, id, models.WorkflowUpdate{Document: v.Document})
	if err != nil {
		return nil, err
	}
	s.logger.Info("restored workflow %d to version %d", id, number)
	return wf, nil
}

// BuildNode declares one node of a BuildRequest.
type BuildNode struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	Position   *[2]float64    `json:"position,omitempty"`
}

// BuildConnection links two declared nodes by name.
type BuildConnection struct {
	From        string `json:"from_node"`
	To          string `json:"to_node"`
	OutputIndex int    `json:"output_index"`
	InputIndex  int    `json:"input_index"`
}

// BuildRequest declares a workflow for the builder.
type BuildRequest struct {
	Name        string            `json:"name"`
	Nodes       []BuildNode       `json:"nodes"`
	Connections []BuildConnection `json:"connections"`
}

const defaultBuildNodeType = "n8n-nodes-base.noOp"

// Build assembles a document from req and stores it. Connections naming
// unknown nodes are ignored.
func (s *WorkflowService) Build(ctx context.Context, req BuildRequest) (*models.Workflow, error) {
	b := builder.New(req.Name)
	names := make(map[string]string, len(req.Nodes))
	for _, n := range req.Nodes {
		nodeType := n.Type
		if nodeType == "" {
			nodeType = defaultBuildNodeType
		}
		assigned := b.AddNode(nodeType, n.Name, n.Parameters, n.Position)
		key := n.Name
		if key == "" {
			key = assigned
		}
		names[key] = assigned
	}
	for _, c := range req.Connections {
		src, okSrc := names[c.From]
		dst, okDst := names[c.To]
		if !okSrc || !okDst {
			s.logger.Debug("build %q: ignoring connection %s -> %s", req.Name, c.From, c.To)
			continue
		}
		b.Connect(src, dst, c.OutputIndex, c.InputIndex)
	}

	built := b.Build()
	doc, err := built.JSON()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "encode built workflow")
	}
	wf := &models.Workflow{
		Name:     built.Name,
		Document: json.RawMessage(doc),
		Source:   models.SourceAPIBuild,
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	s.logger.Info("built workflow %d %q with %d nodes", wf.ID, wf.Name, len(built.Nodes))
	return wf, nil
}

// Export renders one workflow in the given format.
func (s *WorkflowService) Export(ctx context.Context, id int64, format export.Format) ([]byte, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	return export.Render(wf, format)
}

// ExportAll writes every workflow as a JSON file into dir.
func (s *WorkflowService) ExportAll(ctx context.Context, dir string) ([]string, error) {
	workflows, err := s.store.ListWorkflows(ctx, models.WorkflowFilter{})
	if err != nil {
		return nil, err
	}
	paths, err := export.WriteAll(workflows, dir)
	if err != nil {
		return paths, err
	}
	s.logger.Info("exported %d workflows to %s", len(paths), dir)
	return paths, nil
}

// Register hands the workflow to the downstream registry and returns the
// registered name.
func (s *WorkflowService) Register(ctx context.Context, id int64) (string, error) {
	if s.registrar == nil {
		return "", apperr.Configuration("registration is not enabled")
	}
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return "", err
	}
	name, err := s.registrar.Register(ctx, wf)
	if err != nil {
		return "", err
	}
	s.logger.Info("registered workflow %d as %s", id, name)
	return name, nil
}

// Status summarizes the store.
func (s *WorkflowService) Status(ctx context.Context) (*models.Status, error) {
	workflows, err := s.store.ListWorkflows(ctx, models.WorkflowFilter{})
	if err != nil {
		return nil, err
	}
	servers, err := s.store.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.store.ListTemplates(ctx, "")
	if err != nil {
		return nil, err
	}
	def, err := s.store.GetDefaultServer(ctx)
	if err != nil {
		return nil, err
	}
	if def != nil {
		def.APIKey = ""
	}
	return &models.Status{
		Workflows:     len(workflows),
		Servers:       len(servers),
		Templates:     len(templates),
		DefaultServer: def,
	}, nil
}
