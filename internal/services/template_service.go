package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// placeholderPattern matches {{key}} tokens. n8n expressions such as
// {{ $json.x }} contain spaces or $ and are not placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_.-]+)\}\}`)

// Placeholders returns the distinct placeholder keys of a template text in
// order of first appearance.
func Placeholders(text string) []string {
	keys := []string{}
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Fill substitutes {{key}} with its value in a single pass, so substituted
// values are never scanned again. Tokens without a value stay in place.
func Fill(text string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		if val, ok := values[token[2:len(token)-2]]; ok {
			return val
		}
		return token
	})
}

// TemplateService manages templates and turns them into workflows.
type TemplateService struct {
	store  repository.Repository
	logger *logging.Logger
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(store repository.Repository, logger *logging.Logger) *TemplateService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TemplateService{store: store, logger: logger}
}

// Create stores tpl, detecting its placeholders when none are given.
func (s *TemplateService) Create(ctx context.Context, tpl *models.Template) error {
	if len(tpl.Placeholders) == 0 {
		tpl.Placeholders = Placeholders(tpl.Document)
	}
	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return err
	}
	s.logger.Info("created template %d %q with placeholders %v", tpl.ID, tpl.Name, tpl.Placeholders)
	return nil
}

func (s *TemplateService) List(ctx context.Context, category string) ([]*models.Template, error) {
	return s.store.ListTemplates(ctx, category)
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*models.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteTemplate(ctx, id)
}

// Instantiate fills the template and stores the result as a new workflow.
// Substitution is textual; the result only has to be JSON.
func (s *TemplateService) Instantiate(ctx context.Context, id int64, values map[string]string) (*models.Workflow, error) {
	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	filled := Fill(tpl.Document, values)
	if !gjson.Valid(filled) {
		return nil, apperr.InvalidInput("template %q does not produce valid JSON with the given values", tpl.Name)
	}
	name := values["name"]
	if strings.TrimSpace(name) == "" {
		name = tpl.Name
	}
	wf := &models.Workflow{
		Name:        name,
		Description: tpl.Description,
		Document:    []byte(filled),
		Source:      models.SourceTemplate,
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	s.logger.Info("instantiated template %q as workflow %d", tpl.Name, wf.ID)
	return wf, nil
}

// StringValues converts decoded JSON values to their text form for Fill.
func StringValues(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch x := v.(type) {
		case string:
			out[k] = x
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}
