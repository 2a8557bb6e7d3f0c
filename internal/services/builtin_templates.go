package services

import (
	"context"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/builder"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

type builtin struct {
	name, description, category string
	build                       func() *builder.Builder
}

var builtins = []builtin{
	{
		name:        "Webhook to HTTP",
		description: "Forwards webhook calls to an HTTP endpoint.",
		category:    "integration",
		build: func() *builder.Builder {
			b := builder.New("{{name}}")
			hook := b.AddWebhookTrigger("{{webhook_path}}", "POST", "")
			call := b.AddHTTPRequest("{{target_url}}", "POST", "")
			b.Connect(hook, call, 0, 0)
			return b
		},
	},
	{
		name:        "Scheduled fetch",
		description: "Fetches a URL on a cron schedule and keeps the body.",
		category:    "scheduling",
		build: func() *builder.Builder {
			b := builder.New("{{name}}")
			tick := b.AddScheduleTrigger("{{cron}}", "")
			fetch := b.AddHTTPRequest("{{url}}", "GET", "")
			keep := b.AddCodeNode("return items.map(i => ({json: i.json.body ?? i.json}));", "Extract Body")
			b.Connect(tick, fetch, 0, 0)
			b.Connect(fetch, keep, 0, 0)
			return b
		},
	},
	{
		name:        "Webhook router",
		description: "Routes webhook calls on a field value to one of two endpoints.",
		category:    "logic",
		build: func() *builder.Builder {
			b := builder.New("{{name}}")
			hook := b.AddWebhookTrigger("{{webhook_path}}", "POST", "")
			check := b.AddIfNode("{{field}}", "equal", "{{value}}", "")
			yes := b.AddHTTPRequest("{{match_url}}", "POST", "On Match")
			no := b.AddHTTPRequest("{{fallback_url}}", "POST", "Otherwise")
			b.Connect(hook, check, 0, 0)
			b.Connect(check, yes, 0, 0)
			b.Connect(check, no, 1, 0)
			return b
		},
	},
}

// BuiltinTemplates returns the templates shipped with the manager.
func BuiltinTemplates() ([]*models.Template, error) {
	out := make([]*models.Template, 0, len(builtins))
	for _, bt := range builtins {
		doc, err := bt.build().Build().JSON()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "encode template %q", bt.name)
		}
		out = append(out, &models.Template{
			Name:        bt.name,
			Description: bt.description,
			Category:    bt.category,
			Document:    string(doc),
		})
	}
	return out, nil
}

// SeedBuiltins stores the built-in templates that are not stored yet and
// returns how many were added.
func (s *TemplateService) SeedBuiltins(ctx context.Context) (int, error) {
	templates, err := BuiltinTemplates()
	if err != nil {
		return 0, err
	}
	added := 0
	for _, tpl := range templates {
		err := s.Create(ctx, tpl)
		switch {
		case apperr.IsConflict(err):
			s.logger.Debug("template %q already present", tpl.Name)
		case err != nil:
			return added, err
		default:
			added++
		}
	}
	return added, nil
}
