package repository

import (
	"context"
	"strings"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const templateColumns = `id, name, description, category, template_json, placeholders, created_at`

// DefaultTemplateCategory is used when a template names none.
const DefaultTemplateCategory = "general"

func scanTemplate(row rowScanner) (*models.Template, error) {
	var (
		tpl                     models.Template
		placeholders, createdAt string
	)
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Category, &tpl.Document, &placeholders, &createdAt); err != nil {
		return nil, err
	}
	tpl.Placeholders = decodeStrings(placeholders)
	tpl.CreatedAt = parseTime(createdAt)
	return &tpl, nil
}

// CreateTemplate stores tpl. The document is kept as text because it need
// not be JSON before its placeholders are filled in.
func (s *SQLStore) CreateTemplate(ctx context.Context, tpl *models.Template) error {
	if strings.TrimSpace(tpl.Name) == "" {
		return apperr.InvalidInput("template name is required")
	}
	if strings.TrimSpace(tpl.Document) == "" {
		return apperr.InvalidInput("template document is empty")
	}
	if tpl.Category == "" {
		tpl.Category = DefaultTemplateCategory
	}
	now := s.timestamp()
	err := s.db.QueryRowContext(ctx, s.q(`INSERT INTO templates
		(name, description, category, template_json, placeholders, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		tpl.Name, tpl.Description, tpl.Category, tpl.Document, encodeStrings(tpl.Placeholders),
		formatTime(now)).Scan(&tpl.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, err, "template %q already exists", tpl.Name)
		}
		return s.mapErr(err, "create template %q", tpl.Name)
	}
	if tpl.Placeholders == nil {
		tpl.Placeholders = []string{}
	}
	tpl.CreatedAt = now
	return nil
}

func (s *SQLStore) GetTemplate(ctx context.Context, id int64) (*models.Template, error) {
	tpl, err := scanTemplate(s.db.QueryRowContext(ctx, s.q(`SELECT `+templateColumns+` FROM templates WHERE id = ?`), id))
	if err != nil {
		return nil, s.mapErr(err, "template %d", id)
	}
	return tpl, nil
}

// ListTemplates returns templates ordered by category, then name.
func (s *SQLStore) ListTemplates(ctx context.Context, category string) ([]*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category, name`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, s.mapErr(err, "list templates")
	}
	defer rows.Close()

	templates := []*models.Template{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, s.mapErr(err, "scan template")
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err, "list templates")
	}
	return templates, nil
}

func (s *SQLStore) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM templates WHERE id = ?`), id)
	if err != nil {
		return s.mapErr(err, "delete template %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("template %d", id)
	}
	return nil
}
