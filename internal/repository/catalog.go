package repository

import (
	"context"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

// ListNodeTypes returns the node catalog ordered by category and type.
func (s *SQLStore) ListNodeTypes(ctx context.Context) ([]models.NodeType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_type, display_name, category, color FROM node_catalog ORDER BY category, node_type`)
	if err != nil {
		return nil, s.mapErr(err, "list node types")
	}
	defer rows.Close()

	types := []models.NodeType{}
	for rows.Next() {
		var nt models.NodeType
		if err := rows.Scan(&nt.Type, &nt.DisplayName, &nt.Category, &nt.Color); err != nil {
			return nil, s.mapErr(err, "scan node type")
		}
		types = append(types, nt)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err, "list node types")
	}
	return types, nil
}

var _ Repository = (*SQLStore)(nil)
