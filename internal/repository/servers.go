package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const serverColumns = `id, name, url, api_key, is_default, status, last_ping, created_at`

func scanServer(row rowScanner) (*models.Server, error) {
	var (
		srv       models.Server
		status    string
		lastPing  sql.NullString
		createdAt string
	)
	if err := row.Scan(&srv.ID, &srv.Name, &srv.URL, &srv.APIKey, &srv.IsDefault, &status, &lastPing, &createdAt); err != nil {
		return nil, err
	}
	srv.Status = models.ServerStatus(status)
	srv.LastPing = parseNullTime(lastPing)
	srv.CreatedAt = parseTime(createdAt)
	return &srv, nil
}

// CreateServer inserts srv. A server created with IsDefault takes the
// default flag from any other server in the same transaction.
func (s *SQLStore) CreateServer(ctx context.Context, srv *models.Server) error {
	if strings.TrimSpace(srv.Name) == "" {
		return apperr.InvalidInput("server name is required")
	}
	if strings.TrimSpace(srv.URL) == "" {
		return apperr.InvalidInput("server url is required")
	}
	srv.URL = strings.TrimRight(srv.URL, "/")
	if srv.Status == "" {
		srv.Status = models.ServerStatusUnknown
	}
	now := s.timestamp()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if srv.IsDefault {
			if err := s.clearDefault(ctx, tx); err != nil {
				return err
			}
		}
		err := tx.QueryRowContext(ctx, s.q(`INSERT INTO servers
			(name, url, api_key, is_default, status, last_ping, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			srv.Name, srv.URL, srv.APIKey, srv.IsDefault, string(srv.Status), nullTime(srv.LastPing),
			formatTime(now)).Scan(&srv.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, err, "server %q already exists", srv.Name)
			}
			return s.mapErr(err, "create server %q", srv.Name)
		}
		srv.CreatedAt = now
		return nil
	})
}

func (s *SQLStore) GetServer(ctx context.Context, id int64) (*models.Server, error) {
	return s.getServer(ctx, s.db, id)
}

func (s *SQLStore) getServer(ctx context.Context, db queryer, id int64) (*models.Server, error) {
	srv, err := scanServer(db.QueryRowContext(ctx, s.q(`SELECT `+serverColumns+` FROM servers WHERE id = ?`), id))
	if err != nil {
		return nil, s.mapErr(err, "server %d", id)
	}
	return srv, nil
}

func (s *SQLStore) GetServerByName(ctx context.Context, name string) (*models.Server, error) {
	srv, err := scanServer(s.db.QueryRowContext(ctx, s.q(`SELECT `+serverColumns+` FROM servers WHERE name = ?`), name))
	if err != nil {
		return nil, s.mapErr(err, "server %q", name)
	}
	return srv, nil
}

// ListServers returns all servers, default first, then by name.
func (s *SQLStore) ListServers(ctx context.Context) ([]*models.Server, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY is_default DESC, name ASC`)
	if err != nil {
		return nil, s.mapErr(err, "list servers")
	}
	defer rows.Close()

	servers := []*models.Server{}
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, s.mapErr(err, "scan server")
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err, "list servers")
	}
	return servers, nil
}

func (s *SQLStore) UpdateServer(ctx context.Context, id int64, upd models.ServerUpdate) (*models.Server, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, apperr.InvalidInput("server name is required")
	}
	if upd.URL != nil && strings.TrimSpace(*upd.URL) == "" {
		return nil, apperr.InvalidInput("server url is required")
	}

	var out *models.Server
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		srv, err := s.getServer(ctx, tx, id)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			srv.Name = *upd.Name
		}
		if upd.URL != nil {
			srv.URL = strings.TrimRight(*upd.URL, "/")
		}
		if upd.APIKey != nil {
			srv.APIKey = *upd.APIKey
		}
		if upd.Status != nil {
			srv.Status = *upd.Status
		}
		if upd.LastPing != nil {
			t := upd.LastPing.UTC()
			srv.LastPing = &t
		}
		if upd.ClearDefault {
			srv.IsDefault = false
		}
		_, err = tx.ExecContext(ctx, s.q(`UPDATE servers SET
			name = ?, url = ?, api_key = ?, is_default = ?, status = ?, last_ping = ?
			WHERE id = ?`),
			srv.Name, srv.URL, srv.APIKey, srv.IsDefault, string(srv.Status), nullTime(srv.LastPing), id)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, err, "server %q already exists", srv.Name)
			}
			return s.mapErr(err, "update server %d", id)
		}
		out = srv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteServer removes the server. Workflows and history keep their
// server_id.
func (s *SQLStore) DeleteServer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM servers WHERE id = ?`), id)
	if err != nil {
		return s.mapErr(err, "delete server %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("server %d", id)
	}
	return nil
}

// SetDefaultServer clears every default flag, then sets it on id. Both steps
// run in one transaction so readers never see two defaults.
func (s *SQLStore) SetDefaultServer(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getServer(ctx, tx, id); err != nil {
			return err
		}
		if err := s.clearDefault(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE servers SET is_default = ? WHERE id = ?`), true, id); err != nil {
			return s.mapErr(err, "set default server %d", id)
		}
		return nil
	})
}

func (s *SQLStore) clearDefault(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE servers SET is_default = ? WHERE is_default`), false); err != nil {
		return s.mapErr(err, "clear default server")
	}
	return nil
}

// GetDefaultServer returns nil, nil when no server is the default.
func (s *SQLStore) GetDefaultServer(ctx context.Context) (*models.Server, error) {
	srv, err := scanServer(s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE is_default LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, s.mapErr(err, "default server")
	}
	return srv, nil
}
