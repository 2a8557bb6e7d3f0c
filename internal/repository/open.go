package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// DefaultNodeTypes seeds the node catalog on first migration.
var DefaultNodeTypes = []models.NodeType{
	{Type: "n8n-nodes-base.manualTrigger", DisplayName: "Manual Trigger", Category: "trigger", Color: "#ff6d5a"},
	{Type: "n8n-nodes-base.scheduleTrigger", DisplayName: "Schedule Trigger", Category: "trigger", Color: "#ff6d5a"},
	{Type: "n8n-nodes-base.webhook", DisplayName: "Webhook", Category: "trigger", Color: "#ff6d5a"},
	{Type: "n8n-nodes-base.httpRequest", DisplayName: "HTTP Request", Category: "action", Color: "#4285f4"},
	{Type: "n8n-nodes-base.if", DisplayName: "IF", Category: "logic", Color: "#ffcc00"},
	{Type: "n8n-nodes-base.switch", DisplayName: "Switch", Category: "logic", Color: "#ffcc00"},
	{Type: "n8n-nodes-base.set", DisplayName: "Set", Category: "transform", Color: "#4285f4"},
	{Type: "n8n-nodes-base.code", DisplayName: "Code", Category: "transform", Color: "#4285f4"},
	{Type: "n8n-nodes-base.emailSend", DisplayName: "Send Email", Category: "action", Color: "#28a745"},
	{Type: "n8n-nodes-base.slack", DisplayName: "Slack", Category: "action", Color: "#28a745"},
	{Type: "@n8n/n8n-nodes-langchain.agent", DisplayName: "AI Agent", Category: "ai", Color: "#9b59b6"},
	{Type: "@n8n/n8n-nodes-langchain.chainLlm", DisplayName: "LLM Chain", Category: "ai", Color: "#9b59b6"},
}

// Options selects and locates the backing database.
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // SQLite file
	DSN    string // PostgreSQL connection string
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	switch strings.ToLower(opts.Driver) {
	case "", string(DialectSQLite):
		return OpenSQLite(ctx, opts.Path)
	case string(DialectPostgres):
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate", path)
	return openSQLite(ctx, dsn)
}

// OpenMemory opens a private in-memory SQLite database.
func OpenMemory(ctx context.Context) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:testdb_%s?mode=memory&cache=shared&_txlock=immediate", ulid.Make().String())
	return openSQLite(ctx, dsn)
}

func openSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps a shared in-memory database alive.
	db.SetMaxOpenConns(1)
	return migrateAndWrap(ctx, db, DialectSQLite)
}

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return migrateAndWrap(ctx, db, DialectPostgres)
}

func migrateAndWrap(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and seeds the node catalog. It is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	for _, nt := range DefaultNodeTypes {
		_, err := s.db.ExecContext(ctx, s.q(
			`INSERT INTO node_catalog (node_type, display_name, category, color) VALUES (?, ?, ?, ?)
			 ON CONFLICT (node_type) DO NOTHING`),
			nt.Type, nt.DisplayName, nt.Category, nt.Color)
		if err != nil {
			return fmt.Errorf("failed to seed node catalog: %w", err)
		}
	}
	return nil
}
