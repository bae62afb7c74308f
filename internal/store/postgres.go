package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/db"
	"github.com/sells-group/grc-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var checklistUpsert = mustUpsert(db.UpsertConfig{
	Table:        "checklists",
	Columns:      []string{"project_id", "document", "generated_at"},
	ConflictKeys: []string{"project_id"},
})

func mustUpsert(cfg db.UpsertConfig) string {
	stmt, err := db.UpsertStatement(cfg)
	if err != nil {
		panic(err)
	}
	return stmt
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	industry_id TEXT NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS checklists (
	project_id   TEXT PRIMARY KEY,
	document     JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS checklist_items (
	project_id TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	merge_key  TEXT NOT NULL,
	severity   TEXT NOT NULL,
	status     TEXT NOT NULL,
	domain     TEXT NOT NULL,
	PRIMARY KEY (project_id, item_id)
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	project_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	actor      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	payload    JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_industry ON projects(industry_id);
CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_checklist_items_status ON checklist_items(status);
CREATE INDEX IF NOT EXISTS idx_audit_log_project ON audit_log(project_id, seq);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, doc model.ProjectDocument, cl model.Checklist) error {
	docJSON, clJSON, err := marshalDocuments(doc, &cl)
	if err != nil {
		return err
	}

	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO projects (id, name, industry_id, document, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			doc.Project.ID, doc.Project.Name, doc.Inputs.IndustryID, docJSON,
			doc.Project.CreatedAt.UTC(), doc.Project.UpdatedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert project %s", doc.Project.ID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrConflict, "postgres: project %s", doc.Project.ID)
		}
		return s.writeChecklist(ctx, tx, cl, clJSON)
	})
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (*model.ProjectDocument, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM projects WHERE id = $1`, projectID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: project %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get project %s", projectID)
	}
	var doc model.ProjectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal project")
	}
	return &doc, nil
}

func (s *PostgresStore) GetChecklist(ctx context.Context, projectID string) (*model.Checklist, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM checklists WHERE project_id = $1`, projectID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: checklist %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get checklist %s", projectID)
	}
	var cl model.Checklist
	if err := json.Unmarshal(raw, &cl); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal checklist")
	}
	return &cl, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.ProjectSummary, error) {
	query := `SELECT document FROM projects WHERE true`
	args := []any{}
	argIdx := 1

	if filter.IndustryID != "" {
		query += fmt.Sprintf(` AND industry_id = $%d`, argIdx)
		args = append(args, filter.IndustryID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
		if filter.Offset > 0 {
			query += fmt.Sprintf(` OFFSET $%d`, argIdx)
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	projects := []model.ProjectSummary{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		var doc model.ProjectDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal project")
		}
		projects = append(projects, doc.Summary())
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list projects iterate")
}

func (s *PostgresStore) SaveProject(ctx context.Context, doc model.ProjectDocument) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal project")
	}
	return s.updateProject(ctx, s.pool, doc, docJSON)
}

func (s *PostgresStore) SaveGeneration(ctx context.Context, doc model.ProjectDocument, cl model.Checklist) error {
	docJSON, clJSON, err := marshalDocuments(doc, &cl)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.updateProject(ctx, tx, doc, docJSON); err != nil {
			return err
		}
		return s.writeChecklist(ctx, tx, cl, clJSON)
	})
}

func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
		if err != nil {
			return eris.Wrapf(err, "postgres: delete project %s", projectID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "postgres: project %s", projectID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM checklists WHERE project_id = $1`, projectID); err != nil {
			return eris.Wrapf(err, "postgres: delete checklist %s", projectID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM checklist_items WHERE project_id = $1`, projectID); err != nil {
			return eris.Wrapf(err, "postgres: delete checklist items %s", projectID)
		}
		return nil
	})
}

func (s *PostgresStore) StatusTotals(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM checklist_items GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: status totals")
	}
	defer rows.Close()

	return scanStatusTotals(rows, "postgres")
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit payload")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, project_id, event_type, actor, created_at, payload) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ProjectID, entry.EventType, entry.Actor, entry.Timestamp.UTC(), payload,
	)
	return eris.Wrapf(err, "postgres: append audit %s", entry.EventType)
}

func (s *PostgresStore) ListAudit(ctx context.Context, projectID string) ([]model.AuditEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, event_type, actor, created_at, payload FROM audit_log WHERE project_id = $1 ORDER BY seq ASC`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.EventType, &e.Actor, &e.Timestamp, &payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		e.Timestamp = e.Timestamp.UTC()
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit payload")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

func (s *PostgresStore) updateProject(ctx context.Context, q db.Querier, doc model.ProjectDocument, docJSON []byte) error {
	tag, err := q.Exec(ctx,
		`UPDATE projects SET name = $1, industry_id = $2, document = $3, updated_at = $4 WHERE id = $5`,
		doc.Project.Name, doc.Inputs.IndustryID, docJSON, doc.Project.UpdatedAt.UTC(), doc.Project.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update project %s", doc.Project.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: project %s", doc.Project.ID)
	}
	return nil
}

func (s *PostgresStore) writeChecklist(ctx context.Context, tx pgx.Tx, cl model.Checklist, clJSON []byte) error {
	if _, err := tx.Exec(ctx, checklistUpsert, cl.ProjectID, clJSON, cl.GeneratedAt.UTC()); err != nil {
		return eris.Wrapf(err, "postgres: write checklist %s", cl.ProjectID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM checklist_items WHERE project_id = $1`, cl.ProjectID); err != nil {
		return eris.Wrapf(err, "postgres: clear checklist items %s", cl.ProjectID)
	}
	_, err := db.CopyFrom(ctx, tx, "checklist_items", itemColumns, itemRows(cl))
	return eris.Wrapf(err, "postgres: index checklist items %s", cl.ProjectID)
}
