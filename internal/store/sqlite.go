package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/grc-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	industry_id TEXT NOT NULL,
	document    TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS checklists (
	project_id   TEXT PRIMARY KEY,
	document     TEXT NOT NULL,
	generated_at DATETIME NOT NULL
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
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	project_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	actor      TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	payload    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_industry ON projects(industry_id);
CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);
CREATE INDEX IF NOT EXISTS idx_checklist_items_status ON checklist_items(status);
CREATE INDEX IF NOT EXISTS idx_audit_log_project ON audit_log(project_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) CreateProject(ctx context.Context, doc model.ProjectDocument, cl model.Checklist) error {
	docJSON, clJSON, err := marshalDocuments(doc, &cl)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects (id, name, industry_id, document, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			doc.Project.ID, doc.Project.Name, doc.Inputs.IndustryID, string(docJSON),
			doc.Project.CreatedAt.UTC(), doc.Project.UpdatedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert project %s", doc.Project.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return eris.Wrap(err, "sqlite: rows affected")
		}
		if n == 0 {
			return eris.Wrapf(ErrConflict, "sqlite: project %s", doc.Project.ID)
		}
		return writeChecklist(ctx, tx, cl, clJSON)
	})
}

func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*model.ProjectDocument, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM projects WHERE id = ?`, projectID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: project %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get project %s", projectID)
	}
	var doc model.ProjectDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal project")
	}
	return &doc, nil
}

func (s *SQLiteStore) GetChecklist(ctx context.Context, projectID string) (*model.Checklist, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM checklists WHERE project_id = ?`, projectID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: checklist %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get checklist %s", projectID)
	}
	var cl model.Checklist
	if err := json.Unmarshal([]byte(raw), &cl); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal checklist")
	}
	return &cl, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.ProjectSummary, error) {
	query := `SELECT document FROM projects WHERE 1=1`
	var args []any

	if filter.IndustryID != "" {
		query += ` AND industry_id = ?`
		args = append(args, filter.IndustryID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close() //nolint:errcheck

	projects := []model.ProjectSummary{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		var doc model.ProjectDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal project")
		}
		projects = append(projects, doc.Summary())
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list projects iterate")
}

func (s *SQLiteStore) SaveProject(ctx context.Context, doc model.ProjectDocument) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal project")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateProject(ctx, tx, doc, docJSON)
	})
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, doc model.ProjectDocument, cl model.Checklist) error {
	docJSON, clJSON, err := marshalDocuments(doc, &cl)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateProject(ctx, tx, doc, docJSON); err != nil {
			return err
		}
		return writeChecklist(ctx, tx, cl, clJSON)
	})
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
		if err != nil {
			return eris.Wrapf(err, "sqlite: delete project %s", projectID)
		}
		if err := checkRowsAffected(res, "project", projectID); err != nil {
			return err
		}
		for _, stmt := range []string{
			`DELETE FROM checklists WHERE project_id = ?`,
			`DELETE FROM checklist_items WHERE project_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, projectID); err != nil {
				return eris.Wrapf(err, "sqlite: delete checklist %s", projectID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) StatusTotals(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM checklist_items GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: status totals")
	}
	defer rows.Close() //nolint:errcheck

	return scanStatusTotals(rows, "sqlite")
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit payload")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, project_id, event_type, actor, created_at, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.EventType, entry.Actor, entry.Timestamp.UTC(), string(payload),
	)
	return eris.Wrapf(err, "sqlite: append audit %s", entry.EventType)
}

func (s *SQLiteStore) ListAudit(ctx context.Context, projectID string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, event_type, actor, created_at, payload FROM audit_log
		 WHERE project_id = ? ORDER BY seq ASC`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close() //nolint:errcheck

	entries := []model.AuditEntry{}
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// helpers

func updateProject(ctx context.Context, tx *sql.Tx, doc model.ProjectDocument, docJSON []byte) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET name = ?, industry_id = ?, document = ?, updated_at = ? WHERE id = ?`,
		doc.Project.Name, doc.Inputs.IndustryID, string(docJSON), doc.Project.UpdatedAt.UTC(), doc.Project.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update project %s", doc.Project.ID)
	}
	return checkRowsAffected(res, "project", doc.Project.ID)
}

func writeChecklist(ctx context.Context, tx *sql.Tx, cl model.Checklist, clJSON []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO checklists (project_id, document, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET document = excluded.document, generated_at = excluded.generated_at`,
		cl.ProjectID, string(clJSON), cl.GeneratedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: write checklist %s", cl.ProjectID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_items WHERE project_id = ?`, cl.ProjectID); err != nil {
		return eris.Wrapf(err, "sqlite: clear checklist items %s", cl.ProjectID)
	}
	rows := itemRows(cl)
	if len(rows) == 0 {
		return nil
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(itemColumns)), ", ") + ")"
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO checklist_items (`+strings.Join(itemColumns, ", ")+`) VALUES `+placeholders)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare checklist items")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert checklist item %v", row[1])
		}
	}
	return nil
}

// marshalDocuments encodes a project and its checklist, stamping the
// checklist with the project id.
func marshalDocuments(doc model.ProjectDocument, cl *model.Checklist) ([]byte, []byte, error) {
	cl.ProjectID = doc.Project.ID
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal project")
	}
	clJSON, err := json.Marshal(cl)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal checklist")
	}
	return docJSON, clJSON, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAudit(row scannable) (*model.AuditEntry, error) {
	var e model.AuditEntry
	var payload string
	var ts time.Time
	if err := row.Scan(&e.ID, &e.ProjectID, &e.EventType, &e.Actor, &ts, &payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit")
	}
	e.Timestamp = ts.UTC()
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal audit payload")
	}
	return &e, nil
}

func scanStatusTotals(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}, driver string) (map[model.Status]int, error) {
	totals := make(map[model.Status]int, len(model.Statuses))
	for _, st := range model.Statuses {
		totals[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrapf(err, "%s: scan status totals", driver)
		}
		totals[model.Status(status)] = n
	}
	return totals, eris.Wrapf(rows.Err(), "%s: status totals iterate", driver)
}
