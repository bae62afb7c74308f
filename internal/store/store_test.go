package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grc-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testDocument(id, industry string, createdAt time.Time) model.ProjectDocument {
	desc := "Claims intake assistant"
	return model.ProjectDocument{
		Project: model.ProjectMeta{
			ID:          id,
			Name:        "Project " + id,
			Description: &desc,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		},
		Inputs: model.ProjectInputs{
			IndustryID:    industry,
			SegmentID:     "pc",
			UseCaseID:     "claims-intake",
			SelectedPacks: []model.SelectedPack{{Domain: "privacy", PackID: "core", Version: "1.0.0"}},
			ScopeAnswers:  map[string]any{"deployment": "cloud"},
		},
		Context: model.ProjectContext{ProjectName: "Project " + id, IndustryID: industry, SegmentID: "pc"},
		Generated: model.FingerprintSet{
			GeneratorVersion: "grc-cli/1",
			TaxonomyHash:     "tax",
			PacksHash:        "packs",
			ChecklistHash:    "cl",
		},
	}
}

func testChecklist(generatedAt time.Time) model.Checklist {
	return model.Checklist{
		GeneratedAt: generatedAt,
		Items: []model.ChecklistItem{
			{ItemID: "data.retention", MergeKey: "data.retention", Title: "Retention policy", Severity: model.SeverityHigh,
				Domain: "privacy", Sources: []string{"privacy:core:1.0.0"}, Status: model.StatusImplemented, Evidence: []model.EvidenceRecord{}},
			{ItemID: "access.review", MergeKey: "access.review", Title: "Access review", Severity: model.SeverityMedium,
				Domain: "privacy", Sources: []string{"privacy:core:1.0.0"}, Status: model.StatusNotStarted, Evidence: []model.EvidenceRecord{}},
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateAndGetProject", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		doc := testDocument("claims-20260301-120000", "insurance", now)
		require.NoError(t, s.CreateProject(ctx, doc, testChecklist(now)))

		got, err := s.GetProject(ctx, doc.Project.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.Project.Name, got.Project.Name)
		require.NotNil(t, got.Project.Description)
		assert.Equal(t, "Claims intake assistant", *got.Project.Description)
		assert.Equal(t, doc.Inputs.SelectedPacks, got.Inputs.SelectedPacks)
		assert.Equal(t, doc.Generated, got.Generated)
		assert.True(t, doc.Project.CreatedAt.Equal(got.Project.CreatedAt))

		cl, err := s.GetChecklist(ctx, doc.Project.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.Project.ID, cl.ProjectID, "checklist is stamped with the project id")
		require.Len(t, cl.Items, 2)
		assert.Equal(t, model.StatusImplemented, cl.Items[0].Status)
	})

	t.Run("CreateProjectConflict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		doc := testDocument("dup", "insurance", now)
		require.NoError(t, s.CreateProject(ctx, doc, testChecklist(now)))

		doc.Project.Name = "Other"
		err := s.CreateProject(ctx, doc, testChecklist(now))
		require.ErrorIs(t, err, ErrConflict)

		got, err := s.GetProject(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "Project dup", got.Project.Name)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetProject(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetChecklist(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveGeneration", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		doc := testDocument("p1", "insurance", now)
		require.NoError(t, s.CreateProject(ctx, doc, testChecklist(now)))

		later := now.Add(time.Hour)
		doc.Project.UpdatedAt = later
		doc.Generated.PacksHash = "packs-v2"
		cl := testChecklist(later)
		cl.Items = cl.Items[:1]
		cl.Items[0].Status = model.StatusRiskAccepted
		require.NoError(t, s.SaveGeneration(ctx, doc, cl))

		got, err := s.GetProject(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "packs-v2", got.Generated.PacksHash)
		assert.True(t, later.Equal(got.Project.UpdatedAt))

		gotCl, err := s.GetChecklist(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, gotCl.Items, 1)
		assert.Equal(t, model.StatusRiskAccepted, gotCl.Items[0].Status)

		totals, err := s.StatusTotals(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, totals[model.StatusRiskAccepted])
		assert.Equal(t, 0, totals[model.StatusNotStarted])
		assert.Len(t, totals, len(model.Statuses))
	})

	t.Run("SaveGenerationMissingProject", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.SaveGeneration(ctx, testDocument("ghost", "insurance", now), testChecklist(now))
		require.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetChecklist(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound, "failed generation writes nothing")
	})

	t.Run("SaveProject", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		doc := testDocument("p2", "insurance", now)
		require.NoError(t, s.CreateProject(ctx, doc, testChecklist(now)))

		doc.Project.Name = "Renamed"
		doc.Project.Description = nil
		require.NoError(t, s.SaveProject(ctx, doc))

		got, err := s.GetProject(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Project.Name)
		assert.Nil(t, got.Project.Description)

		assert.ErrorIs(t, s.SaveProject(ctx, testDocument("ghost", "insurance", now)), ErrNotFound)
	})

	t.Run("ListProjects", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.CreateProject(ctx, testDocument("a", "insurance", now), testChecklist(now)))
		require.NoError(t, s.CreateProject(ctx, testDocument("b", "banking", now.Add(time.Minute)), testChecklist(now)))
		require.NoError(t, s.CreateProject(ctx, testDocument("c", "insurance", now.Add(2*time.Minute)), testChecklist(now)))

		all, err := s.ListProjects(ctx, ProjectFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "c", all[0].ID, "newest first")
		assert.Equal(t, 1, all[0].Packs)

		insurance, err := s.ListProjects(ctx, ProjectFilter{IndustryID: "insurance"})
		require.NoError(t, err)
		assert.Len(t, insurance, 2)

		page, err := s.ListProjects(ctx, ProjectFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "b", page[0].ID)
	})

	t.Run("ListProjectsEmpty", func(t *testing.T) {
		s := newStore(t)

		all, err := s.ListProjects(context.Background(), ProjectFilter{})
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("DeleteProjectKeepsAudit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.CreateProject(ctx, testDocument("gone", "insurance", now), testChecklist(now)))
		require.NoError(t, s.AppendAudit(ctx, model.AuditEntry{
			ID: "a1", ProjectID: "gone", EventType: model.EventProjectCreated, Actor: "alice", Timestamp: now,
			Payload: map[string]any{"name": "Project gone"},
		}))

		require.NoError(t, s.DeleteProject(ctx, "gone"))

		_, err := s.GetProject(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetChecklist(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)

		entries, err := s.ListAudit(ctx, "gone")
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		totals, err := s.StatusTotals(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, totals[model.StatusImplemented])

		assert.ErrorIs(t, s.DeleteProject(ctx, "gone"), ErrNotFound)
	})

	t.Run("AuditOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, ev := range []string{model.EventProjectCreated, model.EventChecklistItemPatch, model.EventEvidenceUploaded} {
			require.NoError(t, s.AppendAudit(ctx, model.AuditEntry{
				ID:        ev,
				ProjectID: "p",
				EventType: ev,
				Actor:     "bob",
				Timestamp: now.Add(time.Duration(i) * time.Second),
				Payload:   map[string]any{"step": float64(i)},
			}))
		}
		require.NoError(t, s.AppendAudit(ctx, model.AuditEntry{ID: "other", ProjectID: "q", EventType: model.EventProjectCreated, Actor: "bob", Timestamp: now}))

		entries, err := s.ListAudit(ctx, "p")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, model.EventProjectCreated, entries[0].EventType)
		assert.Equal(t, model.EventEvidenceUploaded, entries[2].EventType)
		assert.Equal(t, float64(2), entries[2].Payload["step"])
		assert.Equal(t, "bob", entries[1].Actor)
		assert.True(t, now.Add(time.Second).Equal(entries[1].Timestamp))

		none, err := s.ListAudit(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
