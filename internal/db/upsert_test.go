package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertStatement(t *testing.T) {
	stmt, err := UpsertStatement(UpsertConfig{
		Table:        "checklists",
		Columns:      []string{"project_id", "document", "generated_at"},
		ConflictKeys: []string{"project_id"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "checklists" ("project_id", "document", "generated_at") VALUES ($1, $2, $3) `+
			`ON CONFLICT ("project_id") DO UPDATE SET "document" = EXCLUDED."document", "generated_at" = EXCLUDED."generated_at"`,
		stmt)
}

func TestUpsertStatement_ExplicitUpdateCols(t *testing.T) {
	stmt, err := UpsertStatement(UpsertConfig{
		Table:        "grc.projects",
		Columns:      []string{"id", "name", "created_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name"},
	})
	require.NoError(t, err)
	assert.Contains(t, stmt, `INSERT INTO "grc"."projects"`)
	assert.Contains(t, stmt, `DO UPDATE SET "name" = EXCLUDED."name"`)
	assert.NotContains(t, stmt, `"created_at" = EXCLUDED`)
}

func TestUpsertStatement_NothingToUpdate(t *testing.T) {
	stmt, err := UpsertStatement(UpsertConfig{
		Table:        "projects",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	})
	require.NoError(t, err)
	assert.Contains(t, stmt, "ON CONFLICT (\"id\") DO NOTHING")
}

func TestUpsertStatement_NoColumns(t *testing.T) {
	_, err := UpsertStatement(UpsertConfig{Table: "projects", ConflictKeys: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertStatement_NoConflictKeys(t *testing.T) {
	_, err := UpsertStatement(UpsertConfig{Table: "projects", Columns: []string{"id", "name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"grc.projects", `"grc"."projects"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
