package project

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/store"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := invalid(KindUnknownPack, "unknown pack: a:b:c", map[string]string{"domain": "a"})
	assert.Equal(t, "unknown_pack: unknown pack: a:b:c", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(eris.New("boom")))

	data, jerr := json.Marshal(err)
	require.NoError(t, jerr)
	assert.JSONEq(t, `{"error":"unknown_pack","message":"unknown pack: a:b:c","details":{"domain":"a"}}`, string(data))
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	err := notFound(eris.Wrap(store.ErrNotFound, "sqlite: project x"), "project: get %s", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	other := notFound(eris.New("connection reset"), "project: get %s", "x")
	assert.NotErrorIs(t, other, ErrNotFound)
	assert.Contains(t, other.Error(), "connection reset")
}

func TestPatchDecoding(t *testing.T) {
	t.Parallel()

	var p ProjectPatch
	require.NoError(t, json.Unmarshal([]byte(`{"description": null}`), &p))
	assert.False(t, p.IsEmpty())
	assert.False(t, p.Name.Set)
	assert.True(t, p.Description.Set)
	assert.Nil(t, p.Description.Value)

	var empty ProjectPatch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.IsEmpty())

	var item ItemPatch
	require.NoError(t, json.Unmarshal([]byte(`{"status":"implemented","owner":"sam"}`), &item))
	assert.Equal(t, model.StatusImplemented, item.Status.Value)
	require.NotNil(t, item.Owner.Value)
	assert.Equal(t, "sam", *item.Owner.Value)
	assert.False(t, item.Notes.Set)
}
