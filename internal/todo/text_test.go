package todo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "Buy milk", "Buy milk", false},
		{"trimmed", "  Buy milk \t", "Buy milk", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"nfc", "Café", "Café", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTitle(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesTitle(t *testing.T) {
	assert.True(t, MatchesTitle("Learn GraphQL", "graph"))
	assert.True(t, MatchesTitle("Learn GraphQL", "LEARN"))
	assert.True(t, MatchesTitle("Visiter l'École", "école"))
	assert.True(t, MatchesTitle("anything", ""))
	assert.False(t, MatchesTitle("Deploy", "build"))
}

func TestFilter_PreservesOrder(t *testing.T) {
	items := []Item{
		{ID: "1", Title: "Build app"},
		{ID: "2", Title: "Deploy"},
		{ID: "3", Title: "Build docs"},
	}
	got := Filter(items, "build")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestPatchApply(t *testing.T) {
	item := Item{ID: "1", Title: "a", Completed: false}

	assert.Equal(t, item, Patch{}.Apply(item))

	done := true
	got := Patch{Completed: &done}.Apply(item)
	assert.True(t, got.Completed)
	assert.Equal(t, "a", got.Title)
}

func TestItemJSON_TransferShape(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	item := Item{ID: "1", Title: "Buy milk", Completed: false, CreatedAt: created}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","title":"Buy milk","completed":false,"createdAt":"2025-03-01T11:30:00Z"}`, string(data))

	var back Item
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, item.ID, back.ID)
	assert.True(t, created.Equal(back.CreatedAt))
}

func TestIndexOf(t *testing.T) {
	items := []Item{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 1, IndexOf(items, "b"))
	assert.Equal(t, -1, IndexOf(items, "c"))
}
