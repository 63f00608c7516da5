package kg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFilters(t *testing.T) {
	const envID = "a8f1c2b4-7d0f-4c4e-9f7b-2a1d3c4b5e6f"

	docs := map[string]map[string]any{
		envID: {
			"@id":                     URIFromUUID(envID),
			VocabPrefix + "name":      "local",
			VocabPrefix + "hardware": map[string]any{"@id": URIFromUUID("0b5c8a4e-0a3f-4b5e-8e5d-6f1a2b3c4d5e")},
		},
	}

	lookup := func(_ context.Context, id string) (map[string]any, error) {
		doc, ok := docs[UUIDFromURI(id)]
		if !ok {
			return nil, &InstanceError{Op: "get", ID: id, Err: ErrNotFound}
		}

		return doc, nil
	}

	doc := map[string]any{
		VocabPrefix + "tags":        []any{"a", "b"},
		VocabPrefix + "count":       json.Number("3"),
		VocabPrefix + "environment": map[string]any{"@id": URIFromUUID(envID)},
		VocabPrefix + "launch":      map[string]any{"@id": URIFromUUID("00000000-0000-4000-8000-000000000000")},
	}

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters", nil, true},
		{"list member", []Filter{{Path: []string{"tags"}, Value: "b"}}, true},
		{"list miss", []Filter{{Path: []string{"tags"}, Value: "c"}}, false},
		{"number", []Filter{{Path: []string{"count"}, Value: "3"}}, true},
		{"reference by uuid", []Filter{{Path: []string{"environment"}, Value: envID}}, true},
		{"through a link", []Filter{{Path: []string{"environment", "name"}, Value: "local"}}, true},
		{"two links deep", []Filter{{Path: []string{"environment", "hardware"}, Value: "0b5c8a4e-0a3f-4b5e-8e5d-6f1a2b3c4d5e"}}, true},
		{"missing target", []Filter{{Path: []string{"launch", "executable"}, Value: "python"}}, false},
		{"all must hold", []Filter{
			{Path: []string{"tags"}, Value: "a"},
			{Path: []string{"environment", "name"}, Value: "remote"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchFilters(t.Context(), doc, tt.filters, lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchFilters_LookupError(t *testing.T) {
	doc := map[string]any{VocabPrefix + "environment": map[string]any{"@id": URIFromUUID("x")}}

	_, err := MatchFilters(t.Context(), doc, []Filter{{Path: []string{"environment", "name"}, Value: "local"}},
		func(context.Context, string) (map[string]any, error) {
			return nil, errors.New("connection refused")
		})
	assert.Error(t, err)
}

func TestStaticAccount(t *testing.T) {
	accounts := StaticAccount(Account{Username: "adavison"})

	a, err := accounts(t.Context(), "any token")
	require.NoError(t, err)
	a.Username = "changed"

	b, err := accounts(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, "adavison", b.Username)
}
