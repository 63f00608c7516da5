package mapping

import (
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.9", "1.10", -1},
		{"1.10", "1.9", 1},
		{"2.0", "2.0", 0},
		{"2.0", "2.0.1", -1},
		{"v1.2", "v1.10", -1},
		{"1.0-beta", "1.0-alpha", 1},
		{"10", "9", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestLatestVersion(t *testing.T) {
	versions := []*kg.WorkflowRecipeVersion{
		{VersionIdentifier: "1.2"},
		{VersionIdentifier: "1.10"},
		{VersionIdentifier: "1.9"},
	}

	assert.Equal(t, "1.10", LatestVersion(versions).VersionIdentifier)
	assert.Nil(t, LatestVersion(nil))
}

func TestRecipe_RoundTrip(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	recipe := testutil.CreateTestRecipe("1.0")

	v, err := m.RecipeToGraph(ctx, store, recipe)
	require.NoError(t, err)

	require.NotNil(t, v.Repository)
	repo, err := kg.Resolved[*kg.FileRepository](v.Repository)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/ebrains/membrane-analysis", repo.IRI)

	parent := NewRecipe(v)
	require.NoError(t, store.Save(ctx, parent, kg.SaveOptions{Space: kg.MySpace, Recursive: true}))

	loaded, err := kg.GetAs(ctx, store, v.UUID(), kg.TypeWorkflowRecipeVersion, kg.ScopeInProgress)
	require.NoError(t, err)

	found, err := FindRecipe(ctx, store, v.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Membrane analysis", found.Name)

	got, err := m.RecipeFromGraph(ctx, loaded.(*kg.WorkflowRecipeVersion), found, store)
	require.NoError(t, err)

	recipe.ID = got.ID
	assert.Equal(t, recipe, got)
}

func TestRecipe_ParentFallback(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	recipe := testutil.CreateTestRecipe("2.0")
	v, err := m.RecipeToGraph(ctx, store, recipe)
	require.NoError(t, err)

	parent := NewRecipe(v)

	v.Name = ""
	v.Description = ""
	v.Developers = nil

	got, err := m.RecipeFromGraph(ctx, v, parent, store)
	require.NoError(t, err)

	assert.Equal(t, "Membrane analysis", *got.Name)
	assert.Equal(t, "Computes input resistance from recordings", *got.Description)
	require.Len(t, got.Developers, 1)
	assert.Equal(t, "Davison", got.Developers[0].FamilyName)
}

func TestRecipe_UnknownType(t *testing.T) {
	m := New(testutil.Vocab())

	recipe := testutil.CreateTestRecipe("1.0")
	unicore := models.RecipeUNICORE
	recipe.Type = &unicore

	// the UNICORE content type is not part of the test vocabulary
	_, err := m.RecipeToGraph(t.Context(), testutil.NewStore(t), recipe)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownContentType)
}

func TestRecipeType(t *testing.T) {
	typ, ok := RecipeType("application/x-ipynb+json")
	require.True(t, ok)
	assert.Equal(t, models.RecipeJupyter, typ)

	_, ok = RecipeType("application/json")
	assert.False(t, ok)
}
