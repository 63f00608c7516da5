package vocab_test

import (
	"log/slog"
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/testutil"
	"github.com/ebrains-prov/provenance-api/pkg/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsReleasedVocabularies(t *testing.T) {
	store := testutil.NewStore(t)

	for _, node := range testutil.VocabNodes() {
		require.NoError(t, store.Save(t.Context(), node, kg.SaveOptions{Space: "controlled"}))
	}

	// terms outside released spaces are not part of the vocabulary
	private := kg.NewTerm(kg.TypeUnitOfMeasurement, "furlong")
	require.NoError(t, store.Save(t.Context(), private, kg.SaveOptions{Space: kg.MySpace}))

	registry, err := vocab.Load(t.Context(), store, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, len(testutil.VocabNodes()), registry.Len())

	link, ok := registry.Unit("byte")
	require.True(t, ok)
	assert.Nil(t, link.Node(), "vocabulary links are references")
	assert.Equal(t, kg.URIFromUUID(testutil.TermID(kg.TypeUnitOfMeasurement, "byte")), link.ID)

	_, ok = registry.Unit("furlong")
	assert.False(t, ok)
}

func TestRegistry_NameAndLookup(t *testing.T) {
	registry := testutil.Vocab()

	link, ok := registry.Hardware("spinnaker")
	require.True(t, ok)

	name, ok := registry.Name(link)
	require.True(t, ok)
	assert.Equal(t, "spinnaker", name)

	org, ok := registry.Organization("EBRAINS")
	require.True(t, ok)

	name, ok = registry.Name(org)
	require.True(t, ok)
	assert.Equal(t, "EBRAINS", name)

	_, ok = registry.Name(kg.Ref("00000000-0000-0000-0000-000000000000", kg.TypeHardwareSystem))
	assert.False(t, ok)

	_, ok = registry.Name(nil)
	assert.False(t, ok)

	assert.Equal(t, []string{"jureca", "pc", "pizdaint", "spinnaker"}, registry.Names(kg.TypeHardwareSystem))
}

func TestStatus_Bijection(t *testing.T) {
	tests := []struct {
		status string
		graph  string
	}{
		{"queued", "potential"},
		{"running", "active"},
		{"completed", "completed"},
		{"failed", "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			graph, ok := vocab.StatusToGraph(tt.status)
			require.True(t, ok)
			assert.Equal(t, tt.graph, graph)

			back, ok := vocab.StatusFromGraph(graph)
			require.True(t, ok)
			assert.Equal(t, tt.status, back)
		})
	}

	_, ok := vocab.StatusToGraph("sleeping")
	assert.False(t, ok)

	_, ok = vocab.StatusFromGraph("queued")
	assert.False(t, ok)
}
