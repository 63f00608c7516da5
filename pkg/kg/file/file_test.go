package file

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Connector, kg.Store) {
	t.Helper()

	conn := NewConnector("file://"+t.TempDir(), kg.StaticAccount(kg.Account{
		Username:   "adavison",
		GivenName:  "Andrew",
		FamilyName: "Davison",
	}))

	return conn, conn.ForToken("token")
}

func sampleComputation() *kg.Computation {
	hardware := kg.NewTerm(kg.TypeHardwareSystem, "spinnaker", kg.WithID("7c4d1a7e-1f55-4c36-9c23-0d1f0e0c0001"))

	env := &kg.Environment{
		Name:     "SpiNNaker default",
		Hardware: kg.Ref(hardware.UUID(), kg.TypeHardwareSystem),
		Software: []*kg.Link{kg.To(kg.NewSoftwareVersion("numpy", "1.19.3", kg.Relax("alias")))},
	}

	c := kg.NewComputation(kg.TypeSimulation)
	c.LookupLabel = "Simulation by Andrew Davison"
	c.StartedAtTime = time.Date(2021, 5, 28, 16, 32, 58, 0, time.UTC)
	c.Environment = kg.To(env)
	c.LaunchConfiguration = kg.To(&kg.LaunchConfiguration{Executable: "/usr/bin/python"})
	c.Tags = []string{"string", "test"}

	return c
}

func TestStore_SaveRecursiveAndGet(t *testing.T) {
	conn, store := newTestStore(t)
	c := sampleComputation()

	err := store.Save(t.Context(), c, kg.SaveOptions{Space: kg.MySpace, Recursive: true})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, kg.MySpace, c.Space)
	assert.FileExists(t, filepath.Join(conn.Root(), privateDir, "adavison", c.UUID()+".json"))

	env, err := kg.Resolved[*kg.Environment](c.Environment)
	require.NoError(t, err)
	assert.True(t, env.Persisted())

	loaded, err := store.Get(t.Context(), c.UUID(), kg.ScopeInProgress)
	require.NoError(t, err)

	got, ok := loaded.(*kg.Computation)
	require.True(t, ok)
	assert.Equal(t, kg.TypeSimulation, got.Type())
	assert.Equal(t, c.LookupLabel, got.LookupLabel)
	assert.True(t, c.StartedAtTime.Equal(got.StartedAtTime))
	assert.Equal(t, []string{"string", "test"}, got.Tags)
	assert.Equal(t, kg.MySpace, got.Space)

	// links come back as proxies
	assert.Nil(t, got.Environment.Node())
	assert.Equal(t, env.ID, got.Environment.ID)

	resolved, err := kg.ResolveAs[*kg.Environment](t.Context(), store, got.Environment, kg.ScopeInProgress)
	require.NoError(t, err)
	assert.Equal(t, "SpiNNaker default", resolved.Name)
	assert.Len(t, resolved.Software, 1)
}

func TestStore_StrictValidation(t *testing.T) {
	_, store := newTestStore(t)

	sv := kg.NewSoftwareVersion("numpy", "1.19.3")
	err := store.Save(t.Context(), sv, kg.SaveOptions{Space: kg.MySpace})
	require.Error(t, err)
	assert.ErrorIs(t, err, kg.ErrStrictValidation)

	relaxed := kg.NewSoftwareVersion("numpy", "1.19.3", kg.Relax("alias"))
	require.NoError(t, store.Save(t.Context(), relaxed, kg.SaveOptions{Space: kg.MySpace}))

	// relaxing one node leaves others strict
	other := kg.NewSoftwareVersion("neo", "0.9.0")
	assert.ErrorIs(t, store.Save(t.Context(), other, kg.SaveOptions{Space: kg.MySpace}), kg.ErrStrictValidation)
}

func TestStore_GetNotFound(t *testing.T) {
	_, store := newTestStore(t)

	_, err := store.Get(t.Context(), "00000000-0000-4000-8000-000000000000", kg.ScopeAny)
	require.Error(t, err)
	assert.True(t, kg.IsNotFound(err))
}

func TestStore_ListFiltersAndPagination(t *testing.T) {
	_, store := newTestStore(t)

	for i, tags := range [][]string{{"a"}, {"a", "b"}, {"b"}} {
		c := sampleComputation()
		c.Tags = tags
		c.LookupLabel = "run " + string(rune('0'+i))
		require.NoError(t, store.Save(t.Context(), c, kg.SaveOptions{Space: "collab-test", Recursive: true}))
	}

	all, err := store.List(t.Context(), kg.ListOptions{Type: kg.TypeSimulation, Scope: kg.ScopeAny})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tagged, err := store.List(t.Context(), kg.ListOptions{
		Type:    kg.TypeSimulation,
		Scope:   kg.ScopeAny,
		Filters: []kg.Filter{{Path: []string{"tags"}, Value: "a"}},
	})
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	byHardware, err := store.List(t.Context(), kg.ListOptions{
		Type:    kg.TypeSimulation,
		Scope:   kg.ScopeAny,
		Filters: []kg.Filter{{Path: []string{"environment", "hardware"}, Value: "7c4d1a7e-1f55-4c36-9c23-0d1f0e0c0001"}},
	})
	require.NoError(t, err)
	assert.Len(t, byHardware, 3)

	page, err := store.List(t.Context(), kg.ListOptions{Type: kg.TypeSimulation, Scope: kg.ScopeAny, From: 2, Size: 5})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	count, err := store.Count(t.Context(), kg.ListOptions{Type: kg.TypeSimulation, Space: "collab-test", Scope: kg.ScopeAny})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	released, err := store.List(t.Context(), kg.ListOptions{Type: kg.TypeSimulation, Scope: kg.ScopeReleased})
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestStore_Delete(t *testing.T) {
	_, store := newTestStore(t)
	c := sampleComputation()
	require.NoError(t, store.Save(t.Context(), c, kg.SaveOptions{Space: kg.MySpace, Recursive: true}))

	require.NoError(t, store.Delete(t.Context(), c))

	_, err := store.Get(t.Context(), c.ID, kg.ScopeAny)
	assert.True(t, kg.IsNotFound(err))
}

func TestStore_Me(t *testing.T) {
	_, store := newTestStore(t)

	me, err := kg.Me(t.Context(), store)
	require.NoError(t, err)
	assert.False(t, me.Persisted())
	assert.Equal(t, "Andrew Davison", me.FullName())

	require.NoError(t, store.Save(t.Context(), me, kg.SaveOptions{Space: kg.MySpace}))

	again, err := kg.Me(t.Context(), store)
	require.NoError(t, err)
	assert.Equal(t, me.ID, again.ID)
}

func TestStore_MeSkipsNamesakeWithORCID(t *testing.T) {
	_, store := newTestStore(t)

	namesake := &kg.Person{
		GivenName:          "Andrew",
		FamilyName:         "Davison",
		DigitalIdentifiers: []*kg.Link{kg.To(&kg.ORCID{Identifier: "https://orcid.org/0000-0002-4793-7541"})},
	}
	require.NoError(t, store.Save(t.Context(), namesake, kg.SaveOptions{Space: kg.MySpace, Recursive: true}))

	me, err := kg.Me(t.Context(), store)
	require.NoError(t, err)
	assert.False(t, me.Persisted())

	found, err := kg.FindPerson(t.Context(), store, "Andrew", "Davison", "https://orcid.org/0000-0002-4793-7541")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, namesake.ID, found.ID)
}

func TestStore_Spaces(t *testing.T) {
	_, store := newTestStore(t)
	require.NoError(t, store.Save(t.Context(), sampleComputation(), kg.SaveOptions{Space: "collab-b", Recursive: true}))
	require.NoError(t, store.Save(t.Context(), sampleComputation(), kg.SaveOptions{Space: "collab-a", Recursive: true}))
	require.NoError(t, store.Save(t.Context(), sampleComputation(), kg.SaveOptions{Space: kg.MySpace, Recursive: true}))

	spaces, err := store.Spaces(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{kg.MySpace, "collab-a", "collab-b"}, spaces)
}
