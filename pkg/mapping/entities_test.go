package mapping

import (
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storedEnvironment saves the sample environment and reads it back the way
// a client would receive it.
func storedEnvironment(t *testing.T, m *Mapper, store kg.Store) models.ComputationalEnvironment {
	t.Helper()

	link, err := m.EnvironmentToGraph(t.Context(), store, testutil.CreateTestComputation().Environment)
	require.NoError(t, err)
	require.NoError(t, store.Save(t.Context(), link.Node(), kg.SaveOptions{Space: kg.MySpace, Recursive: true}))

	env, err := m.EnvironmentFromGraph(t.Context(), kg.Ref(kg.UUIDFromURI(link.Target()), kg.TypeEnvironment), store)
	require.NoError(t, err)
	require.NotNil(t, env.ID)

	return env
}

func TestEnvironmentToGraph_Reference(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	stored := storedEnvironment(t, m, store)

	t.Run("unchanged content links the stored node", func(t *testing.T) {
		link, err := m.EnvironmentToGraph(ctx, store, stored)
		require.NoError(t, err)
		assert.Equal(t, *stored.ID, kg.UUIDFromURI(link.Target()))
	})

	t.Run("edited content builds a new node", func(t *testing.T) {
		edited := stored
		edited.Name = "RENAMED"
		edited.Hardware = "pizdaint"

		link, err := m.EnvironmentToGraph(ctx, store, edited)
		require.NoError(t, err)

		env, err := kg.Resolved[*kg.Environment](link)
		require.NoError(t, err)
		assert.False(t, env.Persisted())
		assert.Equal(t, "RENAMED", env.Name)
		assert.Equal(t, testutil.TermID(kg.TypeHardwareSystem, "pizdaint"), kg.UUIDFromURI(env.Hardware.Target()))
		require.Len(t, env.Software, 2)
		assert.Equal(t, *stored.Software[0].ID, kg.UUIDFromURI(env.Software[0].Target()))
	})

	t.Run("edited hardware is still checked", func(t *testing.T) {
		edited := stored
		edited.Hardware = "abacus"

		_, err := m.EnvironmentToGraph(ctx, store, edited)
		assert.ErrorIs(t, err, ErrUnknownHardware)
	})

	t.Run("missing environment", func(t *testing.T) {
		missing := stored
		missing.ID = ptr("9b2e4c1d-7a3f-4e6b-8c5d-2f1a0e9d8c7b")

		_, err := m.EnvironmentToGraph(ctx, store, missing)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSuchReference)
		assert.True(t, IsClientError(err))

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "environment.id", fe.Field)
	})

	t.Run("identifier of another type", func(t *testing.T) {
		other := stored
		other.ID = stored.Software[0].ID

		_, err := m.EnvironmentToGraph(ctx, store, other)
		assert.ErrorIs(t, err, ErrNoSuchReference)
	})
}

func TestSoftwareVersionToGraph_Reference(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	numpy := kg.NewSoftwareVersion("numpy", "1.19.3", kg.Relax("alias"))
	require.NoError(t, store.Save(ctx, numpy, kg.SaveOptions{Space: kg.MySpace}))

	id := numpy.UUID()

	link, err := m.SoftwareVersionToGraph(ctx, store, models.SoftwareVersion{ID: &id, SoftwareName: "numpy", SoftwareVersion: "1.19.3"})
	require.NoError(t, err)
	assert.Equal(t, numpy.ID, link.Target())

	link, err = m.SoftwareVersionToGraph(ctx, store, models.SoftwareVersion{ID: &id, SoftwareName: "numpy", SoftwareVersion: "1.20.0"})
	require.NoError(t, err)

	sv, err := kg.Resolved[*kg.SoftwareVersion](link)
	require.NoError(t, err)
	assert.False(t, sv.Persisted(), "a changed version is not folded into the referenced one")
	assert.Equal(t, "1.20.0", sv.VersionIdentifier)

	_, err = m.SoftwareVersionToGraph(ctx, store, models.SoftwareVersion{
		ID:              ptr("9b2e4c1d-7a3f-4e6b-8c5d-2f1a0e9d8c7b"),
		SoftwareName:    "numpy",
		SoftwareVersion: "1.19.3",
	})
	assert.ErrorIs(t, err, ErrNoSuchReference)
}

func TestPersonToGraph_ORCID(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	orcid := "https://orcid.org/0000-0001-7405-0455"

	save := func(p models.Person) *kg.Person {
		t.Helper()

		link, err := m.PersonToGraph(ctx, store, p)
		require.NoError(t, err)

		person, err := kg.Resolved[*kg.Person](link)
		require.NoError(t, err)

		if !person.Persisted() {
			require.NoError(t, store.Save(ctx, person, kg.SaveOptions{Space: kg.MySpace, Recursive: true}))
		}

		return person
	}

	anonymous := save(models.Person{GivenName: "Alain", FamilyName: "Destexhe"})
	identified := save(models.Person{GivenName: "Alain", FamilyName: "Destexhe", ORCID: &orcid})
	assert.NotEqual(t, anonymous.ID, identified.ID, "a supplied ORCID is never dropped")

	got, err := m.PersonFromGraph(ctx, kg.To(identified), store)
	require.NoError(t, err)
	require.NotNil(t, got.ORCID)
	assert.Equal(t, orcid, *got.ORCID)

	assert.Equal(t, identified.ID, save(models.Person{GivenName: "Alain", FamilyName: "Destexhe", ORCID: &orcid}).ID)
	assert.Equal(t, anonymous.ID, save(models.Person{GivenName: "Alain", FamilyName: "Destexhe"}).ID)

	_, err = m.PersonToGraph(ctx, store, models.Person{GivenName: "Andrew", FamilyName: "Davison", ORCID: &orcid})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrORCIDConflict)
	assert.True(t, IsClientError(err))
}

func TestQuantityFromGraph_UnknownUnit(t *testing.T) {
	m := New(testutil.Vocab())

	unit := kg.Ref("5e8f0c2a-1b3d-4f6a-9c7e-0d2b4a6c8e1f", kg.TypeUnitOfMeasurement)

	_, _, err := m.QuantityFromGraph(kg.QuantitativeValue{Value: 3, Unit: unit})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedInput)
	assert.False(t, IsClientError(err), "stored data is at fault, not the request")

	_, err = m.ResourceUsageFromGraph(kg.QuantitativeValue{Value: 3, Unit: unit})
	assert.ErrorIs(t, err, ErrUnexpectedInput)

	set := kg.NewParameterSet("", []kg.Parameter{{Numerical: &kg.NumericalParameter{
		Name:   "tau_m",
		Values: []kg.QuantitativeValue{{Value: 20, Unit: unit}},
	}}}, kg.Relax("context"))

	_, err = m.ParameterSetFromGraph(set)
	assert.ErrorIs(t, err, ErrUnexpectedInput)

	value, name, err := m.QuantityFromGraph(kg.QuantitativeValue{Value: 3})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, value, 0)
	assert.Empty(t, name)
}
