package mapping

import (
	"strings"
	"testing"
	"time"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// saveAndLoad writes node to the caller's private space and reads it back.
func saveAndLoad(t *testing.T, store kg.Store, node *kg.Computation) *kg.Computation {
	t.Helper()

	require.NoError(t, store.Save(t.Context(), node, kg.SaveOptions{Space: kg.MySpace, Recursive: true}))

	loaded, err := store.Get(t.Context(), node.UUID(), kg.ScopeInProgress)
	require.NoError(t, err)

	c, ok := loaded.(*kg.Computation)
	require.True(t, ok)

	return c
}

// normalize clears the identifiers the server assigns to nested entities and
// aligns time values so records can be compared with assert.Equal.
func normalize(t *testing.T, want models.Computation, got *models.Computation) {
	t.Helper()

	require.True(t, want.StartTime.Equal(got.StartTime))
	got.StartTime = want.StartTime

	if want.EndTime != nil {
		require.NotNil(t, got.EndTime)
		require.True(t, want.EndTime.Equal(*got.EndTime))
		got.EndTime = want.EndTime
	}

	got.Environment.ID = want.Environment.ID

	for i := range got.Environment.Software {
		got.Environment.Software[i].ID = nil
	}

	for i := range got.Input {
		if got.Input[i].Software != nil {
			got.Input[i].Software.ID = nil
		}
	}
}

func TestComputation_RoundTripPerKind(t *testing.T) {
	dataset := models.DatasetInput("7ba91bd0-9e0a-4e5b-9c5a-ff9b3f7a7c41")
	model := models.ModelInput("5d1f5b2c-48a0-4d8c-8e0b-0e4b19a3fd52")
	software := models.SoftwareInput(models.SoftwareVersion{SoftwareName: "NEST", SoftwareVersion: "3.0"})
	file := models.FileInput(testutil.CreateTestFile())

	tests := []struct {
		kind   Kind
		inputs []models.Input
	}{
		{Simulation, []models.Input{file, model, software}},
		{DataAnalysis, []models.Input{file, software, dataset}},
		{Visualisation, []models.Input{file, dataset}},
		{Optimisation, []models.Input{model, software}},
		{DataCopy, []models.Input{file, model, dataset, software}},
		{Generic, []models.Input{dataset}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind.Type), func(t *testing.T) {
			ctx := t.Context()
			store := testutil.NewStore(t)
			m := New(testutil.Vocab())

			want := testutil.CreateTestComputation(testutil.WithType(tt.kind.Type), testutil.WithInputs(tt.inputs...))

			node, err := m.ComputationToGraph(ctx, store, tt.kind, want)
			require.NoError(t, err)
			assert.Equal(t, tt.kind.GraphType, node.Type())

			loaded := saveAndLoad(t, store, node)

			got, err := m.ComputationFromGraph(ctx, loaded, store)
			require.NoError(t, err)

			want.ID = ptr(node.UUID())
			normalize(t, want, &got)
			assert.Equal(t, want, got)
		})
	}
}

func TestComputation_DataAnalysisScenario(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	record := testutil.CreateTestComputation()

	node, err := m.ComputationToGraph(ctx, store, DataAnalysis, record)
	require.NoError(t, err)

	require.Len(t, node.Inputs, 2)

	f, err := kg.Resolved[*kg.File](node.Inputs[0])
	require.NoError(t, err)
	assert.Equal(t, "InputResistance_data.json", f.Name)
	assert.Equal(t, testutil.DataLocation, f.IRI)
	assert.Equal(t, &kg.Hash{Algorithm: "SHA-1", Digest: testutil.DataSHA1}, f.Hash)
	require.NotNil(t, f.StorageSize)
	assert.InDelta(t, 34.0, f.StorageSize.Value, 0)

	unit, ok := m.Vocab().Name(f.StorageSize.Unit)
	require.True(t, ok)
	assert.Equal(t, "byte", unit)

	repo, err := kg.Resolved[*kg.FileRepository](f.FileRepository)
	require.NoError(t, err)
	assert.Equal(t, "https://object.cscs.ch/v1/AUTH_c0a333ecf7c045809321ce9d9ecdfdea/VF_paper_demo", repo.IRI)
	assert.Equal(t, "VF_paper_demo", repo.Name)

	status, ok := m.Vocab().Name(node.Status)
	require.True(t, ok)
	assert.Equal(t, "potential", status)

	short := node.UUID()[:7]
	assert.Equal(t, "Data analysis by Alain Destexhe on 2021-05-28T16:32:58.597Z ["+short+"]", node.LookupLabel)

	loaded := saveAndLoad(t, store, node)

	got, err := m.ComputationFromGraph(ctx, loaded, store)
	require.NoError(t, err)
	require.NotNil(t, got.Status)
	assert.Equal(t, models.StatusQueued, *got.Status)
	require.NotNil(t, got.StartedBy)
	assert.Equal(t, "https://orcid.org/0000-0001-7405-0455", *got.StartedBy.ORCID)
}

func TestComputation_StartedByDefaultsToCaller(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	node, err := m.ComputationToGraph(ctx, store, DataAnalysis, testutil.CreateTestComputation(testutil.WithoutStartedBy()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(node.LookupLabel, "Data analysis by Andrew Davison on "))

	loaded := saveAndLoad(t, store, node)

	got, err := m.ComputationFromGraph(ctx, loaded, store)
	require.NoError(t, err)
	assert.Equal(t, &models.Person{GivenName: "Andrew", FamilyName: "Davison"}, got.StartedBy)
}

func TestComputation_LocalFiles(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	withPath := models.File{FileName: "spikes.h5", Location: ptr("/scratch/run1/spikes.h5")}
	noLocation := models.File{FileName: "intermediate.pkl"}

	record := testutil.CreateTestComputation(testutil.WithInputs(models.FileInput(withPath), models.FileInput(noLocation)))

	node, err := m.ComputationToGraph(ctx, store, DataAnalysis, record)
	require.NoError(t, err)

	local, err := kg.Resolved[*kg.LocalFile](node.Inputs[0])
	require.NoError(t, err)
	assert.Equal(t, "/scratch/run1/spikes.h5", local.Path)

	got, err := m.ComputationFromGraph(ctx, saveAndLoad(t, store, node), store)
	require.NoError(t, err)
	require.Len(t, got.Input, 2)
	assert.Equal(t, withPath, *got.Input[0].File)
	assert.Equal(t, noLocation, *got.Input[1].File)
}

func TestComputation_ToGraphErrors(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		record models.Computation
		target error
	}{
		{
			name:   "dataset input to a simulation",
			kind:   Simulation,
			record: testutil.CreateTestComputation(testutil.WithType(models.TypeSimulation), testutil.WithInputs(models.DatasetInput("7ba91bd0-9e0a-4e5b-9c5a-ff9b3f7a7c41"))),
			target: ErrInputNotAllowed,
		},
		{
			name:   "model input to an analysis",
			kind:   DataAnalysis,
			record: testutil.CreateTestComputation(testutil.WithInputs(models.ModelInput("5d1f5b2c-48a0-4d8c-8e0b-0e4b19a3fd52"))),
			target: ErrInputNotAllowed,
		},
		{
			name: "unknown unit",
			kind: DataAnalysis,
			record: testutil.CreateTestComputation(func(c *models.Computation) {
				c.ResourceUsage = []models.ResourceUsage{{Value: 3, Units: "parsec"}}
			}),
			target: ErrNoSuchUnit,
		},
		{
			name: "unsupported repository",
			kind: DataAnalysis,
			record: testutil.CreateTestComputation(testutil.WithInputs(models.FileInput(models.File{
				FileName: "data.json",
				Location: ptr("https://example.com/data.json"),
			}))),
			target: ErrUnsupportedRepository,
		},
		{
			name: "unknown hardware",
			kind: DataAnalysis,
			record: testutil.CreateTestComputation(func(c *models.Computation) {
				c.Environment.Hardware = "abacus"
			}),
			target: ErrUnknownHardware,
		},
		{
			name: "unknown hash algorithm",
			kind: DataAnalysis,
			record: testutil.CreateTestComputation(testutil.WithInputs(models.FileInput(models.File{
				FileName: "data.json",
				Hash:     &models.Digest{Algorithm: "CRC32", Value: "cbf43926"},
			}))),
			target: ErrUnknownHashAlgorithm,
		},
		{
			name: "missing environment",
			kind: DataAnalysis,
			record: testutil.CreateTestComputation(func(c *models.Computation) {
				c.Environment.ID = ptr("9b2e4c1d-7a3f-4e6b-8c5d-2f1a0e9d8c7b")
			}),
			target: ErrNoSuchReference,
		},
		{
			name: "missing software version",
			kind: DataAnalysis,
			record: testutil.CreateTestComputation(testutil.WithInputs(models.SoftwareInput(models.SoftwareVersion{
				ID:              ptr("9b2e4c1d-7a3f-4e6b-8c5d-2f1a0e9d8c7b"),
				SoftwareName:    "Elephant",
				SoftwareVersion: "0.10.0",
			}))),
			target: ErrNoSuchReference,
		},
		{
			name:   "type does not match",
			kind:   Simulation,
			record: testutil.CreateTestComputation(),
			target: ErrKindMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(testutil.Vocab())

			_, err := m.ComputationToGraph(t.Context(), testutil.NewStore(t), tt.kind, tt.record)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestComputation_Patch(t *testing.T) {
	ctx := t.Context()
	store := testutil.NewStore(t)
	m := New(testutil.Vocab())

	node, err := m.ComputationToGraph(ctx, store, DataAnalysis, testutil.CreateTestComputation())
	require.NoError(t, err)

	loaded := saveAndLoad(t, store, node)
	label := loaded.LookupLabel

	failed := models.StatusFailed
	require.NoError(t, m.ApplyComputationPatch(ctx, store, loaded, models.ComputationPatch{
		Status: &failed,
		Tags:   &[]string{},
	}))
	assert.Equal(t, label, loaded.LookupLabel, "label only changes with start time or started_by")

	got, err := m.ComputationFromGraph(ctx, loaded, store)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, *got.Status)
	assert.Empty(t, got.Tags)
	assert.Len(t, got.Input, 2, "absent fields are left untouched")

	later := testutil.StartTime.Add(time.Hour)
	require.NoError(t, m.ApplyComputationPatch(ctx, store, loaded, models.ComputationPatch{StartTime: &later}))
	assert.Contains(t, loaded.LookupLabel, "on 2021-05-28T17:32:58.597Z")
	assert.Contains(t, loaded.LookupLabel, "Alain Destexhe")

	require.NoError(t, m.ApplyComputationPatch(ctx, store, loaded, models.ComputationPatch{
		StartedBy: &models.Person{GivenName: "Andrew", FamilyName: "Davison"},
	}))
	assert.Contains(t, loaded.LookupLabel, "by Andrew Davison on")

	err = m.ApplyComputationPatch(ctx, store, loaded, models.ComputationPatch{
		Input: &[]models.Input{models.ModelInput("5d1f5b2c-48a0-4d8c-8e0b-0e4b19a3fd52")},
	})
	assert.ErrorIs(t, err, ErrInputNotAllowed)
}

func TestLabel(t *testing.T) {
	start := time.Date(2021, 5, 28, 16, 32, 58, 0, time.UTC)

	assert.Equal(t,
		"Simulation by Andrew Davison on 2021-05-28T16:32:58Z [0d2c3e4]",
		Label(Simulation, "Andrew Davison", start, kg.URIFromUUID("0d2c3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f")),
	)
}
