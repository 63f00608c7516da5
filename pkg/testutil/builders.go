package testutil

import (
	"time"

	"github.com/ebrains-prov/provenance-api/pkg/models"
)

const (
	DataLocation = "https://object.cscs.ch/v1/AUTH_c0a333ecf7c045809321ce9d9ecdfdea/VF_paper_demo/obs_data/InputResistance_data.json"
	DataSHA1     = "716c29320b1e329196ce15d904f7d4e3c7c46685"
)

// StartTime is the start time of the sample records.
var StartTime = time.Date(2021, 5, 28, 16, 32, 58, 597000000, time.UTC)

func ptr[T any](v T) *T { return &v }

// CreateTestFile returns the data file used as input and output of the
// sample analysis.
func CreateTestFile() models.File {
	return models.File{
		Description: ptr("Demonstration data for validation framework"),
		Format:      ptr("application/json"),
		Hash:        &models.Digest{Algorithm: "SHA-1", Value: DataSHA1},
		Location:    ptr(DataLocation),
		FileName:    "InputResistance_data.json",
		Size:        ptr(int64(34)),
	}
}

// CreateTestComputation creates a data analysis record with values that can
// be overridden.
func CreateTestComputation(overrides ...func(*models.Computation)) models.Computation {
	status := models.StatusQueued
	end := StartTime

	c := models.Computation{
		Type:        models.TypeDataAnalysis,
		Description: ptr("Analysis of membrane properties"),
		Input: []models.Input{
			models.FileInput(CreateTestFile()),
			models.SoftwareInput(models.SoftwareVersion{SoftwareName: "Elephant", SoftwareVersion: "0.10.0"}),
		},
		Output: []models.File{CreateTestFile()},
		Environment: models.ComputationalEnvironment{
			Name:     "SpiNNaker default 2021-10-13",
			Hardware: "spinnaker",
			Configuration: []models.ParameterSet{{
				Items: []models.Parameter{
					{String: &models.StringParameter{Name: "parameter1", Value: "value1"}},
					{String: &models.StringParameter{Name: "parameter2", Value: "value2"}},
				},
				Description: ptr("hardware configuration for SpiNNaker 1M core machine"),
			}},
			Software: []models.SoftwareVersion{
				{SoftwareName: "numpy", SoftwareVersion: "1.19.3"},
				{SoftwareName: "neo", SoftwareVersion: "0.9.0"},
			},
			Description: ptr("Default environment on SpiNNaker 1M core machine"),
		},
		LaunchConfig: models.LaunchConfiguration{
			Executable: "/usr/bin/python",
			Arguments:  []string{"-Werror"},
			EnvironmentVariables: &models.ParameterSet{Items: []models.Parameter{
				{String: &models.StringParameter{Name: "COLLAB_ID", Value: "myspace"}},
			}},
		},
		StartTime: StartTime,
		EndTime:   &end,
		StartedBy: &models.Person{
			GivenName:  "Alain",
			FamilyName: "Destexhe",
			ORCID:      ptr("https://orcid.org/0000-0001-7405-0455"),
		},
		Status:        &status,
		ResourceUsage: []models.ResourceUsage{{Value: 1017.3, Units: "core-hour"}},
		Tags:          []string{"string"},
	}

	for _, override := range overrides {
		override(&c)
	}

	return c
}

// WithType sets the computation type.
func WithType(typ models.ComputationType) func(*models.Computation) {
	return func(c *models.Computation) {
		c.Type = typ
	}
}

// WithInputs replaces the inputs.
func WithInputs(inputs ...models.Input) func(*models.Computation) {
	return func(c *models.Computation) {
		c.Input = inputs
	}
}

// WithStatus sets the status.
func WithStatus(status models.Status) func(*models.Computation) {
	return func(c *models.Computation) {
		c.Status = &status
	}
}

// WithTags replaces the tags.
func WithTags(tags ...string) func(*models.Computation) {
	return func(c *models.Computation) {
		c.Tags = tags
	}
}

// WithoutStartedBy clears started_by.
func WithoutStartedBy() func(*models.Computation) {
	return func(c *models.Computation) {
		c.StartedBy = nil
	}
}

// WithID sets the record identifier.
func WithID(id string) func(*models.Computation) {
	return func(c *models.Computation) {
		c.ID = &id
	}
}

// CreateTestWorkflow creates a workflow of an analysis followed by a
// visualisation.
func CreateTestWorkflow() models.WorkflowExecution {
	analysis := CreateTestComputation(WithoutStartedBy())
	visualisation := CreateTestComputation(WithType(models.TypeVisualisation), WithoutStartedBy())

	return models.WorkflowExecution{
		Stages:    []models.Computation{analysis, visualisation},
		StartedBy: &models.Person{GivenName: "Andrew", FamilyName: "Davison"},
		Tags:      []string{"workflow"},
	}
}

// CreateTestRecipe creates a CWL recipe version.
func CreateTestRecipe(version string) models.WorkflowRecipe {
	typ := models.RecipeCWL

	return models.WorkflowRecipe{
		Name:              ptr("Membrane analysis"),
		Alias:             ptr("membrane-analysis"),
		Description:       ptr("Computes input resistance from recordings"),
		Developers:        []models.Person{{GivenName: "Andrew", FamilyName: "Davison"}},
		Custodians:        []models.Person{{GivenName: "Andrew", FamilyName: "Davison"}},
		Type:              &typ,
		Homepage:          ptr("https://github.com/ebrains/membrane-analysis"),
		Keywords:          []string{"electrophysiology"},
		Location:          ptr("https://github.com/ebrains/membrane-analysis/blob/main/workflow.cwl"),
		VersionIdentifier: version,
	}
}
