package mapping

import (
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
)

// Kind describes one family of computation records.
type Kind struct {
	Type      models.ComputationType
	GraphType string
	// Label names the kind in generated record labels.
	Label string
	// Inputs lists the input variants the kind accepts.
	Inputs []models.InputKind
}

var (
	Simulation = Kind{
		Type:      models.TypeSimulation,
		GraphType: kg.TypeSimulation,
		Label:     "Simulation",
		Inputs:    []models.InputKind{models.InputFile, models.InputModel, models.InputSoftware},
	}
	DataAnalysis = Kind{
		Type:      models.TypeDataAnalysis,
		GraphType: kg.TypeDataAnalysis,
		Label:     "Data analysis",
		Inputs:    []models.InputKind{models.InputFile, models.InputSoftware, models.InputDataset},
	}
	Visualisation = Kind{
		Type:      models.TypeVisualisation,
		GraphType: kg.TypeVisualization,
		Label:     "Visualisation",
		Inputs:    []models.InputKind{models.InputFile, models.InputSoftware, models.InputDataset},
	}
	Optimisation = Kind{
		Type:      models.TypeOptimisation,
		GraphType: kg.TypeOptimization,
		Label:     "Optimisation",
		Inputs:    []models.InputKind{models.InputFile, models.InputModel, models.InputSoftware},
	}
	DataCopy = Kind{
		Type:      models.TypeDataCopy,
		GraphType: kg.TypeDataCopy,
		Label:     "Data transfer",
		Inputs:    []models.InputKind{models.InputFile, models.InputModel, models.InputDataset, models.InputSoftware},
	}
	Generic = Kind{
		Type:      models.TypeGeneric,
		GraphType: kg.TypeGenericComputation,
		Label:     "Computation",
		Inputs:    []models.InputKind{models.InputFile, models.InputModel, models.InputDataset, models.InputSoftware},
	}
)

// Kinds lists every computation kind.
var Kinds = []Kind{Simulation, DataAnalysis, Visualisation, Optimisation, DataCopy, Generic}

// stageKinds are the kinds a workflow stage may have.
var stageKinds = map[models.ComputationType]Kind{
	models.TypeDataAnalysis:  DataAnalysis,
	models.TypeVisualisation: Visualisation,
	models.TypeSimulation:    Simulation,
	models.TypeOptimisation:  Optimisation,
}

// KindForGraphType returns the kind stored under a graph type IRI.
func KindForGraphType(typ string) (Kind, bool) {
	for _, k := range Kinds {
		if k.GraphType == typ {
			return k, true
		}
	}

	return Kind{}, false
}

// Accepts reports whether the kind allows inputs of variant ik.
func (k Kind) Accepts(ik models.InputKind) bool {
	for _, allowed := range k.Inputs {
		if allowed == ik {
			return true
		}
	}

	return false
}
