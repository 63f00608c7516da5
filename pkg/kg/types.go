package kg

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	coreNS       = "https://openminds.ebrains.eu/core/"
	computeNS    = "https://openminds.ebrains.eu/computation/"
	controlledNS = "https://openminds.ebrains.eu/controlledTerms/"
)

// Type IRIs of the nodes modelled by this package.
const (
	TypeFile                  = coreNS + "File"
	TypeFileRepository        = coreNS + "FileRepository"
	TypeContentType           = coreNS + "ContentType"
	TypeOrganization          = coreNS + "Organization"
	TypePerson                = coreNS + "Person"
	TypeORCID                 = coreNS + "ORCID"
	TypeResearcherID          = coreNS + "ResearcherID"
	TypeSoftwareVersion       = coreNS + "SoftwareVersion"
	TypeModelVersion          = coreNS + "ModelVersion"
	TypeDatasetVersion        = coreNS + "DatasetVersion"
	TypeUnitOfMeasurement     = controlledNS + "UnitOfMeasurement"
	TypeFileRepositoryType    = controlledNS + "FileRepositoryType"
	TypeActionStatusType      = controlledNS + "ActionStatusType"
	TypeLocalFile             = computeNS + "LocalFile"
	TypeEnvironment           = computeNS + "Environment"
	TypeHardwareSystem        = computeNS + "HardwareSystem"
	TypeLaunchConfiguration   = computeNS + "LaunchConfiguration"
	TypeDataAnalysis          = computeNS + "DataAnalysis"
	TypeSimulation            = computeNS + "Simulation"
	TypeVisualization         = computeNS + "Visualization"
	TypeOptimization          = computeNS + "Optimization"
	TypeDataCopy              = computeNS + "DataCopy"
	TypeGenericComputation    = computeNS + "GenericComputation"
	TypeWorkflowExecution     = computeNS + "WorkflowExecution"
	TypeWorkflowRecipe        = computeNS + "WorkflowRecipe"
	TypeWorkflowRecipeVersion = computeNS + "WorkflowRecipeVersion"
	TypeStringParameter       = coreNS + "StringParameter"
	TypeNumericalParameter    = coreNS + "NumericalParameter"
)

// Hash is the digest of a file's content.
type Hash struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

// QuantitativeValue is a number with an optional unit of measurement.
type QuantitativeValue struct {
	Value float64 `json:"value"`
	Unit  *Link   `json:"unit,omitempty"`
}

type File struct {
	Meta
	Name           string             `json:"name"`
	IRI            string             `json:"IRI"`
	Content        string             `json:"content,omitempty"`
	Format         *Link              `json:"format,omitempty"`
	Hash           *Hash              `json:"hash,omitempty"`
	StorageSize    *QuantitativeValue `json:"storageSize,omitempty"`
	FileRepository *Link              `json:"fileRepository,omitempty"`
}

func (*File) Type() string { return TypeFile }

func (f *File) Links() []*Link {
	links := []*Link{f.Format, f.FileRepository}
	if f.StorageSize != nil {
		links = append(links, f.StorageSize.Unit)
	}

	return links
}

func (f *File) missing() []string {
	return required(map[string]bool{"name": f.Name == "", "IRI": f.IRI == ""})
}

// LocalFile is a file that is not hosted in a known repository. Path holds
// the location exactly as it was reported.
type LocalFile struct {
	Meta
	Name        string             `json:"name"`
	Path        string             `json:"path,omitempty"`
	Content     string             `json:"content,omitempty"`
	Format      *Link              `json:"format,omitempty"`
	Hash        *Hash              `json:"hash,omitempty"`
	StorageSize *QuantitativeValue `json:"storageSize,omitempty"`
}

func (*LocalFile) Type() string { return TypeLocalFile }

func (f *LocalFile) Links() []*Link {
	links := []*Link{f.Format}
	if f.StorageSize != nil {
		links = append(links, f.StorageSize.Unit)
	}

	return links
}

func (f *LocalFile) missing() []string {
	return required(map[string]bool{"name": f.Name == ""})
}

type FileRepository struct {
	Meta
	Name           string `json:"name"`
	IRI            string `json:"IRI"`
	HostedBy       *Link  `json:"hostedBy,omitempty"`
	RepositoryType *Link  `json:"type,omitempty"`
}

func (*FileRepository) Type() string { return TypeFileRepository }

func (r *FileRepository) Links() []*Link { return []*Link{r.HostedBy, r.RepositoryType} }

func (r *FileRepository) missing() []string {
	return required(map[string]bool{"name": r.Name == "", "IRI": r.IRI == ""})
}

// Term is a controlled vocabulary entry identified by its name.
type Term struct {
	Meta
	Name        string `json:"name"`
	Definition  string `json:"definition,omitempty"`
	Description string `json:"description,omitempty"`

	typ string
}

func (t *Term) Type() string { return t.typ }

// NewTerm builds a vocabulary entry of the given type.
func NewTerm(typ, name string, opts ...Option) *Term {
	t := &Term{Name: name, typ: typ}
	t.apply(opts)

	return t
}

type Organization struct {
	Meta
	FullName  string `json:"fullName"`
	ShortName string `json:"shortName,omitempty"`
}

func (*Organization) Type() string { return TypeOrganization }

type Person struct {
	Meta
	GivenName          string  `json:"givenName"`
	FamilyName         string  `json:"familyName,omitempty"`
	DigitalIdentifiers []*Link `json:"digitalIdentifiers,omitempty"`
}

func (*Person) Type() string { return TypePerson }

func (p *Person) Links() []*Link { return p.DigitalIdentifiers }

func (p *Person) missing() []string {
	return required(map[string]bool{"givenName": p.GivenName == ""})
}

// FullName joins the given and family names.
func (p *Person) FullName() string {
	return strings.TrimSpace(p.GivenName + " " + p.FamilyName)
}

type ORCID struct {
	Meta
	Identifier string `json:"identifier"`
}

func (*ORCID) Type() string { return TypeORCID }

type ResearcherID struct {
	Meta
	Identifier string `json:"identifier"`
}

func (*ResearcherID) Type() string { return TypeResearcherID }

type SoftwareVersion struct {
	Meta
	Name              string `json:"name"`
	Alias             string `json:"alias,omitempty"`
	VersionIdentifier string `json:"versionIdentifier"`
}

// NewSoftwareVersion builds a software version node.
func NewSoftwareVersion(name, version string, opts ...Option) *SoftwareVersion {
	sv := &SoftwareVersion{Name: name, VersionIdentifier: version}
	sv.apply(opts)

	return sv
}

func (*SoftwareVersion) Type() string { return TypeSoftwareVersion }

func (sv *SoftwareVersion) missing() []string {
	return required(map[string]bool{
		"name":              sv.Name == "",
		"alias":             sv.Alias == "",
		"versionIdentifier": sv.VersionIdentifier == "",
	})
}

type ModelVersion struct {
	Meta
	Name              string `json:"name,omitempty"`
	VersionIdentifier string `json:"versionIdentifier,omitempty"`
}

func (*ModelVersion) Type() string { return TypeModelVersion }

type DatasetVersion struct {
	Meta
	Name              string `json:"name,omitempty"`
	VersionIdentifier string `json:"versionIdentifier,omitempty"`
}

func (*DatasetVersion) Type() string { return TypeDatasetVersion }

type StringParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type NumericalParameter struct {
	Name   string              `json:"name"`
	Values []QuantitativeValue `json:"values"`
}

// ParameterSet is an ordered list of parameters with a context description.
type ParameterSet struct {
	LookupLabel string      `json:"lookupLabel,omitempty"`
	Context     string      `json:"context,omitempty"`
	Parameters  []Parameter `json:"parameters"`

	relax Meta
}

// NewParameterSet builds a parameter set. Relax("context") allows an empty
// context.
func NewParameterSet(context string, params []Parameter, opts ...Option) ParameterSet {
	ps := ParameterSet{Context: context, Parameters: params}
	ps.relax.apply(opts)

	return ps
}

func (ps *ParameterSet) links() []*Link {
	var links []*Link

	for _, p := range ps.Parameters {
		if p.Numerical != nil {
			for _, v := range p.Numerical.Values {
				links = append(links, v.Unit)
			}
		}
	}

	return links
}

func (ps *ParameterSet) missing(prefix string) []string {
	var out []string

	if ps.Context == "" && !ps.relax.relaxed["context"] {
		out = append(out, prefix+"context")
	}

	return out
}

type Environment struct {
	Meta
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Hardware      *Link          `json:"hardware"`
	Configuration []ParameterSet `json:"configuration,omitempty"`
	Software      []*Link        `json:"software,omitempty"`
}

func (*Environment) Type() string { return TypeEnvironment }

func (e *Environment) Links() []*Link {
	links := append([]*Link{e.Hardware}, e.Software...)
	for i := range e.Configuration {
		links = append(links, e.Configuration[i].links()...)
	}

	return links
}

func (e *Environment) missing() []string {
	out := required(map[string]bool{"name": e.Name == "", "hardware": e.Hardware == nil})
	for i := range e.Configuration {
		out = append(out, e.Configuration[i].missing(fmt.Sprintf("configuration[%d].", i))...)
	}

	return out
}

type LaunchConfiguration struct {
	Meta
	Name                 string        `json:"name,omitempty"`
	LookupLabel          string        `json:"lookupLabel,omitempty"`
	Description          string        `json:"description,omitempty"`
	Executable           string        `json:"executable"`
	Arguments            []string      `json:"arguments,omitempty"`
	EnvironmentVariables *ParameterSet `json:"environmentVariables,omitempty"`
}

func (*LaunchConfiguration) Type() string { return TypeLaunchConfiguration }

func (lc *LaunchConfiguration) Links() []*Link {
	if lc.EnvironmentVariables == nil {
		return nil
	}

	return lc.EnvironmentVariables.links()
}

func (lc *LaunchConfiguration) missing() []string {
	out := required(map[string]bool{"executable": lc.Executable == ""})
	if lc.EnvironmentVariables != nil {
		out = append(out, lc.EnvironmentVariables.missing("environmentVariables.")...)
	}

	return out
}

// Computation is a single computational stage. Kind holds one of the
// computation type IRIs.
type Computation struct {
	Meta
	Kind                string              `json:"-"`
	LookupLabel         string              `json:"lookupLabel"`
	Description         string              `json:"description,omitempty"`
	Inputs              []*Link             `json:"inputs"`
	Outputs             []*Link             `json:"outputs,omitempty"`
	Environment         *Link               `json:"environment,omitempty"`
	LaunchConfiguration *Link               `json:"launchConfiguration,omitempty"`
	StartedAtTime       time.Time           `json:"startedAtTime"`
	EndedAtTime         *time.Time          `json:"endedAtTime,omitempty"`
	StartedBy           *Link               `json:"startedBy,omitempty"`
	Status              *Link               `json:"status,omitempty"`
	ResourceUsages      []QuantitativeValue `json:"resourceUsages,omitempty"`
	Tags                []string            `json:"tags,omitempty"`
}

// NewComputation builds an empty computation of the given kind.
func NewComputation(kind string, opts ...Option) *Computation {
	c := &Computation{Kind: kind}
	c.apply(opts)

	return c
}

func (c *Computation) Type() string { return c.Kind }

func (c *Computation) Links() []*Link {
	links := make([]*Link, 0, len(c.Inputs)+len(c.Outputs)+4+len(c.ResourceUsages))
	links = append(links, c.Inputs...)
	links = append(links, c.Outputs...)
	links = append(links, c.Environment, c.LaunchConfiguration, c.StartedBy, c.Status)

	for _, ru := range c.ResourceUsages {
		links = append(links, ru.Unit)
	}

	return links
}

func (c *Computation) missing() []string {
	return required(map[string]bool{
		"lookupLabel":   c.LookupLabel == "",
		"startedAtTime": c.StartedAtTime.IsZero(),
	})
}

// IsComputationType reports whether typ is one of the computation kinds.
func IsComputationType(typ string) bool {
	switch typ {
	case TypeDataAnalysis, TypeSimulation, TypeVisualization, TypeOptimization, TypeDataCopy, TypeGenericComputation:
		return true
	}

	return false
}

type WorkflowExecution struct {
	Meta
	LookupLabel string   `json:"lookupLabel,omitempty"`
	Stages      []*Link  `json:"stages"`
	StartedBy   *Link    `json:"startedBy,omitempty"`
	Recipe      *Link    `json:"recipe,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (*WorkflowExecution) Type() string { return TypeWorkflowExecution }

func (w *WorkflowExecution) Links() []*Link {
	return append(append([]*Link{}, w.Stages...), w.StartedBy, w.Recipe)
}

type WorkflowRecipe struct {
	Meta
	Name        string  `json:"name"`
	Alias       string  `json:"alias,omitempty"`
	Description string  `json:"description,omitempty"`
	Custodians  []*Link `json:"custodians,omitempty"`
	Developers  []*Link `json:"developers,omitempty"`
	Homepage    string  `json:"homepage,omitempty"`
	HasVersions []*Link `json:"hasVersions"`
}

func (*WorkflowRecipe) Type() string { return TypeWorkflowRecipe }

func (r *WorkflowRecipe) Links() []*Link {
	links := append(append([]*Link{}, r.Custodians...), r.Developers...)
	return append(links, r.HasVersions...)
}

func (r *WorkflowRecipe) missing() []string {
	return required(map[string]bool{"name": r.Name == ""})
}

type WorkflowRecipeVersion struct {
	Meta
	Name              string   `json:"name,omitempty"`
	Alias             string   `json:"alias,omitempty"`
	Description       string   `json:"description,omitempty"`
	Custodians        []*Link  `json:"custodians,omitempty"`
	Developers        []*Link  `json:"developers,omitempty"`
	Format            *Link    `json:"format,omitempty"`
	FullDocumentation string   `json:"fullDocumentation,omitempty"`
	Homepage          string   `json:"homepage,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	Repository        *Link    `json:"repository,omitempty"`
	Location          string   `json:"location,omitempty"`
	VersionIdentifier string   `json:"versionIdentifier"`
	VersionInnovation string   `json:"versionInnovation,omitempty"`
	IsNewVersionOf    *Link    `json:"isNewVersionOf,omitempty"`
}

func (*WorkflowRecipeVersion) Type() string { return TypeWorkflowRecipeVersion }

func (v *WorkflowRecipeVersion) Links() []*Link {
	links := append(append([]*Link{}, v.Custodians...), v.Developers...)
	return append(links, v.Format, v.Repository, v.IsNewVersionOf)
}

func (v *WorkflowRecipeVersion) missing() []string {
	return required(map[string]bool{"versionIdentifier": v.VersionIdentifier == ""})
}

// required returns the names flagged as empty, sorted for stable messages.
func required(flags map[string]bool) []string {
	var out []string

	for name, empty := range flags {
		if empty {
			out = append(out, name)
		}
	}

	slices.Sort(out)

	return out
}
