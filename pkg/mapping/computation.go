package mapping

import (
	"context"
	"fmt"
	"time"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/google/uuid"
)

// Label builds the lookup label of a computation record.
func Label(kind Kind, startedBy string, start time.Time, id string) string {
	short := kg.UUIDFromURI(id)
	if len(short) > 7 {
		short = short[:7]
	}

	return fmt.Sprintf("%s by %s on %s [%s]", kind.Label, startedBy, start.Format(time.RFC3339Nano), short)
}

// ComputationToGraph builds the node tree of a computation record. A record
// without an identifier is given a new one.
func (m *Mapper) ComputationToGraph(ctx context.Context, store kg.Store, kind Kind, c models.Computation) (*kg.Computation, error) {
	return m.computationToGraph(ctx, store, kind, c, nil)
}

// computationToGraph is ComputationToGraph with a default for started_by.
// When fallback is nil and the record names nobody, the caller's own Person
// record is used.
func (m *Mapper) computationToGraph(ctx context.Context, store kg.Store, kind Kind, c models.Computation, fallback *kg.Link) (*kg.Computation, error) {
	if c.Type != "" && c.Type != kind.Type {
		return nil, fieldError("type", fmt.Errorf("%w: %q is not a %s", ErrKindMismatch, c.Type, kind.Type))
	}

	id := uuid.NewString()
	if c.ID != nil {
		id = *c.ID
	}

	node := kg.NewComputation(kind.GraphType, kg.WithID(id))
	node.StartedAtTime = c.StartTime
	node.EndedAtTime = c.EndTime
	node.Tags = c.Tags

	if c.Description != nil {
		node.Description = *c.Description
	}

	var err error

	if node.Inputs, err = m.inputsToGraph(ctx, store, kind, c.Input); err != nil {
		return nil, err
	}

	if node.Outputs, err = m.outputsToGraph(ctx, store, c.Output); err != nil {
		return nil, err
	}

	if node.Environment, err = m.EnvironmentToGraph(ctx, store, c.Environment); err != nil {
		return nil, err
	}

	if node.LaunchConfiguration, err = m.LaunchConfigurationToGraph(c.LaunchConfig); err != nil {
		return nil, err
	}

	if node.Status, err = m.StatusToGraph(c.Status); err != nil {
		return nil, err
	}

	if node.ResourceUsages, err = m.resourceUsagesToGraph(c.ResourceUsage); err != nil {
		return nil, err
	}

	switch {
	case c.StartedBy != nil:
		node.StartedBy, err = m.PersonToGraph(ctx, store, *c.StartedBy)
		err = fieldError("started_by", err)
	case fallback != nil:
		node.StartedBy = fallback
	default:
		node.StartedBy, err = m.me(ctx, store)
	}

	if err != nil {
		return nil, err
	}

	if err := m.relabel(ctx, store, kind, node); err != nil {
		return nil, err
	}

	return node, nil
}

func (m *Mapper) me(ctx context.Context, store kg.Store) (*kg.Link, error) {
	person, err := kg.Me(ctx, store)
	if err != nil {
		return nil, err
	}

	return kg.To(person), nil
}

func (m *Mapper) relabel(ctx context.Context, store kg.Store, kind Kind, node *kg.Computation) error {
	name := ""

	if node.StartedBy != nil {
		person, err := kg.ResolveAs[*kg.Person](ctx, store, node.StartedBy, readScope)
		if err != nil {
			return err
		}

		name = person.FullName()
	}

	node.LookupLabel = Label(kind, name, node.StartedAtTime, node.ID)

	return nil
}

// inputToGraph maps one input, rejecting variants the kind does not accept.
func (m *Mapper) inputToGraph(ctx context.Context, store kg.Store, kind Kind, in models.Input) (*kg.Link, error) {
	ik := in.Kind()
	if !kind.Accepts(ik) {
		return nil, fieldError("input", fmt.Errorf("%w: %s inputs are not accepted by %s records", ErrInputNotAllowed, ik, kind.Type))
	}

	switch ik {
	case models.InputFile:
		node, err := m.FileToGraph(ctx, store, *in.File)
		if err != nil {
			return nil, fieldError("input", err)
		}

		return kg.To(node), nil
	case models.InputSoftware:
		link, err := m.SoftwareVersionToGraph(ctx, store, *in.Software)
		if err != nil {
			return nil, fieldError("input", err)
		}

		return link, nil
	case models.InputModel:
		return kg.Ref(in.Model.ModelVersionID, kg.TypeModelVersion), nil
	case models.InputDataset:
		return kg.Ref(in.Dataset.DatasetVersionID, kg.TypeDatasetVersion), nil
	default:
		return nil, fieldError("input", fmt.Errorf("%w: unhandled input variant %s", ErrInputNotAllowed, ik))
	}
}

func (m *Mapper) inputsToGraph(ctx context.Context, store kg.Store, kind Kind, inputs []models.Input) ([]*kg.Link, error) {
	links := make([]*kg.Link, 0, len(inputs))

	for _, in := range inputs {
		link, err := m.inputToGraph(ctx, store, kind, in)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, nil
}

func (m *Mapper) outputsToGraph(ctx context.Context, store kg.Store, outputs []models.File) ([]*kg.Link, error) {
	links := make([]*kg.Link, 0, len(outputs))

	for _, f := range outputs {
		node, err := m.FileToGraph(ctx, store, f)
		if err != nil {
			return nil, fieldError("output", err)
		}

		links = append(links, kg.To(node))
	}

	return links, nil
}

func (m *Mapper) resourceUsagesToGraph(usages []models.ResourceUsage) ([]kg.QuantitativeValue, error) {
	out := make([]kg.QuantitativeValue, 0, len(usages))

	for _, ru := range usages {
		qv, err := m.ResourceUsageToGraph(ru)
		if err != nil {
			return nil, err
		}

		out = append(out, qv)
	}

	return out, nil
}

// ComputationFromGraph reads a computation node back into an API record.
func (m *Mapper) ComputationFromGraph(ctx context.Context, node *kg.Computation, store kg.Store) (models.Computation, error) {
	kind, ok := KindForGraphType(node.Kind)
	if !ok {
		return models.Computation{}, fmt.Errorf("%w: %s is not a computation", ErrUnexpectedInput, kg.ShortType(node.Kind))
	}

	id := node.UUID()
	out := models.Computation{
		ID:            &id,
		Type:          kind.Type,
		Input:         make([]models.Input, 0, len(node.Inputs)),
		Output:        make([]models.File, 0, len(node.Outputs)),
		StartTime:     node.StartedAtTime,
		EndTime:       node.EndedAtTime,
		ResourceUsage: make([]models.ResourceUsage, 0, len(node.ResourceUsages)),
		Tags:          node.Tags,
	}

	if out.Tags == nil {
		out.Tags = []string{}
	}

	if node.Description != "" {
		out.Description = &node.Description
	}

	for _, link := range node.Inputs {
		in, err := m.inputFromGraph(ctx, link, store)
		if err != nil {
			return out, err
		}

		out.Input = append(out.Input, in)
	}

	for _, link := range node.Outputs {
		f, err := m.FileFromGraph(ctx, link, store)
		if err != nil {
			return out, err
		}

		out.Output = append(out.Output, f)
	}

	var err error

	if node.Environment != nil {
		if out.Environment, err = m.EnvironmentFromGraph(ctx, node.Environment, store); err != nil {
			return out, err
		}
	}

	if node.LaunchConfiguration != nil {
		if out.LaunchConfig, err = m.LaunchConfigurationFromGraph(ctx, node.LaunchConfiguration, store); err != nil {
			return out, err
		}
	}

	if node.StartedBy != nil {
		person, err := m.PersonFromGraph(ctx, node.StartedBy, store)
		if err != nil {
			return out, err
		}

		out.StartedBy = &person
	}

	if out.Status, err = m.StatusFromGraph(node.Status); err != nil {
		return out, err
	}

	for _, qv := range node.ResourceUsages {
		ru, err := m.ResourceUsageFromGraph(qv)
		if err != nil {
			return out, err
		}

		out.ResourceUsage = append(out.ResourceUsage, ru)
	}

	return out, nil
}

// inputFromGraph reads one input. Model and dataset versions belong to other
// services and are returned as references without being loaded.
func (m *Mapper) inputFromGraph(ctx context.Context, link *kg.Link, store kg.Store) (models.Input, error) {
	if link.Node() == nil {
		switch link.Type {
		case kg.TypeModelVersion:
			return models.ModelInput(kg.UUIDFromURI(link.ID)), nil
		case kg.TypeDatasetVersion:
			return models.DatasetInput(kg.UUIDFromURI(link.ID)), nil
		}
	}

	node, err := store.Resolve(ctx, link, readScope)
	if err != nil {
		return models.Input{}, err
	}

	switch n := node.(type) {
	case *kg.File, *kg.LocalFile:
		f, err := m.fileFromNode(n)
		if err != nil {
			return models.Input{}, err
		}

		return models.FileInput(f), nil
	case *kg.SoftwareVersion:
		return models.SoftwareInput(softwareVersionFromNode(n)), nil
	case *kg.ModelVersion:
		return models.ModelInput(n.UUID()), nil
	case *kg.DatasetVersion:
		return models.DatasetInput(n.UUID()), nil
	default:
		return models.Input{}, fmt.Errorf("%w: input of type %s", ErrUnexpectedInput, kg.ShortType(node.Type()))
	}
}

// ApplyComputationPatch changes the fields present in patch. The label is
// recomputed when the start time or the person who started the computation
// changes.
func (m *Mapper) ApplyComputationPatch(ctx context.Context, store kg.Store, node *kg.Computation, patch models.ComputationPatch) error {
	kind, ok := KindForGraphType(node.Kind)
	if !ok {
		return fmt.Errorf("%w: %s is not a computation", ErrUnexpectedInput, kg.ShortType(node.Kind))
	}

	var err error

	if patch.Description != nil {
		node.Description = *patch.Description
	}

	if patch.Input != nil {
		if node.Inputs, err = m.inputsToGraph(ctx, store, kind, *patch.Input); err != nil {
			return err
		}
	}

	if patch.Output != nil {
		if node.Outputs, err = m.outputsToGraph(ctx, store, *patch.Output); err != nil {
			return err
		}
	}

	if patch.Environment != nil {
		if node.Environment, err = m.EnvironmentToGraph(ctx, store, *patch.Environment); err != nil {
			return err
		}
	}

	if patch.LaunchConfig != nil {
		if node.LaunchConfiguration, err = m.LaunchConfigurationToGraph(*patch.LaunchConfig); err != nil {
			return err
		}
	}

	if patch.EndTime != nil {
		node.EndedAtTime = patch.EndTime
	}

	if patch.Status != nil {
		if node.Status, err = m.StatusToGraph(patch.Status); err != nil {
			return err
		}
	}

	if patch.ResourceUsage != nil {
		if node.ResourceUsages, err = m.resourceUsagesToGraph(*patch.ResourceUsage); err != nil {
			return err
		}
	}

	if patch.Tags != nil {
		node.Tags = *patch.Tags
	}

	if patch.StartTime == nil && patch.StartedBy == nil {
		return nil
	}

	if patch.StartTime != nil {
		node.StartedAtTime = *patch.StartTime
	}

	if patch.StartedBy != nil {
		if node.StartedBy, err = m.PersonToGraph(ctx, store, *patch.StartedBy); err != nil {
			return fieldError("started_by", err)
		}
	}

	return m.relabel(ctx, store, kind, node)
}
