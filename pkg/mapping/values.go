package mapping

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/vocab"
)

// Mapper translates API records to graph nodes and back. Vocabulary terms
// are looked up in the registry it was built with.
type Mapper struct {
	vocab *vocab.Registry
}

func New(registry *vocab.Registry) *Mapper {
	return &Mapper{vocab: registry}
}

// Vocab returns the registry the mapper translates names against.
func (m *Mapper) Vocab() *vocab.Registry {
	return m.vocab
}

func DigestToGraph(d *models.Digest) (*kg.Hash, error) {
	if d == nil {
		return nil, nil
	}

	if !slices.Contains(models.HashAlgorithms, d.Algorithm) {
		return nil, fieldError("hash.algorithm", fmt.Errorf("%w: %q", ErrUnknownHashAlgorithm, d.Algorithm))
	}

	return &kg.Hash{Algorithm: d.Algorithm, Digest: d.Value}, nil
}

func DigestFromGraph(h *kg.Hash) *models.Digest {
	if h == nil {
		return nil
	}

	return &models.Digest{Algorithm: h.Algorithm, Value: h.Digest}
}

// QuantityToGraph builds a quantitative value. An empty unit name leaves the
// unit unset.
func (m *Mapper) QuantityToGraph(value float64, unit string) (kg.QuantitativeValue, error) {
	qv := kg.QuantitativeValue{Value: value}
	if unit == "" {
		return qv, nil
	}

	link, ok := m.vocab.Unit(unit)
	if !ok {
		return qv, fmt.Errorf("%w: %q", ErrNoSuchUnit, unit)
	}

	qv.Unit = link

	return qv, nil
}

// QuantityFromGraph returns the value and unit name of qv. A unit missing
// from the vocabulary is reported as ErrUnexpectedInput.
func (m *Mapper) QuantityFromGraph(qv kg.QuantitativeValue) (float64, string, error) {
	if qv.Unit == nil {
		return qv.Value, "", nil
	}

	name, ok := m.vocab.Name(qv.Unit)
	if !ok {
		return qv.Value, "", fmt.Errorf("%w: unit %s", ErrUnexpectedInput, qv.Unit.Target())
	}

	return qv.Value, name, nil
}

func (m *Mapper) ResourceUsageToGraph(ru models.ResourceUsage) (kg.QuantitativeValue, error) {
	qv, err := m.QuantityToGraph(ru.Value, ru.Units)
	return qv, fieldError("resource_usage", err)
}

func (m *Mapper) ResourceUsageFromGraph(qv kg.QuantitativeValue) (models.ResourceUsage, error) {
	value, units, err := m.QuantityFromGraph(qv)
	if err != nil {
		return models.ResourceUsage{}, fieldError("resource_usage", err)
	}

	return models.ResourceUsage{Value: value, Units: units}, nil
}

func (m *Mapper) StatusToGraph(status *models.Status) (*kg.Link, error) {
	if status == nil {
		return nil, nil
	}

	name, ok := vocab.StatusToGraph(string(*status))
	if !ok {
		return nil, fieldError("status", fmt.Errorf("%w: %q", ErrUnknownStatus, *status))
	}

	link, ok := m.vocab.ActionStatus(name)
	if !ok {
		return nil, fieldError("status", fmt.Errorf("%w: no action status named %q", ErrUnknownStatus, name))
	}

	return link, nil
}

func (m *Mapper) StatusFromGraph(link *kg.Link) (*models.Status, error) {
	if link == nil {
		return nil, nil
	}

	name, ok := m.vocab.Name(link)
	if !ok {
		return nil, fmt.Errorf("%w: action status %s", ErrUnexpectedInput, link.Target())
	}

	status, ok := vocab.StatusFromGraph(name)
	if !ok {
		return nil, fmt.Errorf("%w: action status %q", ErrUnexpectedInput, name)
	}

	s := models.Status(status)

	return &s, nil
}

// ParameterSetToGraph translates a parameter set. A set without description
// is stored without context; label names the set in the graph.
func (m *Mapper) ParameterSetToGraph(ps models.ParameterSet, label string) (kg.ParameterSet, error) {
	params := make([]kg.Parameter, 0, len(ps.Items))

	for _, item := range ps.Items {
		switch {
		case item.String != nil:
			params = append(params, kg.Parameter{String: &kg.StringParameter{
				Name:  item.String.Name,
				Value: item.String.Value,
			}})
		case item.Numerical != nil:
			unit := ""
			if item.Numerical.Units != nil {
				unit = *item.Numerical.Units
			}

			qv, err := m.QuantityToGraph(item.Numerical.Value, unit)
			if err != nil {
				return kg.ParameterSet{}, fieldError("parameter "+item.Numerical.Name, err)
			}

			params = append(params, kg.Parameter{Numerical: &kg.NumericalParameter{
				Name:   item.Numerical.Name,
				Values: []kg.QuantitativeValue{qv},
			}})
		default:
			return kg.ParameterSet{}, errors.New("parameter holds no value")
		}
	}

	var (
		context string
		opts    []kg.Option
	)

	if ps.Description != nil {
		context = *ps.Description
	} else {
		opts = append(opts, kg.Relax("context"))
	}

	set := kg.NewParameterSet(context, params, opts...)
	set.LookupLabel = label

	return set, nil
}

func (m *Mapper) ParameterSetFromGraph(ps kg.ParameterSet) (models.ParameterSet, error) {
	out := models.ParameterSet{Items: make([]models.Parameter, 0, len(ps.Parameters))}

	if ps.Context != "" {
		out.Description = &ps.Context
	}

	for _, p := range ps.Parameters {
		switch {
		case p.String != nil:
			out.Items = append(out.Items, models.Parameter{String: &models.StringParameter{
				Name:  p.String.Name,
				Value: p.String.Value,
			}})
		case p.Numerical != nil:
			np := &models.NumericalParameter{Name: p.Numerical.Name}

			if len(p.Numerical.Values) > 0 {
				value, unit, err := m.QuantityFromGraph(p.Numerical.Values[0])
				if err != nil {
					return out, fieldError("parameter "+p.Numerical.Name, err)
				}

				np.Value = value

				if unit != "" {
					np.Units = &unit
				}
			}

			out.Items = append(out.Items, models.Parameter{Numerical: np})
		}
	}

	return out, nil
}
