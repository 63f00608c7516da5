package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/mapping"
	"github.com/ebrains-prov/provenance-api/pkg/models"
)

// ComputationFilter narrows a computation listing. Empty fields do not
// filter; all set fields must match.
type ComputationFilter struct {
	Software     string // software version UUID
	Platform     string // hardware system name
	Status       *models.Status
	Tags         []string
	ModelVersion string
	Dataset      string
	InputData    string // file UUID
	Space        string
	Size         int
	From         int
}

// Computations serves the records of one computation kind.
type Computations struct {
	*crud[models.Computation, models.ComputationPatch, *kg.Computation]

	kind   mapping.Kind
	mapper *mapping.Mapper
}

// NewComputations creates the service for kind, served under resource
// (e.g. "analyses").
func NewComputations(kind mapping.Kind, resource string, deps Dependencies) *Computations {
	m := deps.Mapper

	c := codec[models.Computation, models.ComputationPatch, *kg.Computation]{
		resource:  resource,
		label:     strings.ToLower(kind.Label),
		graphType: kind.GraphType,
		toGraph: func(ctx context.Context, store kg.Store, record models.Computation) (*kg.Computation, error) {
			return m.ComputationToGraph(ctx, store, kind, record)
		},
		fromGraph: func(ctx context.Context, store kg.Store, node *kg.Computation) (models.Computation, error) {
			return m.ComputationFromGraph(ctx, node, store)
		},
		applyPatch: m.ApplyComputationPatch,
		recordID:   func(r models.Computation) *string { return r.ID },
		setID:      func(r *models.Computation, id string) { r.ID = &id },
		patchID:    func(p models.ComputationPatch) *string { return p.ID },
	}

	return &Computations{
		crud:   newCrud(c, deps),
		kind:   kind,
		mapper: m,
	}
}

// Kind returns the computation kind the service handles.
func (s *Computations) Kind() mapping.Kind {
	return s.kind
}

func (s *Computations) List(ctx context.Context, token string, filter ComputationFilter) ([]models.Computation, error) {
	filters, err := s.filters(filter)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, token, kg.ListOptions{
		Space:   filter.Space,
		Filters: filters,
		From:    filter.From,
		Size:    filter.Size,
	})
}

func (s *Computations) filters(f ComputationFilter) ([]kg.Filter, error) {
	var filters []kg.Filter

	if f.Software != "" {
		filters = append(filters, kg.Filter{Path: []string{"environment", "software"}, Value: f.Software})
	}

	if f.Platform != "" {
		link, ok := s.mapper.Vocab().Hardware(f.Platform)
		if !ok {
			return nil, NewValidationError("list", "invalid_filter",
				fmt.Sprintf("unknown hardware platform %q", f.Platform), ErrInvalidRequest)
		}

		filters = append(filters, kg.Filter{Path: []string{"environment", "hardware"}, Value: link.ID})
	}

	if f.Status != nil {
		link, err := s.mapper.StatusToGraph(f.Status)
		if err != nil {
			return nil, NewValidationError("list", "invalid_filter", err.Error(), ErrInvalidRequest)
		}

		filters = append(filters, kg.Filter{Path: []string{"status"}, Value: link.ID})
	}

	for _, tag := range f.Tags {
		filters = append(filters, kg.Filter{Path: []string{"tags"}, Value: tag})
	}

	for _, id := range []string{f.ModelVersion, f.Dataset, f.InputData} {
		if id != "" {
			filters = append(filters, kg.Filter{Path: []string{"inputs"}, Value: id})
		}
	}

	return filters, nil
}
