package services

import (
	"context"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
)

// WorkflowFilter narrows a workflow listing.
type WorkflowFilter struct {
	Tags  []string
	Space string
	Size  int
	From  int
}

// Workflows serves workflow execution records.
type Workflows struct {
	*crud[models.WorkflowExecution, models.WorkflowExecutionPatch, *kg.WorkflowExecution]
}

func NewWorkflows(deps Dependencies) *Workflows {
	m := deps.Mapper

	c := codec[models.WorkflowExecution, models.WorkflowExecutionPatch, *kg.WorkflowExecution]{
		resource:   "workflows",
		label:      "workflow execution",
		graphType:  kg.TypeWorkflowExecution,
		toGraph:    m.WorkflowToGraph,
		applyPatch: m.ApplyWorkflowPatch,
		fromGraph: func(ctx context.Context, store kg.Store, node *kg.WorkflowExecution) (models.WorkflowExecution, error) {
			return m.WorkflowFromGraph(ctx, node, store)
		},
		recordID: func(r models.WorkflowExecution) *string { return r.ID },
		setID:    func(r *models.WorkflowExecution, id string) { r.ID = &id },
		patchID:  func(p models.WorkflowExecutionPatch) *string { return p.ID },
	}

	return &Workflows{crud: newCrud(c, deps)}
}

func (s *Workflows) List(ctx context.Context, token string, filter WorkflowFilter) ([]models.WorkflowExecution, error) {
	filters := make([]kg.Filter, 0, len(filter.Tags))
	for _, tag := range filter.Tags {
		filters = append(filters, kg.Filter{Path: []string{"tags"}, Value: tag})
	}

	return s.list(ctx, token, kg.ListOptions{
		Space:   filter.Space,
		Filters: filters,
		From:    filter.From,
		Size:    filter.Size,
	})
}
