package mapping

import (
	"context"
	"fmt"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/google/uuid"
)

// StageKind returns the computation kind of a workflow stage.
func StageKind(typ models.ComputationType) (Kind, error) {
	kind, ok := stageKinds[typ]
	if !ok {
		return Kind{}, fieldError("stages.type", fmt.Errorf("%w: %q", ErrUnknownStageType, typ))
	}

	return kind, nil
}

// WorkflowToGraph builds the node tree of a workflow execution. Stages that
// do not name who started them inherit the workflow's started_by.
func (m *Mapper) WorkflowToGraph(ctx context.Context, store kg.Store, w models.WorkflowExecution) (*kg.WorkflowExecution, error) {
	id := uuid.NewString()
	if w.ID != nil {
		id = *w.ID
	}

	node := &kg.WorkflowExecution{Tags: w.Tags}
	node.ID = kg.URIFromUUID(id)

	var err error

	if w.StartedBy != nil {
		node.StartedBy, err = m.PersonToGraph(ctx, store, *w.StartedBy)
		err = fieldError("started_by", err)
	} else {
		node.StartedBy, err = m.me(ctx, store)
	}

	if err != nil {
		return nil, err
	}

	if node.Stages, err = m.stagesToGraph(ctx, store, w.Stages, node.StartedBy); err != nil {
		return nil, err
	}

	if w.RecipeID != nil {
		node.Recipe = kg.Ref(*w.RecipeID, kg.TypeWorkflowRecipeVersion)
	}

	if err := m.relabelWorkflow(ctx, store, node); err != nil {
		return nil, err
	}

	return node, nil
}

func (m *Mapper) stagesToGraph(ctx context.Context, store kg.Store, stages []models.Computation, startedBy *kg.Link) ([]*kg.Link, error) {
	links := make([]*kg.Link, 0, len(stages))

	for i, stage := range stages {
		kind, err := StageKind(stage.Type)
		if err != nil {
			return nil, err
		}

		// stages are always new records
		stage.ID = nil

		node, err := m.computationToGraph(ctx, store, kind, stage, startedBy)
		if err != nil {
			return nil, fieldError(fmt.Sprintf("stages[%d]", i), err)
		}

		links = append(links, kg.To(node))
	}

	return links, nil
}

func (m *Mapper) relabelWorkflow(ctx context.Context, store kg.Store, node *kg.WorkflowExecution) error {
	name := ""

	if node.StartedBy != nil {
		person, err := kg.ResolveAs[*kg.Person](ctx, store, node.StartedBy, readScope)
		if err != nil {
			return err
		}

		name = person.FullName()
	}

	short := node.UUID()
	if len(short) > 7 {
		short = short[:7]
	}

	node.LookupLabel = fmt.Sprintf("Workflow execution by %s [%s]", name, short)

	return nil
}

// WorkflowFromGraph reads a workflow execution. Stages are returned in the
// stored order.
func (m *Mapper) WorkflowFromGraph(ctx context.Context, node *kg.WorkflowExecution, store kg.Store) (models.WorkflowExecution, error) {
	id := node.UUID()
	out := models.WorkflowExecution{
		ID:     &id,
		Stages: make([]models.Computation, 0, len(node.Stages)),
		Tags:   node.Tags,
	}

	if out.Tags == nil {
		out.Tags = []string{}
	}

	for _, link := range node.Stages {
		stage, err := kg.ResolveAs[*kg.Computation](ctx, store, link, readScope)
		if err != nil {
			return out, err
		}

		c, err := m.ComputationFromGraph(ctx, stage, store)
		if err != nil {
			return out, err
		}

		out.Stages = append(out.Stages, c)
	}

	if node.StartedBy != nil {
		person, err := m.PersonFromGraph(ctx, node.StartedBy, store)
		if err != nil {
			return out, err
		}

		out.StartedBy = &person
	}

	if node.Recipe != nil {
		recipe := kg.UUIDFromURI(node.Recipe.Target())
		out.RecipeID = &recipe
	}

	return out, nil
}

// ApplyWorkflowPatch changes the fields present in patch. New stages inherit
// the workflow's started_by, after any change to it. Stages already stored
// are computation records of their own and keep the person they were saved
// with.
func (m *Mapper) ApplyWorkflowPatch(ctx context.Context, store kg.Store, node *kg.WorkflowExecution, patch models.WorkflowExecutionPatch) error {
	var err error

	if patch.StartedBy != nil {
		if node.StartedBy, err = m.PersonToGraph(ctx, store, *patch.StartedBy); err != nil {
			return fieldError("started_by", err)
		}

		if err := m.relabelWorkflow(ctx, store, node); err != nil {
			return err
		}
	}

	if patch.Stages != nil {
		if node.Stages, err = m.stagesToGraph(ctx, store, *patch.Stages, node.StartedBy); err != nil {
			return err
		}
	}

	if patch.RecipeID != nil {
		node.Recipe = kg.Ref(*patch.RecipeID, kg.TypeWorkflowRecipeVersion)
	}

	if patch.Tags != nil {
		node.Tags = *patch.Tags
	}

	return nil
}
