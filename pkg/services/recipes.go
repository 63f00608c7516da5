package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/ebrains-prov/provenance-api/pkg/events"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/mapping"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// RecipeFilter narrows a recipe listing.
type RecipeFilter struct {
	Space string
	Size  int
	From  int
}

// Recipes serves workflow recipe versions. Each version hangs off a parent
// recipe, found by name in the target space, which collects its versions.
type Recipes struct {
	*crud[models.WorkflowRecipe, models.WorkflowRecipePatch, *kg.WorkflowRecipeVersion]

	mapper *mapping.Mapper
}

func NewRecipes(deps Dependencies) *Recipes {
	m := deps.Mapper

	c := codec[models.WorkflowRecipe, models.WorkflowRecipePatch, *kg.WorkflowRecipeVersion]{
		resource:   "recipes",
		label:      "workflow recipe",
		graphType:  kg.TypeWorkflowRecipeVersion,
		toGraph:    m.RecipeToGraph,
		applyPatch: m.ApplyRecipePatch,
		fromGraph: func(ctx context.Context, store kg.Store, v *kg.WorkflowRecipeVersion) (models.WorkflowRecipe, error) {
			parent, err := mapping.FindRecipe(ctx, store, v.ID)
			if err != nil {
				return models.WorkflowRecipe{}, err
			}

			return m.RecipeFromGraph(ctx, v, parent, store)
		},
		recordID: func(r models.WorkflowRecipe) *string { return r.ID },
		setID:    func(r *models.WorkflowRecipe, id string) { r.ID = &id },
		patchID:  func(p models.WorkflowRecipePatch) *string { return p.ID },
		carry: func(old, replacement *kg.WorkflowRecipeVersion) {
			replacement.IsNewVersionOf = old.IsNewVersionOf
		},
	}

	return &Recipes{crud: newCrud(c, deps), mapper: m}
}

func (s *Recipes) List(ctx context.Context, token string, filter RecipeFilter) ([]models.WorkflowRecipe, error) {
	space := filter.Space
	if space == "" {
		space = kg.MySpace
	}

	return s.list(ctx, token, kg.ListOptions{
		Space: space,
		From:  filter.From,
		Size:  filter.Size,
	})
}

// Create stores a new recipe version. The first version of a name creates
// the parent recipe; later versions are appended to it and point at the
// previous latest version.
func (s *Recipes) Create(ctx context.Context, token string, recipe models.WorkflowRecipe, space string) (models.WorkflowRecipe, error) {
	var zero models.WorkflowRecipe

	if space == "" {
		space = kg.MySpace
	}

	store := s.connector.ForToken(token)

	id, err := s.prepareNew(ctx, store, &recipe)
	if err != nil {
		return zero, err
	}

	ctx, span := s.span(ctx, "create", id)
	defer span.End()

	span.SetAttributes(attribute.String(otelhelper.SpaceKey, space))

	if recipe.Name == nil || *recipe.Name == "" {
		return zero, otelhelper.SetError(span,
			NewValidationError("create", "invalid_record", "name: a workflow recipe needs a name", ErrInvalidRequest))
	}

	v, err := s.toGraph(ctx, store, recipe)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("create", err))
	}

	parent, err := mapping.FindRecipeByName(ctx, store, *recipe.Name, space)
	if err != nil {
		return zero, otelhelper.SetError(span, fmt.Errorf("create: %w", err))
	}

	if parent == nil {
		parent = mapping.NewRecipe(v)
		if err := store.Save(ctx, parent, kg.SaveOptions{Space: space, Recursive: true}); err != nil {
			return zero, otelhelper.SetError(span, mappingError("create", err))
		}
	} else if err := s.addVersion(ctx, store, parent, v, space); err != nil {
		return zero, otelhelper.SetError(span, err)
	}

	created, err := s.mapper.RecipeFromGraph(ctx, v, parent, store)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("create", err))
	}

	s.publish(ctx, events.RecordCreatedEvent, v.UUID(), space)

	return created, nil
}

func (s *Recipes) addVersion(ctx context.Context, store kg.Store, parent *kg.WorkflowRecipe, v *kg.WorkflowRecipeVersion, space string) error {
	versions, err := s.versions(ctx, store, parent)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	for _, existing := range versions {
		if existing.VersionIdentifier == v.VersionIdentifier {
			return &ServiceError{
				Op:   "create",
				Code: "already_exists",
				Message: fmt.Sprintf("Version %s of workflow recipe %q already exists.",
					v.VersionIdentifier, parent.Name),
				Err: ErrRecordExists,
			}
		}
	}

	if latest := mapping.LatestVersion(versions); latest != nil {
		v.IsNewVersionOf = kg.To(latest)
	}

	if err := store.Save(ctx, v, kg.SaveOptions{Space: space, Recursive: true}); err != nil {
		return mappingError("create", err)
	}

	parent.HasVersions = append(parent.HasVersions, kg.To(v))

	if err := store.Save(ctx, parent, kg.SaveOptions{Space: parent.Space, Replace: true}); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	return nil
}

// versions loads the versions listed by parent. Versions the caller cannot
// see are skipped.
func (s *Recipes) versions(ctx context.Context, store kg.Store, parent *kg.WorkflowRecipe) ([]*kg.WorkflowRecipeVersion, error) {
	versions := make([]*kg.WorkflowRecipeVersion, 0, len(parent.HasVersions))

	for _, link := range parent.HasVersions {
		v, err := kg.ResolveAs[*kg.WorkflowRecipeVersion](ctx, store, link, kg.ScopeInProgress)
		if kg.IsNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		versions = append(versions, v)
	}

	return versions, nil
}

// Delete removes a recipe version and unlists it from its parent. A parent
// left without versions is deleted too.
func (s *Recipes) Delete(ctx context.Context, token, id string) error {
	ctx, span := s.span(ctx, "delete", id)
	defer span.End()

	store := s.connector.ForToken(token)

	v, err := s.load(ctx, store, "delete", id)
	if err != nil {
		return otelhelper.SetError(span, err)
	}

	space := v.Space

	if err := s.authorize(ctx, "delete", "delete", space, token); err != nil {
		return otelhelper.SetError(span, err)
	}

	parent, err := mapping.FindRecipe(ctx, store, v.ID)
	if err != nil {
		return otelhelper.SetError(span, fmt.Errorf("delete: %w", err))
	}

	if err := store.Delete(ctx, v); err != nil {
		return otelhelper.SetError(span, fmt.Errorf("delete: %w", err))
	}

	if parent != nil {
		parent.HasVersions = slices.DeleteFunc(parent.HasVersions, func(link *kg.Link) bool {
			return kg.UUIDFromURI(link.Target()) == v.UUID()
		})

		if len(parent.HasVersions) == 0 {
			err = store.Delete(ctx, parent)
		} else {
			err = store.Save(ctx, parent, kg.SaveOptions{Space: parent.Space, Replace: true})
		}

		if err != nil {
			return otelhelper.SetError(span, fmt.Errorf("delete: %w", err))
		}
	}

	s.publish(ctx, events.RecordDeletedEvent, v.UUID(), space)

	return nil
}
