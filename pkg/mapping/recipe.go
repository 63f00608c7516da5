package mapping

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/google/uuid"
)

// recipeContentTypes maps recipe types to the content types recipe files
// are stored with.
var recipeContentTypes = map[models.WorkflowRecipeType]string{
	models.RecipeCWL:          "application/vnd.commonworkflowlanguage.workflow",
	models.RecipeCWLCommand:   "application/vnd.commonworkflowlanguage.cmdline",
	models.RecipeSnakemake:    "application/vnd.snakemake.workflowrecipe",
	models.RecipeUNICORE:      "application/vnd.unicore.workflowrecipe",
	models.RecipePythonScript: "text/x-python",
	models.RecipeJupyter:      "application/x-ipynb+json",
}

// RecipeType returns the recipe type stored under a content type name.
func RecipeType(contentType string) (models.WorkflowRecipeType, bool) {
	for typ, name := range recipeContentTypes {
		if name == contentType {
			return typ, true
		}
	}

	return "", false
}

// RecipeToGraph builds a recipe version node. It does not link the version
// to its parent recipe.
func (m *Mapper) RecipeToGraph(ctx context.Context, store kg.Store, r models.WorkflowRecipe) (*kg.WorkflowRecipeVersion, error) {
	id := uuid.NewString()
	if r.ID != nil {
		id = *r.ID
	}

	v := &kg.WorkflowRecipeVersion{
		Name:              deref(r.Name),
		Alias:             deref(r.Alias),
		Description:       deref(r.Description),
		FullDocumentation: deref(r.FullDocumentation),
		Homepage:          deref(r.Homepage),
		Keywords:          r.Keywords,
		VersionIdentifier: r.VersionIdentifier,
		VersionInnovation: deref(r.VersionInnovation),
	}
	v.ID = kg.URIFromUUID(id)

	var err error

	if v.Custodians, err = m.peopleToGraph(ctx, store, r.Custodians); err != nil {
		return nil, err
	}

	if v.Developers, err = m.peopleToGraph(ctx, store, r.Developers); err != nil {
		return nil, err
	}

	if v.Format, err = m.recipeFormat(r.Type); err != nil {
		return nil, err
	}

	if r.Location != nil {
		if err := m.setRecipeLocation(ctx, store, v, *r.Location); err != nil {
			return nil, err
		}
	}

	return v, nil
}

func (m *Mapper) recipeFormat(typ *models.WorkflowRecipeType) (*kg.Link, error) {
	if typ == nil {
		return nil, nil
	}

	name, ok := recipeContentTypes[*typ]
	if !ok {
		return nil, fieldError("type", fmt.Errorf("%w: recipe type %q", ErrUnknownContentType, *typ))
	}

	link, ok := m.vocab.ContentType(name)
	if !ok {
		return nil, fieldError("type", fmt.Errorf("%w: %q", ErrUnknownContentType, name))
	}

	return link, nil
}

func (m *Mapper) setRecipeLocation(ctx context.Context, store kg.Store, v *kg.WorkflowRecipeVersion, location string) error {
	v.Location = location
	v.Repository = nil

	if IsLocalPath(location) {
		return nil
	}

	repo, err := m.RepositoryToGraph(ctx, store, location)
	if err != nil {
		return err
	}

	v.Repository = repo

	return nil
}

func (m *Mapper) peopleToGraph(ctx context.Context, store kg.Store, people []models.Person) ([]*kg.Link, error) {
	links := make([]*kg.Link, 0, len(people))

	for _, p := range people {
		link, err := m.PersonToGraph(ctx, store, p)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, nil
}

func (m *Mapper) peopleFromGraph(ctx context.Context, links []*kg.Link, store kg.Store) ([]models.Person, error) {
	people := make([]models.Person, 0, len(links))

	for _, link := range links {
		p, err := m.PersonFromGraph(ctx, link, store)
		if err != nil {
			return nil, err
		}

		people = append(people, p)
	}

	return people, nil
}

// FindRecipe returns the recipe that lists version among its versions, or
// nil when there is none.
func FindRecipe(ctx context.Context, store kg.Store, versionID string) (*kg.WorkflowRecipe, error) {
	found, err := store.List(ctx, kg.ListOptions{
		Type:    kg.TypeWorkflowRecipe,
		Scope:   kg.ScopeAny,
		Filters: []kg.Filter{{Path: []string{"hasVersions"}, Value: versionID}},
		Size:    1,
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}

	recipe, ok := found[0].(*kg.WorkflowRecipe)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedInput, kg.ShortType(found[0].Type()))
	}

	return recipe, nil
}

// FindRecipeByName returns the recipe with the given name in space, or nil
// when there is none.
func FindRecipeByName(ctx context.Context, store kg.Store, name, space string) (*kg.WorkflowRecipe, error) {
	found, err := store.List(ctx, kg.ListOptions{
		Type:    kg.TypeWorkflowRecipe,
		Space:   space,
		Scope:   kg.ScopeAny,
		Filters: []kg.Filter{{Path: []string{"name"}, Value: name}},
		Size:    1,
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}

	recipe, ok := found[0].(*kg.WorkflowRecipe)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedInput, kg.ShortType(found[0].Type()))
	}

	return recipe, nil
}

// NewRecipe builds the parent recipe of a first version.
func NewRecipe(v *kg.WorkflowRecipeVersion) *kg.WorkflowRecipe {
	return &kg.WorkflowRecipe{
		Name:        v.Name,
		Alias:       v.Alias,
		Description: v.Description,
		Custodians:  v.Custodians,
		Developers:  v.Developers,
		Homepage:    v.Homepage,
		HasVersions: []*kg.Link{kg.To(v)},
	}
}

// RecipeFromGraph reads a recipe version. Name, alias, description, people
// and homepage fall back to the parent recipe's values when the version has
// none; parent may be nil.
func (m *Mapper) RecipeFromGraph(ctx context.Context, v *kg.WorkflowRecipeVersion, parent *kg.WorkflowRecipe, store kg.Store) (models.WorkflowRecipe, error) {
	if parent == nil {
		parent = &kg.WorkflowRecipe{}
	}

	id := v.UUID()
	out := models.WorkflowRecipe{
		ID:                &id,
		Name:              ptrOrNil(firstOf(v.Name, parent.Name)),
		Alias:             ptrOrNil(firstOf(v.Alias, parent.Alias)),
		Description:       ptrOrNil(firstOf(v.Description, parent.Description)),
		FullDocumentation: ptrOrNil(v.FullDocumentation),
		Homepage:          ptrOrNil(firstOf(v.Homepage, parent.Homepage)),
		Keywords:          v.Keywords,
		VersionIdentifier: v.VersionIdentifier,
		VersionInnovation: ptrOrNil(v.VersionInnovation),
	}

	if out.Keywords == nil {
		out.Keywords = []string{}
	}

	custodians := v.Custodians
	if len(custodians) == 0 {
		custodians = parent.Custodians
	}

	developers := v.Developers
	if len(developers) == 0 {
		developers = parent.Developers
	}

	var err error

	if out.Custodians, err = m.peopleFromGraph(ctx, custodians, store); err != nil {
		return out, err
	}

	if out.Developers, err = m.peopleFromGraph(ctx, developers, store); err != nil {
		return out, err
	}

	if v.Format != nil {
		if name, ok := m.vocab.Name(v.Format); ok {
			if typ, ok := RecipeType(name); ok {
				out.Type = &typ
			}
		}
	}

	switch {
	case v.Location != "":
		out.Location = &v.Location
	case v.Repository != nil:
		repo, err := kg.ResolveAs[*kg.FileRepository](ctx, store, v.Repository, kg.ScopeAny)
		if err != nil {
			return out, err
		}

		out.Location = &repo.IRI
	}

	return out, nil
}

// ApplyRecipePatch changes the fields present in patch.
func (m *Mapper) ApplyRecipePatch(ctx context.Context, store kg.Store, v *kg.WorkflowRecipeVersion, patch models.WorkflowRecipePatch) error {
	var err error

	setIf(&v.Name, patch.Name)
	setIf(&v.Alias, patch.Alias)
	setIf(&v.Description, patch.Description)
	setIf(&v.FullDocumentation, patch.FullDocumentation)
	setIf(&v.Homepage, patch.Homepage)
	setIf(&v.VersionIdentifier, patch.VersionIdentifier)
	setIf(&v.VersionInnovation, patch.VersionInnovation)

	if patch.Keywords != nil {
		v.Keywords = *patch.Keywords
	}

	if patch.Custodians != nil {
		if v.Custodians, err = m.peopleToGraph(ctx, store, *patch.Custodians); err != nil {
			return err
		}
	}

	if patch.Developers != nil {
		if v.Developers, err = m.peopleToGraph(ctx, store, *patch.Developers); err != nil {
			return err
		}
	}

	if patch.Type != nil {
		if v.Format, err = m.recipeFormat(patch.Type); err != nil {
			return err
		}
	}

	if patch.Location != nil {
		return m.setRecipeLocation(ctx, store, v, *patch.Location)
	}

	return nil
}

// LatestVersion returns the version with the highest version identifier.
func LatestVersion(versions []*kg.WorkflowRecipeVersion) *kg.WorkflowRecipeVersion {
	if len(versions) == 0 {
		return nil
	}

	return slices.MaxFunc(versions, func(a, b *kg.WorkflowRecipeVersion) int {
		return CompareVersions(a.VersionIdentifier, b.VersionIdentifier)
	})
}

// CompareVersions orders version identifiers, comparing runs of digits by
// numeric value so that "1.10" sorts after "1.9".
func CompareVersions(a, b string) int {
	ca, cb := versionChunks(a), versionChunks(b)

	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]

		xn, xerr := strconv.ParseUint(x, 10, 64)
		yn, yerr := strconv.ParseUint(y, 10, 64)

		switch {
		case xerr == nil && yerr == nil:
			if c := cmp.Compare(xn, yn); c != 0 {
				return c
			}
		case x != y:
			return strings.Compare(x, y)
		}
	}

	return cmp.Compare(len(ca), len(cb))
}

// versionChunks splits s into alternating runs of digits and non-digits.
func versionChunks(s string) []string {
	var (
		chunks []string
		start  int
	)

	runes := []rune(s)
	for i := 1; i <= len(runes); i++ {
		if i == len(runes) || unicode.IsDigit(runes[i]) != unicode.IsDigit(runes[i-1]) {
			chunks = append(chunks, string(runes[start:i]))
			start = i
		}
	}

	return chunks
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
