package models

// WorkflowExecution records a workflow run as the ordered list of its
// stages. Stage order is the order supplied by the caller.
type WorkflowExecution struct {
	ID        *string       `json:"id"         validate:"omitempty,uuid"`
	Stages    []Computation `json:"stages"     validate:"required,dive"`
	StartedBy *Person       `json:"started_by"`
	RecipeID  *string       `json:"recipe_id"  validate:"omitempty,uuid"`
	Tags      []string      `json:"tags"`
}

// WorkflowExecutionPatch carries the fields to change on a workflow record.
type WorkflowExecutionPatch struct {
	ID        *string        `json:"id"         validate:"omitempty,uuid"`
	Stages    *[]Computation `json:"stages"     validate:"omitempty,dive"`
	StartedBy *Person        `json:"started_by"`
	RecipeID  *string        `json:"recipe_id"  validate:"omitempty,uuid"`
	Tags      *[]string      `json:"tags"`
}

// WorkflowRecipeType classifies a recipe by its format.
type WorkflowRecipeType string

const (
	RecipeCWL          WorkflowRecipeType = "CWL workflow"
	RecipeCWLCommand   WorkflowRecipeType = "CWL command line tool"
	RecipeSnakemake    WorkflowRecipeType = "Snakemake workflow"
	RecipeUNICORE      WorkflowRecipeType = "UNICORE workflow"
	RecipePythonScript WorkflowRecipeType = "Python script"
	RecipeJupyter      WorkflowRecipeType = "Jupyter notebook"
)

// WorkflowRecipe is one version of a workflow recipe.
type WorkflowRecipe struct {
	ID                *string             `json:"id"                 validate:"omitempty,uuid"`
	Name              *string             `json:"name"`
	Alias             *string             `json:"alias"`
	Custodians        []Person            `json:"custodians"         validate:"dive"`
	Description       *string             `json:"description"`
	Developers        []Person            `json:"developers"         validate:"dive"`
	Type              *WorkflowRecipeType `json:"type"`
	FullDocumentation *string             `json:"full_documentation" validate:"omitempty,url"`
	Homepage          *string             `json:"homepage"           validate:"omitempty,url"`
	Keywords          []string            `json:"keywords"`
	Location          *string             `json:"location"           validate:"omitempty,url"`
	VersionIdentifier string              `json:"version_identifier" validate:"required"`
	VersionInnovation *string             `json:"version_innovation"`
}

// WorkflowRecipePatch carries the fields to change on a recipe version.
type WorkflowRecipePatch struct {
	ID                *string             `json:"id"                 validate:"omitempty,uuid"`
	Name              *string             `json:"name"`
	Alias             *string             `json:"alias"`
	Custodians        *[]Person           `json:"custodians"         validate:"omitempty,dive"`
	Description       *string             `json:"description"`
	Developers        *[]Person           `json:"developers"         validate:"omitempty,dive"`
	Type              *WorkflowRecipeType `json:"type"`
	FullDocumentation *string             `json:"full_documentation" validate:"omitempty,url"`
	Homepage          *string             `json:"homepage"           validate:"omitempty,url"`
	Keywords          *[]string           `json:"keywords"`
	Location          *string             `json:"location"           validate:"omitempty,url"`
	VersionIdentifier *string             `json:"version_identifier"`
	VersionInnovation *string             `json:"version_innovation"`
}

// WorkflowCount is the number of workflow executions stored in a space.
type WorkflowCount struct {
	Space string `json:"space"`
	Count int    `json:"count"`
}
