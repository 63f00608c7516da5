package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status of a computation.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusQueued, StatusRunning, StatusCompleted, StatusFailed}

// ComputationType discriminates computation records, notably inside
// workflow stage lists.
type ComputationType string

const (
	TypeSimulation    ComputationType = "simulation"
	TypeDataAnalysis  ComputationType = "data analysis"
	TypeVisualisation ComputationType = "visualization"
	TypeOptimisation  ComputationType = "optimization"
	TypeDataCopy      ComputationType = "data transfer"
	TypeGeneric       ComputationType = "generic"
)

// InputKind tags the variant held by an Input.
type InputKind int

const (
	InputNone InputKind = iota
	InputFile
	InputSoftware
	InputModel
	InputDataset
)

func (k InputKind) String() string {
	switch k {
	case InputFile:
		return "file"
	case InputSoftware:
		return "software version"
	case InputModel:
		return "model version"
	case InputDataset:
		return "dataset version"
	default:
		return "none"
	}
}

// Input is one input of a computation: a file, a software version, or a
// reference to a model or dataset version. Exactly one field is set.
type Input struct {
	File     *File
	Software *SoftwareVersion
	Model    *ModelVersionReference
	Dataset  *DatasetVersionReference
}

func FileInput(f File) Input {
	return Input{File: &f}
}

func SoftwareInput(sv SoftwareVersion) Input {
	return Input{Software: &sv}
}

func ModelInput(id string) Input {
	return Input{Model: &ModelVersionReference{ModelVersionID: id}}
}

func DatasetInput(id string) Input {
	return Input{Dataset: &DatasetVersionReference{DatasetVersionID: id}}
}

// Kind returns the variant held by the input.
func (in Input) Kind() InputKind {
	switch {
	case in.File != nil:
		return InputFile
	case in.Software != nil:
		return InputSoftware
	case in.Model != nil:
		return InputModel
	case in.Dataset != nil:
		return InputDataset
	default:
		return InputNone
	}
}

func (in Input) MarshalJSON() ([]byte, error) {
	switch in.Kind() {
	case InputFile:
		return json.Marshal(in.File)
	case InputSoftware:
		return json.Marshal(in.Software)
	case InputModel:
		return json.Marshal(in.Model)
	case InputDataset:
		return json.Marshal(in.Dataset)
	default:
		return nil, errors.New("input holds no value")
	}
}

// UnmarshalJSON selects the variant from the keys present in the object.
func (in *Input) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("input must be an object: %w", err)
	}

	var (
		target any
		out    Input
	)

	switch {
	case has(keys, "model_version_id"):
		out.Model = &ModelVersionReference{}
		target = out.Model
	case has(keys, "dataset_version_id"):
		out.Dataset = &DatasetVersionReference{}
		target = out.Dataset
	case has(keys, "software_name"):
		out.Software = &SoftwareVersion{}
		target = out.Software
	case has(keys, "file_name"):
		out.File = &File{}
		target = out.File
	default:
		return errors.New("input is neither a file, a software version, nor a model or dataset reference")
	}

	if err := json.Unmarshal(data, target); err != nil {
		return err
	}

	*in = out

	return nil
}

func has(keys map[string]json.RawMessage, key string) bool {
	_, ok := keys[key]
	return ok
}

// Computation is a record of a single computational stage.
type Computation struct {
	ID            *string                  `json:"id"             validate:"omitempty,uuid"`
	Type          ComputationType          `json:"type,omitempty"`
	Description   *string                  `json:"description"`
	Input         []Input                  `json:"input"          validate:"required,dive"`
	Output        []File                   `json:"output"         validate:"required,dive"`
	Environment   ComputationalEnvironment `json:"environment"    validate:"required"`
	LaunchConfig  LaunchConfiguration      `json:"launch_config"  validate:"required"`
	StartTime     time.Time                `json:"start_time"     validate:"required"`
	EndTime       *time.Time               `json:"end_time"`
	StartedBy     *Person                  `json:"started_by"`
	Status        *Status                  `json:"status"         validate:"omitempty,oneof=queued running completed failed"`
	ResourceUsage []ResourceUsage          `json:"resource_usage" validate:"dive"`
	Tags          []string                 `json:"tags"`
}

// ComputationPatch carries the fields to change on a computation. A nil
// field is left untouched; a non-nil pointer to an empty list replaces the
// list with an empty one.
type ComputationPatch struct {
	ID            *string                   `json:"id"             validate:"omitempty,uuid"`
	Description   *string                   `json:"description"`
	Input         *[]Input                  `json:"input"          validate:"omitempty,dive"`
	Output        *[]File                   `json:"output"         validate:"omitempty,dive"`
	Environment   *ComputationalEnvironment `json:"environment"`
	LaunchConfig  *LaunchConfiguration      `json:"launch_config"`
	StartTime     *time.Time                `json:"start_time"`
	EndTime       *time.Time                `json:"end_time"`
	StartedBy     *Person                   `json:"started_by"`
	Status        *Status                   `json:"status"         validate:"omitempty,oneof=queued running completed failed"`
	ResourceUsage *[]ResourceUsage          `json:"resource_usage" validate:"omitempty,dive"`
	Tags          *[]string                 `json:"tags"`
}
