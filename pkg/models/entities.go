// Package models defines the API schema of provenance records.
package models

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // content identifier, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Hash algorithms accepted for file digests.
var HashAlgorithms = []string{"SHA-1", "MD5", "SHA-256"}

// Digest is the hash of a file's content.
type Digest struct {
	Algorithm string `json:"algorithm" validate:"required"`
	Value     string `json:"value"     validate:"required"`
}

// File describes a file read or written by a computation. Location may be
// absent for files that only exist inside a workflow.
type File struct {
	Description *string `json:"description"`
	Format      *string `json:"format"`
	Hash        *Digest `json:"hash"`
	Location    *string `json:"location"`
	FileName    string  `json:"file_name" validate:"required"`
	Size        *int64  `json:"size"      validate:"omitempty,gte=0"`
}

// Person launched a computation.
type Person struct {
	GivenName  string  `json:"given_name"  validate:"required"`
	FamilyName string  `json:"family_name" validate:"required"`
	ORCID      *string `json:"orcid"`
}

// SoftwareVersion is a minimal reference to a specific software release.
type SoftwareVersion struct {
	ID              *string `json:"id"               validate:"omitempty,uuid"`
	SoftwareName    string  `json:"software_name"    validate:"required"`
	SoftwareVersion string  `json:"software_version" validate:"required"`
}

// ModelVersionReference points at a model version owned by another service.
type ModelVersionReference struct {
	ModelVersionID string `json:"model_version_id" validate:"required,uuid"`
}

// DatasetVersionReference points at a dataset version owned by another
// service.
type DatasetVersionReference struct {
	DatasetVersionID string `json:"dataset_version_id" validate:"required,uuid"`
}

type StringParameter struct {
	Name  string `json:"name"  validate:"required"`
	Value string `json:"value"`
}

func (p StringParameter) String() string {
	return p.Name + " = " + p.Value
}

type NumericalParameter struct {
	Name  string  `json:"name"  validate:"required"`
	Value float64 `json:"value"`
	Units *string `json:"units"`
}

// String renders the parameter as "name = value units".
func (p NumericalParameter) String() string {
	s := p.Name + " = " + strconv.FormatFloat(p.Value, 'f', -1, 64)
	if p.Units != nil && *p.Units != "" {
		s += " " + *p.Units
	}

	return s
}

// Parameter holds exactly one of a string or a numerical parameter. The JSON
// type of "value" selects the variant.
type Parameter struct {
	String    *StringParameter
	Numerical *NumericalParameter
}

func (p Parameter) render() string {
	switch {
	case p.String != nil:
		return p.String.String()
	case p.Numerical != nil:
		return p.Numerical.String()
	default:
		return ""
	}
}

func (p Parameter) MarshalJSON() ([]byte, error) {
	switch {
	case p.String != nil:
		return json.Marshal(p.String)
	case p.Numerical != nil:
		return json.Marshal(p.Numerical)
	default:
		return nil, errors.New("parameter has no value")
	}
}

func (p *Parameter) UnmarshalJSON(data []byte) error {
	var shape struct {
		Value json.RawMessage `json:"value"`
	}

	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}

	value := bytes.TrimSpace(shape.Value)
	if len(value) > 0 && value[0] == '"' {
		var sp StringParameter
		if err := json.Unmarshal(data, &sp); err != nil {
			return err
		}

		*p = Parameter{String: &sp}

		return nil
	}

	var np NumericalParameter
	if err := json.Unmarshal(data, &np); err != nil {
		return fmt.Errorf("parameter value must be a string or a number: %w", err)
	}

	*p = Parameter{Numerical: &np}

	return nil
}

// ParameterSet is an ordered collection of parameters.
type ParameterSet struct {
	Items       []Parameter `json:"items"       validate:"dive"`
	Description *string     `json:"description"`
}

// Identifier is a digest of the rendered parameters. Sets with the same
// parameters in the same order share an identifier.
func (ps ParameterSet) Identifier() string {
	lines := make([]string, len(ps.Items))
	for i, item := range ps.Items {
		lines[i] = item.render()
	}

	return digest(lines)
}

// ComputationalEnvironment is the environment a computation ran in.
type ComputationalEnvironment struct {
	ID            *string           `json:"id"            validate:"omitempty,uuid"`
	Name          string            `json:"name"          validate:"required"`
	Hardware      string            `json:"hardware"      validate:"required"`
	Configuration []ParameterSet    `json:"configuration" validate:"dive"`
	Software      []SoftwareVersion `json:"software"      validate:"dive"`
	Description   *string           `json:"description"`
}

// LaunchConfiguration describes how a computation was launched.
type LaunchConfiguration struct {
	Description          *string       `json:"description"`
	Name                 *string       `json:"name"`
	Executable           string        `json:"executable" validate:"required"`
	Arguments            []string      `json:"arguments"`
	EnvironmentVariables *ParameterSet `json:"environment_variables"`
}

// Identifier is a digest of the executable, arguments and environment
// variables.
func (lc LaunchConfiguration) Identifier() string {
	lines := append([]string{lc.Executable}, lc.Arguments...)
	if lc.EnvironmentVariables != nil {
		for _, item := range lc.EnvironmentVariables.Items {
			lines = append(lines, item.render())
		}
	}

	return digest(lines)
}

// ResourceUsage is a measurement such as memory or compute time.
type ResourceUsage struct {
	Value float64 `json:"value"`
	Units string  `json:"units" validate:"required"`
}

func digest(lines []string) string {
	sum := sha1.Sum([]byte(strings.Join(lines, "\n"))) //nolint:gosec

	return hex.EncodeToString(sum[:])
}
