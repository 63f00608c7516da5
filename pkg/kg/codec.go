package kg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SpaceKey is the metadata property through which the graph reports the
// space an instance lives in.
const SpaceKey = "https://core.kg.ebrains.eu/vocab/meta/space"

var constructors = map[string]func() Node{
	TypeFile:                  func() Node { return &File{} },
	TypeLocalFile:             func() Node { return &LocalFile{} },
	TypeFileRepository:        func() Node { return &FileRepository{} },
	TypeOrganization:          func() Node { return &Organization{} },
	TypePerson:                func() Node { return &Person{} },
	TypeORCID:                 func() Node { return &ORCID{} },
	TypeResearcherID:          func() Node { return &ResearcherID{} },
	TypeSoftwareVersion:       func() Node { return &SoftwareVersion{} },
	TypeModelVersion:          func() Node { return &ModelVersion{} },
	TypeDatasetVersion:        func() Node { return &DatasetVersion{} },
	TypeEnvironment:           func() Node { return &Environment{} },
	TypeLaunchConfiguration:   func() Node { return &LaunchConfiguration{} },
	TypeWorkflowExecution:     func() Node { return &WorkflowExecution{} },
	TypeWorkflowRecipe:        func() Node { return &WorkflowRecipe{} },
	TypeWorkflowRecipeVersion: func() Node { return &WorkflowRecipeVersion{} },
}

func init() {
	for _, typ := range []string{TypeContentType, TypeUnitOfMeasurement, TypeFileRepositoryType, TypeActionStatusType, TypeHardwareSystem} {
		constructors[typ] = func() Node { return &Term{typ: typ} }
	}

	for _, typ := range []string{TypeDataAnalysis, TypeSimulation, TypeVisualization, TypeOptimization, TypeDataCopy, TypeGenericComputation} {
		constructors[typ] = func() Node { return &Computation{Kind: typ} }
	}
}

// Known reports whether typ can be decoded.
func Known(typ string) bool {
	_, ok := constructors[typ]
	return ok
}

// Encode renders node as a JSON-LD document with openMINDS property names.
func Encode(node Node) (map[string]any, error) {
	meta := node.Instance()

	raw, err := json.Marshal(node)
	if err != nil {
		return nil, &InstanceError{Op: "encode", ID: meta.ID, Err: err}
	}

	var body map[string]any

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&body); err != nil {
		return nil, &InstanceError{Op: "encode", ID: meta.ID, Err: err}
	}

	doc, _ := expand(body).(map[string]any)
	if meta.ID != "" {
		doc["@id"] = meta.ID
	}

	doc["@type"] = node.Type()

	return doc, nil
}

// Decode builds the node described by a JSON-LD document.
func Decode(doc map[string]any) (Node, error) {
	typ := DocumentType(doc)

	ctor, ok := constructors[typ]
	if !ok {
		return nil, &InstanceError{Op: "decode", ID: stringValue(doc["@id"]), Err: fmt.Errorf("%w: %q", ErrUnexpectedType, typ)}
	}

	node := ctor()

	raw, err := json.Marshal(compact(doc))
	if err != nil {
		return nil, &InstanceError{Op: "decode", ID: stringValue(doc["@id"]), Err: err}
	}

	if err := json.Unmarshal(raw, node); err != nil {
		return nil, &InstanceError{Op: "decode", ID: stringValue(doc["@id"]), Err: err}
	}

	meta := node.Instance()
	meta.ID = stringValue(doc["@id"])
	meta.Space = stringValue(doc[SpaceKey])

	return node, nil
}

// DocumentType returns the first type listed by a JSON-LD document.
func DocumentType(doc map[string]any) string {
	switch t := doc["@type"].(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			return stringValue(t[0])
		}
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}

	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func expand(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))

		for k, item := range val {
			if strings.HasPrefix(k, "@") {
				out[k] = item
				continue
			}

			out[VocabPrefix+k] = expand(item)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expand(item)
		}

		return out
	default:
		return v
	}
}

// compact strips the vocabulary namespace and drops properties outside it.
func compact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))

		for k, item := range val {
			switch {
			case strings.HasPrefix(k, "@"):
				out[k] = item
			case strings.HasPrefix(k, VocabPrefix):
				out[strings.TrimPrefix(k, VocabPrefix)] = compact(item)
			}
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = compact(item)
		}

		return out
	default:
		return v
	}
}

// Compact returns doc with the vocabulary namespace stripped from its
// property names.
func Compact(doc map[string]any) map[string]any {
	out, _ := compact(doc).(map[string]any)
	return out
}
