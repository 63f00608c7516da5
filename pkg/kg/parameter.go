package kg

import (
	"encoding/json"
	"fmt"
)

// Parameter holds exactly one of a string or a numerical parameter.
type Parameter struct {
	String    *StringParameter
	Numerical *NumericalParameter
}

type stringParameterJSON struct {
	Type string `json:"@type"`
	StringParameter
}

type numericalParameterJSON struct {
	Type string `json:"@type"`
	NumericalParameter
}

func (p Parameter) MarshalJSON() ([]byte, error) {
	switch {
	case p.String != nil:
		return json.Marshal(stringParameterJSON{Type: TypeStringParameter, StringParameter: *p.String})
	case p.Numerical != nil:
		return json.Marshal(numericalParameterJSON{Type: TypeNumericalParameter, NumericalParameter: *p.Numerical})
	default:
		return nil, fmt.Errorf("%w: empty parameter", ErrStrictValidation)
	}
}

func (p *Parameter) UnmarshalJSON(data []byte) error {
	var head struct {
		Type typeField `json:"@type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch string(head.Type) {
	case TypeStringParameter:
		var sp StringParameter
		if err := json.Unmarshal(data, &sp); err != nil {
			return err
		}

		*p = Parameter{String: &sp}
	case TypeNumericalParameter:
		var np NumericalParameter
		if err := json.Unmarshal(data, &np); err != nil {
			return err
		}

		*p = Parameter{Numerical: &np}
	default:
		return fmt.Errorf("%w: parameter of type %q", ErrUnexpectedType, string(head.Type))
	}

	return nil
}

// typeField accepts "@type" written either as a string or a list.
type typeField string

func (t *typeField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = typeField(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}

	if len(many) > 0 {
		*t = typeField(many[0])
	}

	return nil
}
