package fhir

// Parameters is the FHIR resource used for operation input and output.
type Parameters struct {
	ResourceType string      `json:"resourceType"`
	Parameter    []Parameter `json:"parameter"`
}

type Parameter struct {
	Name         string      `json:"name"`
	ValueBoolean *bool       `json:"valueBoolean,omitempty"`
	ValueString  string      `json:"valueString,omitempty"`
	ValueCode    string      `json:"valueCode,omitempty"`
	ValueURI     string      `json:"valueUri,omitempty"`
	ValueCoding  *Coding     `json:"valueCoding,omitempty"`
	Part         []Parameter `json:"part,omitempty"`
}

func NewParameters(params ...Parameter) *Parameters {
	return &Parameters{ResourceType: "Parameters", Parameter: params}
}

func BoolParam(name string, v bool) Parameter {
	return Parameter{Name: name, ValueBoolean: &v}
}

func StringParam(name, v string) Parameter {
	return Parameter{Name: name, ValueString: v}
}

// Value returns the first non-empty primitive value of the named parameter.
// Clients are lax about which value[x] they send for codes and URIs, so all
// string-typed variants are accepted.
func (p *Parameters) Value(name string) string {
	for _, param := range p.Parameter {
		if param.Name != name {
			continue
		}
		for _, v := range []string{param.ValueCode, param.ValueURI, param.ValueString} {
			if v != "" {
				return v
			}
		}
		if param.ValueCoding != nil {
			return param.ValueCoding.Code
		}
	}
	return ""
}
