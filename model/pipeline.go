package model

import "strings"

// Parameter types declared by the platform.
const (
	TypeFile   = "File"
	TypeString = "String"
)

// ComputedDefault is the sentinel the platform reports for parameters whose
// default value is resolved server side, i.e. parameters with no usable
// client-side default.
const ComputedDefault = "$input.getDefaultValue()"

// Pipeline identifies one remote pipeline visible to the account.
type Pipeline struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	CanExecute  bool   `json:"canExecute"`
}

// Parameter describes one input of a pipeline definition.
type Parameter struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsOptional   bool   `json:"isOptional"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Required reports whether the parameter must be supplied by the caller: it
// is not optional and carries no client-usable default.
func (p *Parameter) Required() bool {
	return !p.IsOptional && (p.DefaultValue == "" || p.DefaultValue == ComputedDefault)
}

// Definition is the full remote definition of a pipeline.
type Definition struct {
	Identifier string       `json:"identifier"`
	Name       string       `json:"name"`
	Version    string       `json:"version"`
	Parameters []*Parameter `json:"parameters"`
}

// Parameter returns the named parameter or nil.
func (d *Definition) Parameter(name string) *Parameter {
	for _, param := range d.Parameters {
		if param.Name == name {
			return param
		}
	}
	return nil
}

// Required returns the names of all parameters the caller must supply.
func (d *Definition) Required() []string {
	var ret []string
	for _, param := range d.Parameters {
		if param.Required() {
			ret = append(ret, param.Name)
		}
	}
	return ret
}

// Match reports whether the pipeline identifier matches a case-insensitive
// partial pattern. An empty pattern matches everything.
func (p *Pipeline) Match(pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Identifier), strings.ToLower(pattern))
}
