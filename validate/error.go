package validate

import (
	"fmt"
	"sort"
	"strings"
)

// MissingParametersError reports every required parameter absent from the
// bag, not only the first.
type MissingParametersError struct {
	Pipeline string
	Names    []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("pipeline %v requires missing parameter(s): %v", e.Pipeline, strings.Join(e.Names, ", "))
}

// NewMissingParameters creates a missing-parameters error with names sorted
// for stable messages.
func NewMissingParameters(pipeline string, names []string) *MissingParametersError {
	sort.Strings(names)
	return &MissingParametersError{Pipeline: pipeline, Names: names}
}

// TypeMismatchError reports a value that does not satisfy the declared
// parameter type.
type TypeMismatchError struct {
	Name     string
	Declared string
	Value    interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %v expects %v values, got %T (%v)", e.Name, e.Declared, e.Value, e.Value)
}

// FileNotFoundError names the first declared input file that does not exist
// at the probed location.
type FileNotFoundError struct {
	Name     string
	Path     string
	Location string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("parameter %v points to %v which does not exist on the %v file system", e.Name, e.Path, e.Location)
}

// CharsetError reports characters outside the accepted set, deduplicated
// and sorted.
type CharsetError struct {
	Name      string
	Offending []rune
}

func (e *CharsetError) Error() string {
	rendered := make([]string, 0, len(e.Offending))
	for _, r := range e.Offending {
		rendered = append(rendered, fmt.Sprintf("%q", string(r)))
	}
	return fmt.Sprintf("parameter %v contains unsupported character(s): %v", e.Name, strings.Join(rendered, " "))
}

// EmptyValueError reports an empty scalar or list.
type EmptyValueError struct {
	Name string
}

func (e *EmptyValueError) Error() string {
	return fmt.Sprintf("parameter %v has an empty value", e.Name)
}
