// Package validate checks a parameter bag against a pipeline definition
// before submission: required keys, declared types, file existence and a
// character whitelist.
package validate

import (
	"context"
	"fmt"
	"sort"
	"unicode"

	"github.com/viant/stratus/model"
)

// allowedPunct lists the non-alphanumeric characters accepted in parameter
// values.
const allowedPunct = ".,-+@/_():  []?&="

// Checker validates parameter bags for one pipeline.
type Checker struct {
	Definition *model.Definition
	// Allowance lists bag keys excluded from the unknown-key warning, such
	// as a results-location override understood by the platform.
	Allowance []string
	// Location labels the file system probed by Exists in error messages,
	// "local", "remote" or a content-store scheme.
	Location string
	// Exists probes one path at Location.
	Exists func(ctx context.Context, path string) (bool, error)
	// Translate maps a declared file value to the path probed at Location;
	// nil means values are probed as given.
	Translate func(value string) (string, error)
}

// CheckKeys verifies every required parameter is present and returns a
// warning for each unknown key. Unknown keys never fail: the platform may
// still accept them.
func (c *Checker) CheckKeys(bag map[string]interface{}) ([]string, error) {
	var missing []string
	for _, name := range c.Definition.Required() {
		if _, ok := bag[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, NewMissingParameters(c.Definition.Identifier, missing)
	}
	var warnings []string
	for _, name := range sortedKeys(bag) {
		if c.Definition.Parameter(name) != nil || c.allowed(name) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("parameter %v is not part of pipeline %v and may be rejected", name, c.Definition.Identifier))
	}
	return warnings, nil
}

// CheckValues verifies each provided value against its declared parameter:
// non-empty, safe characters, string type where declared, and for file
// parameters existence at the probed location. The first missing file stops
// the check naming that path.
func (c *Checker) CheckValues(ctx context.Context, bag map[string]interface{}) error {
	for _, name := range sortedKeys(bag) {
		parameter := c.Definition.Parameter(name)
		if parameter == nil {
			continue
		}
		elements, err := elementsOf(name, bag[name])
		if err != nil {
			return err
		}
		if len(elements) == 0 {
			return &EmptyValueError{Name: name}
		}
		for _, element := range elements {
			text, isText := element.(string)
			if parameter.Type == model.TypeString && !isText {
				return &TypeMismatchError{Name: name, Declared: parameter.Type, Value: element}
			}
			if !isText {
				continue
			}
			if text == "" {
				return &EmptyValueError{Name: name}
			}
			if offending := unsafeRunes(text); len(offending) > 0 {
				return &CharsetError{Name: name, Offending: offending}
			}
			if parameter.Type == model.TypeFile {
				if err := c.checkFile(ctx, name, text); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Checker) checkFile(ctx context.Context, name, value string) error {
	if c.Exists == nil {
		return nil
	}
	probed := value
	if c.Translate != nil {
		translated, err := c.Translate(value)
		if err != nil {
			return fmt.Errorf("parameter %v: %w", name, err)
		}
		probed = translated
	}
	ok, err := c.Exists(ctx, probed)
	if err != nil {
		return fmt.Errorf("failed to check %v for parameter %v: %w", probed, name, err)
	}
	if !ok {
		return &FileNotFoundError{Name: name, Path: probed, Location: c.Location}
	}
	return nil
}

func (c *Checker) allowed(name string) bool {
	for _, candidate := range c.Allowance {
		if candidate == name {
			return true
		}
	}
	return false
}

func elementsOf(name string, value interface{}) ([]interface{}, error) {
	switch actual := value.(type) {
	case []interface{}:
		return actual, nil
	case []string:
		ret := make([]interface{}, 0, len(actual))
		for _, item := range actual {
			ret = append(ret, item)
		}
		return ret, nil
	case nil:
		return nil, &EmptyValueError{Name: name}
	default:
		return []interface{}{actual}, nil
	}
}

// unsafeRunes returns the characters of text outside the whitelist,
// deduplicated and sorted.
func unsafeRunes(text string) []rune {
	seen := map[rune]bool{}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || acceptedPunct(r) {
			continue
		}
		seen[r] = true
	}
	if len(seen) == 0 {
		return nil
	}
	ret := make([]rune, 0, len(seen))
	for r := range seen {
		ret = append(ret, r)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func acceptedPunct(r rune) bool {
	for _, accepted := range allowedPunct {
		if r == accepted {
			return true
		}
	}
	return false
}

func sortedKeys(bag map[string]interface{}) []string {
	ret := make([]string, 0, len(bag))
	for name := range bag {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}
