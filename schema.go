package ibl

import (
	"fmt"
	"unicode"

	"github.com/DDM-Lab/go-ibl/internal/store"
)

// reservedDecisionAttr is the synthetic attribute slot used to hold the
// scalar decision when the schema is empty. It is never user-assignable.
const reservedDecisionAttr = "_decision"

func validateAttributeName(name string) error {
	if name == "" {
		return newValidationError("attributes", fmt.Errorf("%w: name must not be empty", ErrInvalidAttribute))
	}
	runes := []rune(name)
	if !unicode.IsLetter(runes[0]) {
		return newValidationError("attributes", fmt.Errorf("%w: %q must start with a letter", ErrInvalidAttribute, name))
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return newValidationError("attributes", fmt.Errorf("%w: %q may only contain letters, digits, and underscores", ErrInvalidAttribute, name))
		}
	}
	if name == reservedDecisionAttr {
		return newValidationError("attributes", fmt.Errorf("%w: %q is reserved", ErrInvalidAttribute, name))
	}
	return nil
}

func validateSchema(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if err := validateAttributeName(name); err != nil {
			return err
		}
		if seen[name] {
			return newValidationError("attributes", fmt.Errorf("%w: duplicate attribute %q", ErrInvalidAttribute, name))
		}
		seen[name] = true
	}
	return nil
}

// normalizeOption converts a raw option value into its attribute map and a
// canonical decision tag, per spec.md §3.
func (a *Agent) normalizeOption(opt Option) (attrs map[string]any, decision any, err error) {
	if len(a.schema) == 0 {
		if verr := store.ValidateHashable(opt); verr != nil {
			return nil, nil, newValidationError("option", fmt.Errorf("%w: %v", ErrInvalidOption, verr))
		}
		return map[string]any{reservedDecisionAttr: opt}, opt, nil
	}

	switch v := opt.(type) {
	case map[string]any:
		attrs = make(map[string]any, len(a.schema))
		for _, name := range a.schema {
			val, ok := v[name]
			if !ok {
				return nil, nil, newValidationError("option", fmt.Errorf("%w: missing attribute %q", ErrInvalidOption, name))
			}
			if verr := store.ValidateHashable(val); verr != nil {
				return nil, nil, newValidationError("option", fmt.Errorf("%w: %v", ErrInvalidOption, verr))
			}
			attrs[name] = val
		}
	case []any:
		if len(v) < len(a.schema) {
			return nil, nil, newValidationError("option", fmt.Errorf("%w: has %d entries, schema needs %d", ErrInvalidOption, len(v), len(a.schema)))
		}
		attrs = make(map[string]any, len(a.schema))
		for i, name := range a.schema {
			if verr := store.ValidateHashable(v[i]); verr != nil {
				return nil, nil, newValidationError("option", fmt.Errorf("%w: %v", ErrInvalidOption, verr))
			}
			attrs[name] = v[i]
		}
	default:
		return nil, nil, newValidationError("option", fmt.Errorf("%w: %v does not conform to schema %v", ErrInvalidOption, opt, a.schema))
	}
	return attrs, encodeDecision(attrs, a.schema), nil
}

// encodeDecision derives the default decision tag for a non-empty schema:
// a canonical string summary of the option's attribute values. It is a
// display/override identity only — matching during retrieval is always
// done attribute-by-attribute, never against the decision tag.
func encodeDecision(attrs map[string]any, schema []string) any {
	parts := make([]any, len(schema))
	for i, name := range schema {
		parts[i] = attrs[name]
	}
	return fmt.Sprintf("%v", parts)
}

// exactAttrs returns the schema attributes (plus "_decision" when the
// schema is empty) that have no registered similarity function — those
// that candidates() must match exactly.
func (a *Agent) exactAttrs() []string {
	if len(a.schema) == 0 {
		return []string{reservedDecisionAttr}
	}
	var exact []string
	for _, name := range a.schema {
		if !a.similarityReg.Has(name) {
			exact = append(exact, name)
		}
	}
	return exact
}
