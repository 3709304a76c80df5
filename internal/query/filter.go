// Package query turns untrusted request parameters into structured, validated
// read specifications: filters, projections and page windows.
package query

import (
	"fmt"
	"strings"

	"entityapi/internal/model"
)

// DefaultFilterText is used when no query parameter is supplied.
const DefaultFilterText = "{}"

// Filter operators accepted inside a field's operator document.
const (
	OpEq     = "$eq"
	OpNe     = "$ne"
	OpGt     = "$gt"
	OpGte    = "$gte"
	OpLt     = "$lt"
	OpLte    = "$lte"
	OpIn     = "$in"
	OpNin    = "$nin"
	OpExists = "$exists"
)

// Logical operators accepted at the top level of a filter.
const (
	OpAnd = "$and"
	OpOr  = "$or"
	OpNor = "$nor"
)

var fieldOperators = map[string]bool{
	OpEq: true, OpNe: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNin: true,
	OpExists: true,
}

var logicalOperators = map[string]bool{
	OpAnd: true, OpOr: true, OpNor: true,
}

// IsLogicalOperator reports whether key is $and, $or or $nor.
func IsLogicalOperator(key string) bool { return logicalOperators[key] }

// ParseFilter parses the query parameter as a JSON object and validates it
// against the supported operator vocabulary. The text is only ever decoded
// as data.
func ParseFilter(text string) (model.Filter, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultFilterText
	}

	doc, err := model.DecodeDocument(strings.NewReader(text))
	if err != nil {
		return nil, &QueryParseError{Param: ParamQuery, Reason: "malformed JSON object", Err: err}
	}
	if err := validateFilter(doc); err != nil {
		return nil, &QueryParseError{Param: ParamQuery, Reason: err.Error()}
	}
	return doc, nil
}

func validateFilter(f model.Document) error {
	for key, val := range f {
		if strings.HasPrefix(key, "$") {
			if !logicalOperators[key] {
				return fmt.Errorf("operator %q is not allowed", key)
			}
			if err := validateClauses(key, val); err != nil {
				return err
			}
			continue
		}
		if err := ValidateFieldPath(key); err != nil {
			return err
		}
		if err := validateCondition(key, val); err != nil {
			return err
		}
	}
	return nil
}

func validateClauses(op string, val model.Value) error {
	if val.Kind() != model.KindArray || len(val.Items()) == 0 {
		return fmt.Errorf("%s requires a non-empty array of filters", op)
	}
	for _, clause := range val.Items() {
		if clause.Kind() != model.KindObject {
			return fmt.Errorf("%s requires a non-empty array of filters", op)
		}
		if err := validateFilter(clause.Object()); err != nil {
			return err
		}
	}
	return nil
}

// IsOperatorDocument reports whether v is an object whose keys are operators.
func IsOperatorDocument(v model.Value) bool {
	if v.Kind() != model.KindObject {
		return false
	}
	for k := range v.Object() {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func validateCondition(field string, val model.Value) error {
	if !IsOperatorDocument(val) {
		return validateLiteral(field, val)
	}
	for op, arg := range val.Object() {
		if !strings.HasPrefix(op, "$") {
			return fmt.Errorf("field %q mixes operators and plain keys", field)
		}
		if !fieldOperators[op] {
			return fmt.Errorf("operator %q is not allowed", op)
		}
		switch op {
		case OpIn, OpNin:
			if arg.Kind() != model.KindArray {
				return fmt.Errorf("%s on field %q requires an array", op, field)
			}
			for _, item := range arg.Items() {
				if err := validateLiteral(field, item); err != nil {
					return err
				}
			}
		case OpExists:
			if arg.Kind() != model.KindBool {
				return fmt.Errorf("%s on field %q requires a boolean", op, field)
			}
		default:
			if err := validateLiteral(field, arg); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateLiteral(field string, v model.Value) error {
	switch v.Kind() {
	case model.KindArray:
		for _, item := range v.Items() {
			if err := validateLiteral(field, item); err != nil {
				return err
			}
		}
	case model.KindObject:
		for k, item := range v.Object() {
			if strings.HasPrefix(k, "$") {
				return fmt.Errorf("operator %q is not allowed inside the value of field %q", k, field)
			}
			if err := validateLiteral(field, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateFieldPath checks that path is a usable dotted field name.
func ValidateFieldPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty field name")
	}
	if strings.HasPrefix(path, "$") {
		return fmt.Errorf("field name %q must not start with '$'", path)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("field name %q contains a NUL byte", path)
	}
	for _, seg := range model.SplitPath(path) {
		if seg == "" {
			return fmt.Errorf("field name %q has an empty path segment", path)
		}
	}
	return nil
}
