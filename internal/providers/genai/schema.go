package genai

import (
	"fmt"
	"strings"

	"hairstudio/internal/domain"
)

type Type string

const (
	TypeObject  Type = "OBJECT"
	TypeArray   Type = "ARRAY"
	TypeString  Type = "STRING"
	TypeNumber  Type = "NUMBER"
	TypeInteger Type = "INTEGER"
	TypeBoolean Type = "BOOLEAN"
)

// Schema is the responseSchema subset understood by the model. The same
// value drives Validate, so the contract sent and the contract checked
// cannot drift.
type Schema struct {
	Type             Type               `json:"type"`
	Description      string             `json:"description,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	Required         []string           `json:"required,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
}

// Object declares an object whose properties are all required, in the
// given order.
func Object(props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.Required = append(s.Required, p.Name)
		s.PropertyOrdering = append(s.PropertyOrdering, p.Name)
	}
	return s
}

// String declares a string with an optional description.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// ArrayOf declares an array of items.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// Describe sets the description and returns s.
func (s *Schema) Describe(description string) *Schema {
	s.Description = description
	return s
}

type Property struct {
	Name   string
	Schema *Schema
}

// Prop pairs a property name with its schema.
func Prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// Validate checks a decoded JSON value (as produced by encoding/json into
// any) against s. Required fields are walked depth first in declaration
// order; the first failure is returned as *domain.SchemaValidationError.
// Strings and arrays must be non-empty.
func Validate(s *Schema, value any) error {
	return validate(s, value, "")
}

func validate(s *Schema, value any, path string) error {
	if s == nil {
		return nil
	}
	if value == nil {
		return fail(path, "missing")
	}
	switch s.Type {
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fail(path, "expected object")
		}
		for _, name := range s.Required {
			child := joinPath(path, name)
			v, present := obj[name]
			if !present || v == nil {
				return fail(child, "missing")
			}
			if err := validate(s.Properties[name], v, child); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return fail(path, "expected array")
		}
		if len(arr) == 0 {
			return fail(path, "empty array")
		}
		for i, item := range arr {
			if err := validate(s.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return fail(path, "expected string")
		}
		if strings.TrimSpace(str) == "" {
			return fail(path, "empty string")
		}
	case TypeNumber, TypeInteger:
		if _, ok := value.(float64); !ok {
			return fail(path, "expected number")
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fail(path, "expected boolean")
		}
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func fail(path, reason string) error {
	return &domain.SchemaValidationError{Path: path, Reason: reason}
}
