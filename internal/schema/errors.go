package schema

import (
	"errors"
	"strings"
)

// ErrMalformed marks a request body that is not a usable JSON:API document.
var ErrMalformed = errors.New("malformed document")

type Source int

const (
	SourceAttribute Source = iota
	SourceParameter
)

// FieldError is a validation failure on one field.
type FieldError struct {
	Field  string
	Detail string
	Source Source
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Detail
}

// Pointer locates the field in the request: a JSON pointer for attributes,
// or the query parameter name for filters.
func (e *FieldError) Pointer() string {
	if e.Source == SourceParameter {
		return "filter[" + e.Field + "]"
	}
	return "/data/attributes/" + e.Field
}

// ValidationErrors collects every field failure of one document.
type ValidationErrors []*FieldError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
