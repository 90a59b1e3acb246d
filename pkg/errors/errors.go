package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrValidation is returned when validation fails. Fields maps a location
// (e.g. "vessels[2].prices") to the problem found there.
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	if len(e.Fields) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(e.Problems(), "; "))
}

// Problems returns every field problem as "field: message", sorted by field.
func (e *ErrValidation) Problems() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+e.Fields[k])
	}
	return out
}

// Add records a problem for field. A second problem on the same field is appended.
func (e *ErrValidation) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if prev, ok := e.Fields[field]; ok {
		message = prev + ", " + message
	}
	e.Fields[field] = message
}

// HasProblems reports whether any field problem was recorded.
func (e *ErrValidation) HasProblems() bool {
	return len(e.Fields) > 0
}
