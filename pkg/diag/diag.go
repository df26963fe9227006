// Package diag collects the non-fatal problems found while building a map.
//
// Shape-local and path-local failures never abort a build. They are turned
// into [Diagnostic] values and returned next to the output so callers can log
// or display them. Nothing inside the core branches on a diagnostic.
package diag

import (
	stderrors "errors"

	"github.com/matzehuels/flatmap/pkg/errors"
)

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity    `json:"severity"`
	Code     errors.Code `json:"code"`
	Message  string      `json:"message"`
	ShapeID  string      `json:"shape,omitempty"`
	PathID   string      `json:"path,omitempty"`
}

// String renders the diagnostic for log output.
func (d Diagnostic) String() string {
	s := string(d.Severity) + " " + string(d.Code) + ": " + d.Message
	if d.ShapeID != "" {
		s += " (shape " + d.ShapeID + ")"
	}
	if d.PathID != "" {
		s += " (path " + d.PathID + ")"
	}
	return s
}

// List is an ordered collection of diagnostics.
// The zero value is ready to use. A List is not safe for concurrent use;
// parallel stages keep their own lists and concatenate them afterwards.
type List struct {
	items []Diagnostic
}

// Add appends d.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// Warn records a warning against a shape.
func (l *List) Warn(code errors.Code, shapeID, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  errors.New(code, format, args...).Message,
		ShapeID:  shapeID,
	})
}

// WarnPath records a warning against a path.
func (l *List) WarnPath(code errors.Code, pathID, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  errors.New(code, format, args...).Message,
		PathID:   pathID,
	})
}

// Error records a shape-scoped error, typically a markup failure.
func (l *List) Error(err error, shapeID string) {
	d := FromError(err)
	d.ShapeID = shapeID
	l.Add(d)
}

// Extend appends every diagnostic from other, preserving order.
func (l *List) Extend(other *List) {
	if other == nil {
		return
	}
	l.items = append(l.items, other.items...)
}

// Items returns the diagnostics in emission order.
func (l *List) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	return l.items
}

// Len returns the number of diagnostics.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Count returns the number of diagnostics with severity s.
func (l *List) Count(s Severity) int {
	n := 0
	for _, d := range l.Items() {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// HasCode reports whether any diagnostic carries code.
func (l *List) HasCode(code errors.Code) bool {
	for _, d := range l.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// FromError converts err into an error-severity diagnostic.
// Coded errors keep their code and user message; anything else is reported
// as INTERNAL_ERROR.
func FromError(err error) Diagnostic {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return Diagnostic{Severity: SeverityError, Code: e.Code, Message: errors.UserMessage(err)}
	}
	return Diagnostic{Severity: SeverityError, Code: errors.ErrCodeInternal, Message: err.Error()}
}
