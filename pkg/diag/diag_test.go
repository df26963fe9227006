package diag

import (
	stderrors "errors"
	"testing"

	"github.com/matzehuels/flatmap/pkg/errors"
)

func TestListWarn(t *testing.T) {
	var l List
	l.Warn(errors.ErrCodeUnknownDirective, "s1", "unknown directive %q", "sparkle")
	l.WarnPath(errors.ErrCodeNoRoute, "p1", "no route")

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	got := l.Items()[0]
	if got.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", got.Severity, SeverityWarning)
	}
	if got.Message != `unknown directive "sparkle"` {
		t.Errorf("Message = %q", got.Message)
	}
	if got.ShapeID != "s1" {
		t.Errorf("ShapeID = %q, want s1", got.ShapeID)
	}
	if l.Items()[1].PathID != "p1" {
		t.Errorf("PathID = %q, want p1", l.Items()[1].PathID)
	}
	if !l.HasCode(errors.ErrCodeNoRoute) {
		t.Error("HasCode(NO_ROUTE) = false, want true")
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.Code
		msg  string
	}{
		{"coded", errors.New(errors.ErrCodeMarkupSyntax, "bad token"), errors.ErrCodeMarkupSyntax, "bad token"},
		{"plain", stderrors.New("boom"), errors.ErrCodeInternal, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FromError(tt.err)
			if d.Code != tt.code || d.Message != tt.msg || d.Severity != SeverityError {
				t.Errorf("FromError() = %+v, want code %v message %q", d, tt.code, tt.msg)
			}
		})
	}
}

func TestExtendAndCount(t *testing.T) {
	var a, b List
	a.Warn(errors.ErrCodeDividerOutside, "d1", "outside")
	b.Error(errors.New(errors.ErrCodeMarkupConflict, "region and boundary"), "s2")
	a.Extend(&b)
	a.Extend(nil)

	if a.Count(SeverityWarning) != 1 || a.Count(SeverityError) != 1 {
		t.Errorf("Count = %d warnings, %d errors, want 1 and 1", a.Count(SeverityWarning), a.Count(SeverityError))
	}
	if a.Items()[1].ShapeID != "s2" {
		t.Errorf("ShapeID = %q, want s2", a.Items()[1].ShapeID)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: SeverityWarning, Code: errors.ErrCodeNoRoute, Message: "no route", PathID: "p1"}
	want := "warning NO_ROUTE: no route (path p1)"
	if d.String() != want {
		t.Errorf("String() = %q, want %q", d.String(), want)
	}
}
