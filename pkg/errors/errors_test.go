package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "no cause",
			err:  New(ErrCodeMarkupSyntax, "unbalanced parentheses in %q", ".class(nerve"),
			want: `MARKUP_SYNTAX: unbalanced parentheses in ".class(nerve"`,
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeFileNotFound, errors.New("no such file"), "open source %s", "body.json"),
			want: "FILE_NOT_FOUND: open source body.json: no such file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(ErrCodeFileNotFound, cause, "open source")

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(fmt.Errorf("load: %w", err), cause) {
		t.Error("errors.Is() lost the cause through fmt wrapping")
	}
}

func TestCodeHelpers(t *testing.T) {
	inner := New(ErrCodeUnknownReference, "inner")
	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantMsg  string
	}{
		{"coded", New(ErrCodeInvalidInput, "friendly"), ErrCodeInvalidInput, "friendly"},
		{"outer code wins", Wrap(ErrCodeCyclicReference, inner, "outer"), ErrCodeCyclicReference, "outer"},
		{"through fmt", fmt.Errorf("ctx: %w", inner), ErrCodeUnknownReference, "inner"},
		{"plain", errors.New("plain error"), "", "plain error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %v, want %v", got, tt.wantCode)
			}
			if tt.wantCode != "" && !Is(tt.err, tt.wantCode) {
				t.Errorf("Is(%v) = false, want true", tt.wantCode)
			}
			if Is(tt.err, ErrCodeNoRoute) {
				t.Error("Is(NO_ROUTE) = true, want false")
			}
			if got := UserMessage(tt.err); got != tt.wantMsg {
				t.Errorf("UserMessage() = %v, want %v", got, tt.wantMsg)
			}
		})
	}

	if GetCode(nil) != "" || Is(nil, ErrCodeInvalidInput) {
		t.Error("nil error has a code")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate id", New(ErrCodeDuplicateFeatureID, "x"), true},
		{"cyclic reference", Wrap(ErrCodeCyclicReference, errors.New("cause"), "x"), true},
		{"markup syntax", New(ErrCodeMarkupSyntax, "x"), false},
		{"infeasible", New(ErrCodeRoutingInfeasible, "x"), false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}
