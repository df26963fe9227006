package errors

import (
	"strings"
	"testing"
)

func TestValidateFeatureID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "n12", false},
		{"with colon", "UBERON:0001759", false},
		{"with slash", "body/region-1", false},
		{"with dash", "vagus-nerve", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"space", "vagus nerve", true},
		{"tab", "a\tb", true},
		{"control char", "foo\x01bar", true},
		{"paren", "a(b", true},
		{"comma", "a,b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeatureID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFeatureID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidFeatureID) {
				t.Errorf("ValidateFeatureID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidFeatureID)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "body.shapes.json", false},
		{"nested", "sources/body.shapes.json", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../secret.json", true},
		{"backslash", "sources\\body.json", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://maps.example.org/rat", false},
		{"http", "http://localhost/map", false},
		{"empty", "", true},
		{"ftp", "ftp://example.org/map", true},
		{"bare", "example.org/map", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
