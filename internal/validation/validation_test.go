package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{
			name:    "simple id",
			id:      "demo-family",
			wantErr: false,
		},
		{
			name:    "uuid",
			id:      "3f2b8c1e-6a0d-4a8e-9b37-1f6c2d9e4a10",
			wantErr: false,
		},
		{
			name:    "dotted and namespaced",
			id:      "tenant:group.42_a",
			wantErr: false,
		},
		{
			name:    "empty",
			id:      "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			id:      "   ",
			wantErr: true,
		},
		{
			name:    "leading dash",
			id:      "-abc",
			wantErr: true,
		},
		{
			name:    "slash",
			id:      "a/b",
			wantErr: true,
		},
		{
			name:    "too long",
			id:      strings.Repeat("a", maxIDLength+1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("group", tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOptionalID(t *testing.T) {
	if err := ValidateOptionalID("viewer", ""); err != nil {
		t.Errorf("expected empty viewer to pass, got %v", err)
	}
	err := ValidateOptionalID("viewer", "bad id")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "viewer" {
		t.Errorf("expected field viewer, got %q", verr.Field)
	}
}
