package validation

import (
	"errors"
	"testing"
	"time"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "John Doe",
			wantErr: false,
		},
		{
			name:    "single name",
			input:   "John",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "name too short",
			input:   "J",
			wantErr: true,
		},
		{
			name:    "name with hyphen",
			input:   "Mary-Jane",
			wantErr: false,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOneTimeCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "valid code", code: "012345", wantErr: false},
		{name: "surrounding spaces", code: " 123456 ", wantErr: false},
		{name: "too short", code: "12345", wantErr: true},
		{name: "too long", code: "1234567", wantErr: true},
		{name: "letters", code: "12a456", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOneTimeCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOneTimeCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "valid date", input: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "blank", input: "  ", wantErr: true},
		{name: "wrong layout", input: "01/03/2024", wantErr: true},
		{name: "impossible day", input: "2024-02-31", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate("visit_date", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				var vErr ValidationError
				if !errors.As(err, &vErr) || vErr.Field != "visit_date" {
					t.Errorf("expected ValidationError for visit_date, got %v", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, err := ParseOptionalDate("follow_up_date", "")
	if err != nil || got != nil {
		t.Fatalf("ParseOptionalDate(\"\") = %v, %v; want nil, nil", got, err)
	}

	got, err = ParseOptionalDate("follow_up_date", "2025-01-15")
	if err != nil || got == nil || got.Day() != 15 {
		t.Fatalf("ParseOptionalDate() = %v, %v", got, err)
	}

	if _, err := ParseOptionalDate("follow_up_date", "soon"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestValidateOneOf(t *testing.T) {
	if err := ValidateOneOf("status", "active", "active", "resolved"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateOneOf("status", "cured", "active", "resolved")
	if err == nil {
		t.Fatal("expected error for value outside the allowed set")
	}
	if err.Error() != "status: status must be one of active, resolved" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestValidateRequiredAndMaxLength(t *testing.T) {
	if err := ValidateRequired("title", "  "); err == nil {
		t.Error("expected error for blank title")
	}
	if err := ValidateRequired("title", "Blood panel"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateMaxLength("notes", "abcdef", 5); err == nil {
		t.Error("expected error for long notes")
	}
	if err := ValidateMaxLength("notes", "abcde", 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
