package credentials

import "testing"

func TestGenerateOneTimeCode(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
	}{
		{name: "single code", iterations: 1},
		{name: "many codes", iterations: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < tt.iterations; i++ {
				code, err := GenerateOneTimeCode()
				if err != nil {
					t.Fatalf("GenerateOneTimeCode() error = %v", err)
				}
				if len(code) != OneTimeCodeLength {
					t.Fatalf("code length %d, want %d", len(code), OneTimeCodeLength)
				}
				for _, c := range code {
					if c < '0' || c > '9' {
						t.Fatalf("code %q contains non-digit %q", code, c)
					}
				}
			}
		})
	}
}

func TestGenerateOneTimeCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateOneTimeCode()
		if err != nil {
			t.Fatalf("GenerateOneTimeCode() error = %v", err)
		}
		seen[code] = true
	}
	// 20 draws from a million values collide with negligible probability
	if len(seen) < 19 {
		t.Errorf("expected distinct codes, got %d unique out of 20", len(seen))
	}
}
