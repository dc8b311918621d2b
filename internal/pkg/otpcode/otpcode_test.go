package otpcode

import (
	"strings"
	"testing"
)

func TestRandomCodeGenerate(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		alphabet   string
		wantLength int
		wantChars  string
	}{
		{
			name:       "configured length and alphabet",
			length:     8,
			alphabet:   "ABCDEF",
			wantLength: 8,
			wantChars:  "ABCDEF",
		},
		{
			name:       "defaults on zero values",
			length:     0,
			alphabet:   "",
			wantLength: DefaultLength,
			wantChars:  DefaultAlphabet,
		},
		{
			name:       "defaults on negative length",
			length:     -3,
			alphabet:   "01",
			wantLength: DefaultLength,
			wantChars:  "01",
		},
		{
			name:       "single character alphabet",
			length:     4,
			alphabet:   "7",
			wantLength: 4,
			wantChars:  "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewRandomCode(tt.length, tt.alphabet)

			for i := 0; i < 50; i++ {
				code, err := gen.Generate()
				if err != nil {
					t.Fatalf("Generate() error = %v", err)
				}
				if len(code) != tt.wantLength {
					t.Fatalf("len(code) = %d, want %d", len(code), tt.wantLength)
				}
				for _, c := range code {
					if !strings.ContainsRune(tt.wantChars, c) {
						t.Fatalf("code %q contains %q outside alphabet %q", code, c, tt.wantChars)
					}
				}
			}
		})
	}
}

func TestRandomCodeCoversAlphabet(t *testing.T) {
	gen := NewRandomCode(6, "01")

	seen := map[byte]bool{}
	for i := 0; i < 100 && len(seen) < 2; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		for j := 0; j < len(code); j++ {
			seen[code[j]] = true
		}
	}

	// 600 draws over two characters miss one with probability 2^-599.
	if !seen['0'] || !seen['1'] {
		t.Errorf("draws never produced both alphabet characters: %v", seen)
	}
}
