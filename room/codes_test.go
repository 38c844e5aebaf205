package room

import (
	"strings"
	"testing"
)

func TestGenerateCodeLengthAndAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), codeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Errorf("code %q contains rune %q outside the alphabet", code, r)
			}
		}
	}
}

func TestGenerateCodeExcludesAmbiguousCharacters(t *testing.T) {
	for _, r := range []rune{'0', 'O', '1', 'I'} {
		if strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("alphabet should exclude ambiguous character %q", r)
		}
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected generateCode to produce varying codes across 20 calls")
	}
}
