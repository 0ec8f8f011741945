package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRecoveryKey_FormatParse_RoundTrip(t *testing.T) {
	key, err := GenerateRecoveryKey()
	if err != nil {
		t.Fatalf("GenerateRecoveryKey() error = %v", err)
	}

	display := FormatRecoveryKey(key)
	if !strings.Contains(display, "-") {
		t.Error("display form has no group separators")
	}

	parsed, err := ParseRecoveryKey(display)
	if err != nil {
		t.Fatalf("ParseRecoveryKey() error = %v", err)
	}
	if !bytes.Equal(parsed, key) {
		t.Error("parsed key does not match original")
	}
}

func TestParseRecoveryKey_Tolerant(t *testing.T) {
	key, err := GenerateRecoveryKey()
	if err != nil {
		t.Fatal(err)
	}
	display := FormatRecoveryKey(key)

	tests := []struct {
		name  string
		input string
	}{
		{"lowercase", strings.ToLower(display)},
		{"no dashes", strings.ReplaceAll(display, "-", "")},
		{"spaces", strings.ReplaceAll(display, "-", " ")},
		{"surrounding whitespace", "  " + display + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseRecoveryKey(tt.input)
			if err != nil {
				t.Fatalf("ParseRecoveryKey() error = %v", err)
			}
			if !bytes.Equal(parsed, key) {
				t.Error("parsed key does not match original")
			}
		})
	}
}

func TestParseRecoveryKey_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not a recovery key at all 1189"},
		{"truncated", "ABCD-EFGH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecoveryKey(tt.input); !errors.Is(err, ErrInvalidRecoveryKey) {
				t.Errorf("expected ErrInvalidRecoveryKey, got %v", err)
			}
		})
	}
}

func TestGenerateRecoveryKey_Unique(t *testing.T) {
	a, err := GenerateRecoveryKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateRecoveryKey()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("two generated recovery keys are identical")
	}
}
