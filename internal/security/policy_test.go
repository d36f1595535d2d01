package security

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"all classes present", "Abcdef1!", true},
		{"underscore as symbol", "Abcdef1_", true},
		{"space as symbol", "Abcdef1 ", true},
		{"unicode symbol", "Abcdef1€", true},
		{"too short", "Abc1!de", false},
		{"too long", "A1!" + strings.Repeat("a", 62), false},
		{"exactly 64 runes", "A1!" + strings.Repeat("a", 61), true},
		{"missing uppercase", "abcdef1!", false},
		{"missing lowercase", "ABCDEF1!", false},
		{"missing digit", "Abcdefg!", false},
		{"missing symbol", "Abcdefg1", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tc.password)
			if tc.valid && err != nil {
				t.Errorf("ValidatePasswordStrength(%q) = %v, want nil", tc.password, err)
			}
			if !tc.valid && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("ValidatePasswordStrength(%q) = %v, want ErrWeakPassword", tc.password, err)
			}
		})
	}
}

func TestValidatePasswordStrengthCountsRunes(t *testing.T) {
	// 8 multibyte runes clear the minimum even though the byte count says
	// otherwise for ASCII-minded length checks.
	if err := ValidatePasswordStrength("Aa1!éééé"); err != nil {
		t.Errorf("ValidatePasswordStrength() = %v, want nil", err)
	}
}
