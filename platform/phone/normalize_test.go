package phone

import "testing"

func TestMatchKey(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ten digits", "9876543210", "9876543210"},
		{"with country code", "+919876543210", "9876543210"},
		{"with zero prefix", "09876543210", "9876543210"},
		{"formatted", "(987) 654-3210", "9876543210"},
		{"spaces and dashes", "98 76-54 32.10", "9876543210"},
		{"short number kept as-is", "12345", "12345"},
		{"letters stripped", "ext. 4521", "4521"},
		{"empty", "", ""},
		{"no digits", "n/a", ""},
	}

	for _, tc := range cases {
		if got := MatchKey(tc.input); got != tc.want {
			t.Errorf("%s: MatchKey(%q) = %q, want %q", tc.name, tc.input, got, tc.want)
		}
	}
}

func TestMatchKeySameNumberDifferentFormats(t *testing.T) {
	variants := []string{"+919876543210", "9876543210", "0091 98765 43210", "98765-43210"}
	want := MatchKey(variants[0])
	for _, v := range variants[1:] {
		if got := MatchKey(v); got != want {
			t.Errorf("MatchKey(%q) = %q, want %q (all formats must collapse to one key)", v, got, want)
		}
	}
}

func TestNormalizeE164ReturnsInputWhenUnparseable(t *testing.T) {
	if got := NormalizeE164("  not-a-number  "); got != "not-a-number" {
		t.Fatalf("NormalizeE164 = %q, want trimmed input", got)
	}
	if got := NormalizeE164(""); got != "" {
		t.Fatalf("NormalizeE164 empty = %q, want empty", got)
	}
}
