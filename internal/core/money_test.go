package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"1.500k", 1_500_000},
		{"2tr", 2_000_000},
		{"2TR", 2_000_000},
		{"3,5m", 35_000_000},
		{"50k", 50_000},
		{"50 K", 50_000},
		{" 1 000 000 ", 1_000_000},
		{"1.000.000", 1_000_000},
		{"120,000", 120_000},
		{"42", 42},
		{"k5", 5_000},        // suffix matched anywhere
		{"12 cakes", 12_000}, // stray "k" still multiplies
		{"7xyz", 7},          // trailing garbage ignored
		{"1e3", 1_000},       // exponent like parseFloat
		{"5e-1", 1},          // rounds half away from zero
		{"-5", -5},           // sign kept, callers reject
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"m", 0},
		{"1e99", 0}, // out of range
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.out {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestParseAmountSuffixOrder(t *testing.T) {
	// "m" is checked before "k", so only the "m" token is removed and the
	// leftover "k" stops the number.
	if got := ParseAmount("2km"); got != 2_000_000 {
		t.Fatalf("expected m to win over k, got %d", got)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:           "0 ₫",
		999:         "999 ₫",
		1000:        "1.000 ₫",
		1_500_000:   "1.500.000 ₫",
		-25_000:     "-25.000 ₫",
		123_456_789: "123.456.789 ₫",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%d) = %q, want %q", in, got, want)
		}
	}
}
