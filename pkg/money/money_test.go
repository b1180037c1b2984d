package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAcceptsDisplayAndBareForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1,234", "1234"},
		{"1,234.5", "1234.5"},
		{"1234.50", "1234.5"},
		{" 50,000 ", "50000"},
		{"0", "0"},
		{"-2,500", "-2500"},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Fatalf("Parse(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12a", "1..2"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) succeeded, expected error", in)
		}
	}
}

func TestFormatGroupsThousands(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"50000", "50,000"},
		{"1234567.89", "1,234,567.89"},
		{"1234.5", "1,234.5"},
		{"-1234567", "-1,234,567"},
	}
	for _, tc := range cases {
		d, _ := decimal.NewFromString(tc.in)
		if got := Format(d); got != tc.want {
			t.Fatalf("Format(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatRoundsToTwoPlaces(t *testing.T) {
	d, _ := decimal.NewFromString("10.005")
	if got := Format(d); got != "10.01" {
		t.Fatalf("Format(10.005) = %q, want 10.01", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, in := range []string{"1,234.5", "50,000", "7"} {
		d, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := Format(d); got != in {
			t.Fatalf("round trip %q -> %q", in, got)
		}
	}
}
