package report

import "testing"

func TestAddCommas(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.00", "0.00"},
		{"123.45", "123.45"},
		{"1234.50", "1,234.50"},
		{"319906477.62", "319,906,477.62"},
		{"1000000", "1,000,000"},
		{"-9876543.21", "-9,876,543.21"},
	}
	for _, tt := range tests {
		if got := addCommas(tt.in); got != tt.want {
			t.Errorf("addCommas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{319906477.615, "319,906,477.62"},
		{35145.69, "35,145.69"},
		{-1200.5, "-1,200.50"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(0.9987); got != "$0.9987" {
		t.Errorf("FormatPrice = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(-0.14); got != "-0.1400%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatSignedPercent(0.0001); got != "+0.0001%" {
		t.Errorf("FormatSignedPercent = %q", got)
	}
}

func TestFormatRatio(t *testing.T) {
	// Volume 35,145.69 against supply 319,906,477.62 rounds to the smallest
	// displayable ratio rather than zero.
	ratio := 35145.69 / 319906477.62
	if got := FormatRatio(ratio); got != "0.0001" {
		t.Errorf("FormatRatio(%v) = %q, want 0.0001", ratio, got)
	}
}
