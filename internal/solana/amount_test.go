package solana

import (
	"testing"
)

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1_500_000_000, 9); got != "1.500000000" {
		t.Errorf("FormatAmount = %q", got)
	}
	if got := FormatAmount(2_000_000_000, 9); got != "2" {
		t.Errorf("FormatAmount whole = %q", got)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1.5", 9)
	if err != nil {
		t.Fatalf("ParseAmount failed: %v", err)
	}
	if got != 1_500_000_000 {
		t.Errorf("ParseAmount = %d, want 1500000000", got)
	}

	got, err = ParseAmount("3", 9)
	if err != nil {
		t.Fatalf("ParseAmount failed: %v", err)
	}
	if got != 3_000_000_000 {
		t.Errorf("ParseAmount whole = %d", got)
	}

	if _, err := ParseAmount("1.0000000001", 9); err == nil {
		t.Error("Expected error for too many decimal places")
	}
	if _, err := ParseAmount("1.2.3", 9); err == nil {
		t.Error("Expected error for malformed amount")
	}
}
