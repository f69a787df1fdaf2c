package period

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-01", "2025-01", false},
		{"2025-12", "2025-12", false},
		{"202501", "2025-01", false},
		{"202512", "2025-12", false},
		{"2025-13", "", true},
		{"202513", "", true},
		{"2025-00", "", true},
		{"2025-1", "", true},
		{"25-01", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompactExpandRoundTrip(t *testing.T) {
	keys := []string{"2024-01", "2024-02", "2024-09", "2024-10", "2024-12", "1999-06"}

	for _, key := range keys {
		compact, err := Compact(key)
		if err != nil {
			t.Fatalf("Compact(%q): %v", key, err)
		}
		if len(compact) != 6 {
			t.Errorf("Compact(%q) = %q, want 6 characters", key, compact)
		}
		back, err := Expand(compact)
		if err != nil {
			t.Fatalf("Expand(%q): %v", compact, err)
		}
		if back != key {
			t.Errorf("round trip %q -> %q -> %q", key, compact, back)
		}
	}
}

func TestCompactRejectsCompactInput(t *testing.T) {
	if _, err := Compact("202501"); err == nil {
		t.Error("Compact should reject already-compact input")
	}
	if _, err := Expand("2025-01"); err == nil {
		t.Error("Expand should reject canonical input")
	}
}

func TestBounds(t *testing.T) {
	start, end, err := Bounds("2025-02")
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	wantStart := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	wantEnd := time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC)
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}

	// Leap year February.
	_, end, err = Bounds("2024-02")
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if end.Day() != 29 {
		t.Errorf("2024-02 should end on the 29th, got %d", end.Day())
	}

	// Compact input also accepted.
	start, _, err = Bounds("202412")
	if err != nil {
		t.Fatalf("Bounds compact: %v", err)
	}
	if start.Month() != time.December {
		t.Errorf("expected December, got %v", start.Month())
	}
}

func TestFromTime(t *testing.T) {
	got := FromTime(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	if got != "2025-03" {
		t.Errorf("FromTime = %q, want 2025-03", got)
	}
}
