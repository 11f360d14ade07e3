package handlers

import "testing"

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:00", 0, true},
		{"09:0a", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseClock(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseClock(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(540); got != "09:00" {
		t.Errorf("formatClock(540) = %q", got)
	}
	if got := formatClock(1439); got != "23:59" {
		t.Errorf("formatClock(1439) = %q", got)
	}
}

func TestNormalizeOpenDays(t *testing.T) {
	got, err := normalizeOpenDays([]string{"Mon", " Tue", "Mon", "Sat"})
	if err != nil {
		t.Fatalf("normalizeOpenDays: %v", err)
	}
	want := []string{"Mon", "Tue", "Sat"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if _, err := normalizeOpenDays([]string{"Monday"}); err == nil {
		t.Error("expected error for full weekday name")
	}
	if _, err := normalizeOpenDays(nil); err == nil {
		t.Error("expected error for empty list")
	}
}
