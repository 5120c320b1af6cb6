package backup

import (
	"testing"
	"time"
)

func TestShouldRunAutomatic(t *testing.T) {
	now := time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	testCases := []struct {
		name string
		last *time.Time
		want bool
	}{
		{name: "no previous automatic backup", last: nil, want: true},
		{name: "25 hours ago", last: ago(25 * time.Hour), want: true},
		{name: "exactly one day", last: ago(24 * time.Hour), want: true},
		{name: "10 hours ago", last: ago(10 * time.Hour), want: false},
		{name: "23h59m ago", last: ago(24*time.Hour - time.Minute), want: false},
		{name: "clock moved backwards", last: ago(-2 * time.Hour), want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRunAutomatic(tc.last, now); got != tc.want {
				t.Fatalf("ShouldRunAutomatic() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, time.March, 4, 9, 5, 7, 0, time.UTC)
	if got := FileName(now); got != "recetas_backup_20250304_090507.db" {
		t.Fatalf("FileName() = %q", got)
	}
}
