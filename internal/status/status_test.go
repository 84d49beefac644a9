package status

import (
	"bytes"
	"strings"
	"testing"
)

func TestRowBandStride(t *testing.T) {
	cases := map[int]int{0: 1, 1: 7, 2: 13}
	for idx, want := range cases {
		if got := rowBand(idx); got != want {
			t.Errorf("rowBand(%d) = %d, want %d", idx, got, want)
		}
	}
}

func TestUpdateWritesWithinDeviceBand(t *testing.T) {
	var buf bytes.Buffer
	r := newWithWriter(&buf, 2)
	buf.Reset() // drop the startup reservation, focus on Update's own output

	r.Update(1, Snapshot{
		PlatformID:   0,
		DeviceID:     3,
		ElapsedSecs:  12,
		BatchSize:    1 << 20,
		HashesPerSec: 5000,
		TotalHashes:  60000,
		BestScore:    7,
	})

	out := buf.String()
	if !strings.Contains(out, "\x1b[7;1H") {
		t.Error("expected cursor move to row 7 (device index 1's band start)")
	}
	if !strings.Contains(out, "P0-D3") {
		t.Error("expected device label P0-D3 in output")
	}
	if !strings.Contains(out, "best_score=7") {
		t.Error("expected best_score in output")
	}
}

func TestNewReservesStartupRows(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, 3)
	out := buf.String()
	if !strings.Contains(out, "\x1b[2J") {
		t.Error("expected a full screen clear on startup")
	}
	if strings.Count(out, "\n") < startupRowsPerDevice*3 {
		t.Errorf("expected at least %d reserved newlines, got %d", startupRowsPerDevice*3, strings.Count(out, "\n"))
	}
}
