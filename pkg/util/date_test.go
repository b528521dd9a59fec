package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5"} {
		if _, ok := ParseTime(s); ok {
			t.Fatalf("expected failure for %q", s)
		}
	}
}

func TestParseDateInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got, err := ParseDate("2024-02-29", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseDateRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "2024-02-30", "29.02.2024", "2024-2-1"} {
		if _, err := ParseDate(s, time.UTC); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 10); got != 10 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("x", 10); got != 10 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("25", 10); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
}
