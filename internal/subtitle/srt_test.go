package subtitle

import (
	"math"
	"testing"
)

const sampleSRT = "1\n00:00:00,000 --> 00:00:01,000\nHello\n\n2\n00:00:01,500 --> 00:00:03,250\nWorld\n"

// TestCountCues verifies cue-block counting across formats.
func TestCountCues(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\n  ", 0},
		{"single cue", "1\n00:00:00,000 --> 00:00:01,000\nHello\n", 1},
		{"two cues", sampleSRT, 2},
		{"crlf line endings", "1\r\n00:00:00,000 --> 00:00:01,000\r\nHello\r\n\r\n2\r\n00:00:02,000 --> 00:00:03,000\r\nBye\r\n", 2},
	}

	for _, tc := range cases {
		if got := CountCues(tc.text); got != tc.want {
			t.Fatalf("%s: CountCues = %d, want %d", tc.name, got, tc.want)
		}
	}
}

// TestParseTimestamp verifies timestamp conversion and error cases.
func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("01:02:03,450")
	if err != nil {
		t.Fatalf("ParseTimestamp error = %v", err)
	}
	want := 3723.45
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("seconds = %v, want %v", got, want)
	}

	if _, err := ParseTimestamp("00:00:01.250"); err != nil {
		t.Fatalf("period separator should parse, error = %v", err)
	}

	for _, bad := range []string{"", "later", "00:01,000", "aa:bb:cc,dd"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("ParseTimestamp(%q) expected error", bad)
		}
	}
}

// TestBounds verifies first/last timing extraction.
func TestBounds(t *testing.T) {
	first, last, ok := Bounds(sampleSRT)
	if !ok {
		t.Fatal("expected timings to parse")
	}
	if first != 0 {
		t.Fatalf("first = %v, want 0", first)
	}
	if last != 3.25 {
		t.Fatalf("last = %v, want 3.25", last)
	}

	if _, _, ok := Bounds("no timings here"); ok {
		t.Fatal("expected ok = false without timing lines")
	}
}

// TestValidate verifies issue reporting for unusable subtitle text.
func TestValidate(t *testing.T) {
	if issues := Validate(sampleSRT); len(issues) != 0 {
		t.Fatalf("valid SRT reported issues: %v", issues)
	}
	if issues := Validate(""); len(issues) == 0 {
		t.Fatal("empty text should report issues")
	}
	if issues := Validate("just some words\n\nmore words"); len(issues) == 0 {
		t.Fatal("text without timestamps should report issues")
	}
}
