// Package subtitle inspects SRT subtitle text returned by the transcription
// service before it is burned into a video.
package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CountCues returns the number of non-empty cue blocks in SRT text.
func CountCues(text string) int {
	content := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if content == "" {
		return 0
	}
	blocks := strings.Split(content, "\n\n")
	count := 0
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// Bounds returns the earliest start and latest end timestamp in seconds.
// The boolean result is false when no timing line parsed.
func Bounds(text string) (float64, float64, bool) {
	lines := strings.Split(text, "\n")
	first := math.Inf(1)
	var last float64
	found := false
	for _, line := range lines {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			continue
		}
		if start, err := ParseTimestamp(parts[0]); err == nil {
			if start < first {
				first = start
			}
			found = true
		}
		if end, err := ParseTimestamp(parts[1]); err == nil {
			if end > last {
				last = end
			}
		}
	}
	if !found {
		return 0, 0, false
	}
	return first, last, true
}

// ParseTimestamp converts an SRT timestamp (HH:MM:SS,mmm) to seconds.
// A period is accepted in place of the standard comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Validate checks SRT text for format issues. An empty slice means the text
// is usable for burn-in.
func Validate(text string) []string {
	var issues []string

	cues := CountCues(text)
	if cues == 0 {
		issues = append(issues, "empty_subtitle_text")
		return issues
	}

	first, last, ok := Bounds(text)
	if !ok {
		issues = append(issues, "no_valid_timestamps")
	} else if first > last {
		issues = append(issues, fmt.Sprintf("inverted_timing: first=%.3f last=%.3f", first, last))
	}

	return issues
}
