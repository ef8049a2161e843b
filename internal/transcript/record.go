package transcript

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Segment is a timed span of spoken text on the transcript's global timeline.
type Segment struct {
	Start float64 // seconds
	End   float64 // seconds
	Text  string
}

// Record holds everything persisted for one video's transcript.
// Segments are set at aggregation time; Summary and Topics are attached
// afterwards and may stay empty if summarization fails.
type Record struct {
	Segments []Segment
	Summary  string
	Topics   string
}

// PlainText returns all segment texts joined with spaces. This is the
// input for summary generation.
func (r *Record) PlainText() string {
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// TimestampedText returns a "MM:SS - MM:SS: text" line per segment. This is
// the input for topic generation, where the model needs timestamp ranges.
func (r *Record) TimestampedText() string {
	var b strings.Builder
	for _, s := range r.Segments {
		b.WriteString(FormatRange(s.Start, s.End))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRange renders a start/end pair as "MM:SS - MM:SS".
func FormatRange(start, end float64) string {
	return formatClock(start) + " - " + formatClock(end)
}

func formatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// parseClock parses "MM:SS" back into seconds. Minutes may exceed 59 for
// long videos.
func parseClock(s string) (float64, bool) {
	var m, sec int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &m, &sec); err != nil {
		return 0, false
	}
	if m < 0 || sec < 0 || sec > 59 {
		return 0, false
	}
	return float64(m*60 + sec), true
}

// parseRange parses "MM:SS - MM:SS". Returns zeros if the string doesn't
// match; legacy files occasionally carry free-form timestamp keys.
func parseRange(s string) (start, end float64) {
	left, right, ok := strings.Cut(s, "-")
	if !ok {
		if v, ok := parseClock(s); ok {
			return v, v
		}
		return 0, 0
	}
	start, _ = parseClock(left)
	end, _ = parseClock(right)
	return start, end
}

// persistedSegment is the on-disk segment shape.
type persistedSegment struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type persistedRecord struct {
	Segments json.RawMessage `json:"segments"`
	Summary  string          `json:"summary"`
	Topics   string          `json:"topics"`
}

// MarshalJSON writes the current format: an ordered segment array with
// "MM:SS - MM:SS" timestamps.
func (r Record) MarshalJSON() ([]byte, error) {
	segs := make([]persistedSegment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segs = append(segs, persistedSegment{
			Timestamp: FormatRange(s.Start, s.End),
			Text:      s.Text,
		})
	}
	return json.Marshal(struct {
		Segments []persistedSegment `json:"segments"`
		Summary  string             `json:"summary"`
		Topics   string             `json:"topics"`
	}{segs, r.Summary, r.Topics})
}

// UnmarshalJSON reads both the current segment array format and the legacy
// format where segments was a flat timestamp→text mapping. Legacy maps have
// no defined order, so decoded segments are sorted by parsed start time.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw persistedRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Summary = raw.Summary
	r.Topics = raw.Topics
	r.Segments = nil

	if len(raw.Segments) == 0 {
		return nil
	}

	var list []persistedSegment
	if err := json.Unmarshal(raw.Segments, &list); err == nil {
		for _, ps := range list {
			start, end := parseRange(ps.Timestamp)
			r.Segments = append(r.Segments, Segment{Start: start, End: end, Text: ps.Text})
		}
		return nil
	}

	var flat map[string]string
	if err := json.Unmarshal(raw.Segments, &flat); err != nil {
		return fmt.Errorf("segments: not an array or mapping: %w", err)
	}
	for ts, text := range flat {
		start, end := parseRange(ts)
		r.Segments = append(r.Segments, Segment{Start: start, End: end, Text: text})
	}
	sort.SliceStable(r.Segments, func(i, j int) bool {
		return r.Segments[i].Start < r.Segments[j].Start
	})
	return nil
}
