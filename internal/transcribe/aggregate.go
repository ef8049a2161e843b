package transcribe

import (
	"fmt"
	"strings"

	"github.com/readvideos/vt-engine/internal/transcript"
)

// Aggregate merges per-chunk results into one transcript on a single
// continuous timeline. Each chunk's segment timestamps are chunk-local, so
// they are offset by the cumulative duration of all prior chunks; the result
// reads as one scrubbable transcript spanning the whole audio.
//
// A failed chunk contributes a single zero-duration sentinel segment at the
// current offset describing the failure, preserving an audit trail. The
// offset does not advance past a failed chunk because its true duration is
// unknown.
//
// Pure function: aggregating the same results twice yields identical records.
func Aggregate(results []ChunkResult) *transcript.Record {
	rec := &transcript.Record{}
	var offset float64

	for _, r := range results {
		if r.Failed() {
			rec.Segments = append(rec.Segments, transcript.Segment{
				Start: offset,
				End:   offset,
				Text:  fmt.Sprintf("Error transcribing chunk %d: %v", r.Index, r.Err),
			})
			continue
		}

		for _, s := range r.Segments {
			rec.Segments = append(rec.Segments, transcript.Segment{
				Start: offset + s.Start,
				End:   offset + s.End,
				Text:  strings.TrimSpace(s.Text),
			})
		}
		offset += chunkDuration(r)
	}

	return rec
}

// chunkDuration is the reported audio duration for a successful chunk,
// falling back to the last segment's end time when the backend omits it.
func chunkDuration(r ChunkResult) float64 {
	if r.Duration > 0 {
		return r.Duration
	}
	if n := len(r.Segments); n > 0 {
		return r.Segments[n-1].End
	}
	return 0
}
