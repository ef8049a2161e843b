package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// FailurePolicy controls what a chunk failure does to the rest of the run.
type FailurePolicy string

const (
	// PolicyStrict aborts the run on the first chunk failure.
	PolicyStrict FailurePolicy = "strict"
	// PolicyTolerant records the failure as placeholder content and keeps going.
	PolicyTolerant FailurePolicy = "tolerant"
)

// ParsePolicy converts a config string into a FailurePolicy.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(s)) {
	case PolicyStrict:
		return PolicyStrict, nil
	case PolicyTolerant:
		return PolicyTolerant, nil
	}
	return "", fmt.Errorf("unknown chunk failure policy %q", s)
}

// ChunkResult is the outcome of transcribing one chunk. Err is non-nil for
// failed chunks; Segments, Text and Duration are set for successful ones.
type ChunkResult struct {
	Index    int
	Segments []Segment
	Text     string
	Duration float64
	Err      error
}

// Failed reports whether this chunk's transcription failed.
func (r ChunkResult) Failed() bool { return r.Err != nil }

// ChunkError identifies which chunk failed and why.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ChunkedTranscriber drives a transcription client across all chunks of one
// audio payload, strictly sequentially in index order. Ordering matters: the
// aggregator assumes results arrive in chunk order, and the remote service
// enforces per-chunk request bodies.
type ChunkedTranscriber struct {
	client Client
	policy FailurePolicy
	log    zerolog.Logger
}

// NewChunkedTranscriber creates a chunk driver with the given failure policy.
func NewChunkedTranscriber(client Client, policy FailurePolicy, log zerolog.Logger) *ChunkedTranscriber {
	return &ChunkedTranscriber{client: client, policy: policy, log: log}
}

// Transcribe processes chunks one at a time. Under PolicyStrict the first
// failure aborts with a *ChunkError before the next chunk is dispatched.
// Under PolicyTolerant failures are recorded in the result set and
// processing continues. Context cancellation aborts under either policy.
func (t *ChunkedTranscriber) Transcribe(ctx context.Context, chunks []Chunk) ([]ChunkResult, error) {
	results := make([]ChunkResult, 0, len(chunks))

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.log.Debug().
			Int("chunk", chunk.Index).
			Int("bytes", chunk.Size()).
			Msg("transcribing chunk")

		resp, err := t.client.Transcribe(ctx, chunk)
		if err != nil {
			if t.policy == PolicyStrict {
				return nil, &ChunkError{Index: chunk.Index, Err: err}
			}
			t.log.Warn().Err(err).Int("chunk", chunk.Index).Msg("chunk failed, continuing")
			results = append(results, ChunkResult{Index: chunk.Index, Err: err})
			continue
		}

		results = append(results, ChunkResult{
			Index:    chunk.Index,
			Segments: resp.Segments,
			Text:     resp.Text,
			Duration: resp.Duration,
		})
	}

	return results, nil
}
