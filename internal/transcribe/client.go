package transcribe

import "context"

// Client is the interface for speech-to-text backends. One call transcribes
// one bounded audio payload. Implementations must build requests
// idempotently and must not retry on their own.
type Client interface {
	Transcribe(ctx context.Context, chunk Chunk) (*Response, error)
	Name() string  // "groq", "openai"
	Model() string // model identifier for logs
}

// Response is the common transcription result from any backend. Segment
// timestamps are local to the transcribed payload.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
	Segments []Segment
}

// Segment is a timed span of text within one chunk's transcription.
type Segment struct {
	Start float64 // seconds, chunk-local
	End   float64 // seconds, chunk-local
	Text  string
}
