package summarize

import "context"

// Task selects which derived text to generate from a transcript.
type Task string

const (
	TaskSummary Task = "summary"
	TaskTopics  Task = "topics"
)

// Summarizer generates free-text markdown from transcript text. Failures are
// non-fatal to the pipeline; callers degrade to empty fields.
type Summarizer interface {
	Generate(ctx context.Context, task Task, text string) (string, error)
}
