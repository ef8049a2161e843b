package pipeline

import (
	"fmt"

	"github.com/readvideos/vt-engine/internal/transcript"
)

// Stage identifies a pipeline phase. A run moves through the stages in
// order and terminates either Complete or Failed(stage, reason).
type Stage string

const (
	StageExtractingAudio Stage = "extracting_audio"
	StageChunking        Stage = "chunking"
	StageTranscribing    Stage = "transcribing"
	StageAggregating     Stage = "aggregating"
	StageSummarizing     Stage = "summarizing"
	StagePersisting      Stage = "persisting"
	StageComplete        Stage = "complete"
)

// StageError is the terminal failure of a run. It names the stage so the
// caller can identify where to resume, and carries the chunk index for
// transcription failures. For persistence failures, Record holds the
// fully aggregated in-memory transcript so the caller can retry the write
// without re-running the whole pipeline.
type StageError struct {
	Stage  Stage
	Chunk  int // -1 when not chunk-related
	Err    error
	Record *transcript.Record // set only for persistence failures
}

func newStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Chunk: -1, Err: err}
}

func (e *StageError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("pipeline failed at %s (chunk %d): %v", e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
