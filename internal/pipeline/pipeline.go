package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/media"
	"github.com/readvideos/vt-engine/internal/metrics"
	"github.com/readvideos/vt-engine/internal/store"
	"github.com/readvideos/vt-engine/internal/summarize"
	"github.com/readvideos/vt-engine/internal/transcribe"
	"github.com/readvideos/vt-engine/internal/transcript"
)

// Ports are the external collaborators a pipeline run depends on. They are
// injected so tests can substitute fakes; the pipeline never reaches for a
// shared instance.
type Ports struct {
	Extractor   media.Extractor
	Transcriber transcribe.Client
	Summarizer  summarize.Summarizer
}

// Options configure per-run behavior.
type Options struct {
	MaxChunkBytes int
	Policy        transcribe.FailurePolicy
}

// Notifier receives a notification for each completed run.
type Notifier interface {
	NotifyCompletion(entry transcript.VideoRecord)
}

// Pipeline turns one video file into a persisted transcript record and
// catalog entry. It is stateless between runs: every Run owns its own
// intermediate state, and concurrent runs share nothing but the store.
type Pipeline struct {
	ports    Ports
	opts     Options
	store    *store.FileStore
	bus      *Bus
	archiver *store.Archiver // nil = archiving disabled
	notifier Notifier        // nil = notifications disabled
	log      zerolog.Logger
}

// New creates a pipeline. bus, archiver and notifier may be nil.
func New(ports Ports, opts Options, st *store.FileStore, bus *Bus, archiver *store.Archiver, notifier Notifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		ports:    ports,
		opts:     opts,
		store:    st,
		bus:      bus,
		archiver: archiver,
		notifier: notifier,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Result is the outcome of a completed run. A run can complete with
// degraded content: ChunkFailures lists tolerant-mode placeholder chunks,
// and SummaryErr/TopicsErr report non-fatal summarization failures that
// left the corresponding field empty.
type Result struct {
	Video         transcript.VideoRecord
	Record        *transcript.Record
	ChunkFailures []int
	SummaryErr    error
	TopicsErr     error
}

// Partial reports whether the run completed with degraded content.
func (r *Result) Partial() bool {
	return len(r.ChunkFailures) > 0 || r.SummaryErr != nil || r.TopicsErr != nil
}

type stagePayload struct {
	Stage    Stage  `json:"stage"`
	FileName string `json:"file_name,omitempty"`
}

// Run executes the full pipeline for one video. On failure it returns a
// *StageError naming the failed stage (and chunk, where applicable).
func (p *Pipeline) Run(ctx context.Context, videoPath string) (*Result, error) {
	entry := transcript.NewVideoRecord(videoPath, "")
	videoID := entry.ID
	fileName := entry.FileName
	log := p.log.With().Str("video_id", videoID).Str("file", fileName).Logger()
	res := &Result{}
	runStart := time.Now()

	log.Info().Msg("pipeline run starting")

	// ExtractingAudio
	p.publishStage(videoID, StageExtractingAudio, fileName)
	stageStart := time.Now()
	audioPath, err := p.ports.Extractor.ExtractAudio(ctx, videoPath)
	if err != nil {
		return nil, p.fail(videoID, newStageError(StageExtractingAudio, err), log)
	}
	metrics.ObserveStage(string(StageExtractingAudio), stageStart)
	defer os.Remove(audioPath)

	// Chunking
	p.publishStage(videoID, StageChunking, fileName)
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, p.fail(videoID, newStageError(StageChunking, err), log)
	}
	chunks := transcribe.SplitAudio(audio, p.opts.MaxChunkBytes)
	log.Info().Int("chunks", len(chunks)).Int("audio_bytes", len(audio)).Msg("audio chunked")

	// Transcribing. Zero chunks (empty audio) is a completed-empty
	// transcript, not an error.
	p.publishStage(videoID, StageTranscribing, fileName)
	stageStart = time.Now()
	ct := transcribe.NewChunkedTranscriber(p.ports.Transcriber, p.opts.Policy, log)
	results, err := ct.Transcribe(ctx, chunks)
	if err != nil {
		se := newStageError(StageTranscribing, err)
		var ce *transcribe.ChunkError
		if errors.As(err, &ce) {
			se.Chunk = ce.Index
		}
		return nil, p.fail(videoID, se, log)
	}
	metrics.ObserveStage(string(StageTranscribing), stageStart)
	for _, r := range results {
		if r.Failed() {
			res.ChunkFailures = append(res.ChunkFailures, r.Index)
			metrics.ChunkFailuresTotal.Inc()
		} else {
			metrics.ChunksTranscribedTotal.Inc()
		}
	}

	// Aggregating
	p.publishStage(videoID, StageAggregating, fileName)
	rec := transcribe.Aggregate(results)

	// Summarizing: best effort. Failures leave the fields empty and are
	// surfaced on the Result, never by aborting the run.
	p.publishStage(videoID, StageSummarizing, fileName)
	stageStart = time.Now()
	p.summarize(ctx, rec, res, log)
	metrics.ObserveStage(string(StageSummarizing), stageStart)

	if err := ctx.Err(); err != nil {
		return nil, p.fail(videoID, newStageError(StageSummarizing, err), log)
	}

	// Persisting
	p.publishStage(videoID, StagePersisting, fileName)
	stageStart = time.Now()
	transcriptPath, err := p.store.SaveTranscript(rec, videoID, videoPath)
	if err != nil {
		se := newStageError(StagePersisting, err)
		se.Record = rec
		return nil, p.fail(videoID, se, log)
	}
	entry.TranscriptPath = transcriptPath
	if err := p.store.AppendToCatalog(entry); err != nil {
		// The written transcript would be unreachable without a catalog
		// entry; remove it so the retry (from the Record on the error)
		// starts clean.
		if derr := p.store.DeleteTranscript(transcriptPath); derr != nil {
			log.Warn().Err(derr).Str("path", transcriptPath).Msg("orphaned transcript not removed")
		}
		se := newStageError(StagePersisting, err)
		se.Record = rec
		return nil, p.fail(videoID, se, log)
	}
	metrics.ObserveStage(string(StagePersisting), stageStart)

	res.Video = entry
	res.Record = rec

	p.archive(ctx, entry, rec, log)
	if p.notifier != nil {
		p.notifier.NotifyCompletion(entry)
	}

	metrics.RunsTotal.WithLabelValues("complete").Inc()
	if p.bus != nil {
		p.bus.Publish("run_complete", videoID, entry)
	}
	log.Info().
		Int("segments", len(rec.Segments)).
		Int("chunk_failures", len(res.ChunkFailures)).
		Bool("partial", res.Partial()).
		Dur("elapsed", time.Since(runStart)).
		Msg("pipeline run complete")

	return res, nil
}

func (p *Pipeline) summarize(ctx context.Context, rec *transcript.Record, res *Result, log zerolog.Logger) {
	if p.ports.Summarizer == nil || len(rec.Segments) == 0 {
		return
	}

	if summary, err := p.ports.Summarizer.Generate(ctx, summarize.TaskSummary, rec.PlainText()); err != nil {
		res.SummaryErr = err
		metrics.SummarizationFailuresTotal.WithLabelValues(string(summarize.TaskSummary)).Inc()
		log.Warn().Err(err).Msg("summary generation failed, leaving field empty")
	} else {
		rec.Summary = summary
	}

	if topics, err := p.ports.Summarizer.Generate(ctx, summarize.TaskTopics, rec.TimestampedText()); err != nil {
		res.TopicsErr = err
		metrics.SummarizationFailuresTotal.WithLabelValues(string(summarize.TaskTopics)).Inc()
		log.Warn().Err(err).Msg("topics generation failed, leaving field empty")
	} else {
		rec.Topics = topics
	}
}

// archive uploads the persisted record to S3 when configured. Best effort:
// the run is already complete by the time this runs.
func (p *Pipeline) archive(ctx context.Context, entry transcript.VideoRecord, rec *transcript.Record, log zerolog.Logger) {
	if p.archiver == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Msg("archive marshal failed")
		return
	}
	if err := p.archiver.Archive(ctx, entry.ID+".json", data); err != nil {
		log.Warn().Err(err).Msg("transcript archive failed")
	}
}

func (p *Pipeline) publishStage(videoID string, stage Stage, fileName string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish("stage", videoID, stagePayload{Stage: stage, FileName: fileName})
}

func (p *Pipeline) fail(videoID string, se *StageError, log zerolog.Logger) error {
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	if p.bus != nil {
		p.bus.Publish("run_failed", videoID, map[string]any{
			"stage": se.Stage,
			"chunk": se.Chunk,
			"error": se.Err.Error(),
		})
	}
	log.Error().Err(se.Err).Str("stage", string(se.Stage)).Int("chunk", se.Chunk).Msg("pipeline run failed")
	return se
}
