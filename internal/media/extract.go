package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Extractor produces a single audio file from a video file. Implementations
// own codec/container choices; callers treat the output as an opaque audio
// payload.
type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// FFmpegExtractor shells out to ffmpeg to extract a mono AAC/M4A audio track.
type FFmpegExtractor struct {
	binary  string
	tempDir string
	log     zerolog.Logger
}

// NewFFmpegExtractor creates an extractor using the given ffmpeg binary.
// Extracted audio lands in tempDir (os.TempDir() if empty).
func NewFFmpegExtractor(binary, tempDir string, log zerolog.Logger) *FFmpegExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegExtractor{binary: binary, tempDir: tempDir, log: log}
}

// ExtractAudio converts the video's audio track to a mono 16 kHz M4A file
// and returns its path. The caller owns the returned file and should remove
// it when done.
func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("video not readable: %w", err)
	}

	out := filepath.Join(e.tempDir, uuid.NewString()+".m4a")

	cmd := exec.CommandContext(ctx, e.binary,
		"-y", "-i", videoPath,
		"-vn",
		"-ac", "1", "-ar", "16000",
		"-c:a", "aac",
		out,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, tail(output, 512))
	}

	e.log.Debug().Str("video", videoPath).Str("audio", out).Msg("audio extracted")
	return out, nil
}

// tail returns at most n trailing bytes of ffmpeg output; the useful error
// is always at the end.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
