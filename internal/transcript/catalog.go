package transcript

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// VideoRecord is one catalog entry. Immutable after creation except for
// deletion.
type VideoRecord struct {
	ID             string    `json:"id"`
	VideoPath      string    `json:"videoRef"`
	TranscriptPath string    `json:"transcriptRef"`
	FileName       string    `json:"fileName"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewVideoRecord creates a catalog entry for a processed video.
func NewVideoRecord(videoPath, transcriptPath string) VideoRecord {
	return VideoRecord{
		ID:             uuid.NewString(),
		VideoPath:      videoPath,
		TranscriptPath: transcriptPath,
		FileName:       filepath.Base(videoPath),
		CreatedAt:      time.Now().UTC(),
	}
}
