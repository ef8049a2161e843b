package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/transcript"
)

// ErrNotFound is returned when a catalog entry or transcript does not exist.
var ErrNotFound = errors.New("not found")

const catalogFile = "catalog.json"

// FileStore persists transcript records and the video catalog as JSON files
// under a data directory. Records are written fully in memory first, then
// published with a temp-file rename, so a reader never observes a
// half-written file. Catalog updates are read-modify-write over the whole
// list and are serialized by the store's mutex; the store is the single
// synchronization point for concurrent pipeline completions.
type FileStore struct {
	dir string
	mu  sync.Mutex
	log zerolog.Logger
}

// New creates a FileStore rooted at dir, creating it if needed.
func New(dir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "transcripts"), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log.With().Str("component", "store").Logger()}, nil
}

// Dir returns the store's data directory.
func (s *FileStore) Dir() string { return s.dir }

// SaveTranscript serializes the record and writes it atomically. The file
// name combines the video's basename (for humans browsing the directory)
// with the catalog id, so two videos sharing a basename never collide on
// one transcript file. The returned path identifies the record for
// LoadTranscript.
func (s *FileStore) SaveTranscript(rec *transcript.Record, id, name string) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	path := filepath.Join(s.dir, "transcripts", fmt.Sprintf("%s_%s_transcription.json", base, id))
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	s.log.Debug().Str("path", path).Int("segments", len(rec.Segments)).Msg("transcript saved")
	return path, nil
}

// LoadTranscript reads a transcript record, tolerating the legacy flat-map
// segment encoding.
func (s *FileStore) LoadTranscript(path string) (*transcript.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var rec transcript.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	return &rec, nil
}

// DeleteTranscript removes a persisted transcript file. Missing files are
// not an error; deletion is idempotent.
func (s *FileStore) DeleteTranscript(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return nil
}

// AppendToCatalog adds an entry at the front of the catalog
// (most-recently-added-first) and rewrites the catalog file atomically.
func (s *FileStore) AppendToCatalog(entry transcript.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readCatalog()
	if err != nil {
		return err
	}
	entries = append([]transcript.VideoRecord{entry}, entries...)
	return s.writeCatalog(entries)
}

// LoadCatalog returns all catalog entries, most recently added first.
func (s *FileStore) LoadCatalog() ([]transcript.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCatalog()
}

// GetFromCatalog returns the entry with the given id.
func (s *FileStore) GetFromCatalog(id string) (transcript.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readCatalog()
	if err != nil {
		return transcript.VideoRecord{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return transcript.VideoRecord{}, ErrNotFound
}

// RemoveFromCatalog deletes the entry with the given id and returns it, so
// the caller can clean up the files it references.
func (s *FileStore) RemoveFromCatalog(id string) (transcript.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readCatalog()
	if err != nil {
		return transcript.VideoRecord{}, err
	}
	for i, e := range entries {
		if e.ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			if err := s.writeCatalog(entries); err != nil {
				return transcript.VideoRecord{}, err
			}
			return e, nil
		}
	}
	return transcript.VideoRecord{}, ErrNotFound
}

// readCatalog loads the catalog list; a missing file is an empty catalog.
// Callers must hold s.mu.
func (s *FileStore) readCatalog() ([]transcript.VideoRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, catalogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []transcript.VideoRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return entries, nil
}

// writeCatalog rewrites the whole catalog atomically. Callers must hold s.mu.
func (s *FileStore) writeCatalog(entries []transcript.VideoRecord) error {
	if entries == nil {
		entries = []transcript.VideoRecord{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, catalogFile), data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to path via a temp file + rename in the same
// directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vt-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
