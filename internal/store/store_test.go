package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/transcript"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSaveLoadTranscriptRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec := &transcript.Record{
		Segments: []transcript.Segment{
			{Start: 0, End: 90, Text: "part one"},
			{Start: 90, End: 200, Text: "part two"},
		},
		Summary: "a summary",
		Topics:  "# Main Topics",
	}

	path, err := s.SaveTranscript(rec, "id-1", "meeting.mp4")
	if err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if filepath.Ext(path) != ".json" {
		t.Errorf("transcript path %q is not a .json file", path)
	}

	got, err := s.LoadTranscript(path)
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if got.Summary != rec.Summary || got.Topics != rec.Topics {
		t.Errorf("summary/topics = %q/%q, want %q/%q", got.Summary, got.Topics, rec.Summary, rec.Topics)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(got.Segments))
	}
	for i := range got.Segments {
		if got.Segments[i].Text != rec.Segments[i].Text {
			t.Errorf("segment %d text = %q, want %q", i, got.Segments[i].Text, rec.Segments[i].Text)
		}
	}
}

func TestSaveTranscriptSameBasename(t *testing.T) {
	s := newTestStore(t)
	a := &transcript.Record{Segments: []transcript.Segment{{Start: 0, End: 10, Text: "from the library"}}}
	b := &transcript.Record{Segments: []transcript.Segment{{Start: 0, End: 10, Text: "from the inbox"}}}

	pathA, err := s.SaveTranscript(a, "id-a", "/library/talks/demo.mp4")
	if err != nil {
		t.Fatalf("SaveTranscript a: %v", err)
	}
	pathB, err := s.SaveTranscript(b, "id-b", "/inbox/demo.mp4")
	if err != nil {
		t.Fatalf("SaveTranscript b: %v", err)
	}
	if pathA == pathB {
		t.Fatalf("both videos saved to %q; records would overwrite each other", pathA)
	}

	gotA, err := s.LoadTranscript(pathA)
	if err != nil {
		t.Fatalf("LoadTranscript a: %v", err)
	}
	gotB, err := s.LoadTranscript(pathB)
	if err != nil {
		t.Fatalf("LoadTranscript b: %v", err)
	}
	if gotA.Segments[0].Text != "from the library" {
		t.Errorf("record a text = %q, want %q", gotA.Segments[0].Text, "from the library")
	}
	if gotB.Segments[0].Text != "from the inbox" {
		t.Errorf("record b text = %q, want %q", gotB.Segments[0].Text, "from the inbox")
	}
}

func TestLoadTranscriptLegacyFormat(t *testing.T) {
	s := newTestStore(t)
	legacy := []byte(`{
		"segments": {
			"00:00 - 01:00": "first",
			"01:00 - 02:00": "second"
		},
		"summary": "legacy summary",
		"topics": ""
	}`)
	path := filepath.Join(s.Dir(), "transcripts", "old_transcription.json")
	if err := os.WriteFile(path, legacy, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rec, err := s.LoadTranscript(path)
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(rec.Segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(rec.Segments))
	}
	if rec.Segments[0].Text != "first" || rec.Segments[1].Text != "second" {
		t.Errorf("legacy segments decoded out of order: %+v", rec.Segments)
	}
	if rec.Summary != "legacy summary" {
		t.Errorf("summary = %q, want %q", rec.Summary, "legacy summary")
	}
}

func TestLoadTranscriptMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadTranscript(filepath.Join(s.Dir(), "transcripts", "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCatalogAppendOrder(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		entry := transcript.VideoRecord{
			ID:        fmt.Sprintf("id-%d", i),
			FileName:  fmt.Sprintf("video-%d.mp4", i),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.AppendToCatalog(entry); err != nil {
			t.Fatalf("AppendToCatalog: %v", err)
		}
	}

	entries, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	// Most recently added first
	for i, wantID := range []string{"id-2", "id-1", "id-0"} {
		if entries[i].ID != wantID {
			t.Errorf("entries[%d].ID = %q, want %q", i, entries[i].ID, wantID)
		}
	}
}

func TestCatalogGetAndRemove(t *testing.T) {
	s := newTestStore(t)
	entry := transcript.VideoRecord{ID: "abc", FileName: "v.mp4", TranscriptPath: "/tmp/t.json"}
	if err := s.AppendToCatalog(entry); err != nil {
		t.Fatalf("AppendToCatalog: %v", err)
	}

	got, err := s.GetFromCatalog("abc")
	if err != nil {
		t.Fatalf("GetFromCatalog: %v", err)
	}
	if got.FileName != "v.mp4" {
		t.Errorf("FileName = %q, want v.mp4", got.FileName)
	}

	removed, err := s.RemoveFromCatalog("abc")
	if err != nil {
		t.Fatalf("RemoveFromCatalog: %v", err)
	}
	if removed.TranscriptPath != "/tmp/t.json" {
		t.Errorf("removed.TranscriptPath = %q, want /tmp/t.json", removed.TranscriptPath)
	}

	if _, err := s.GetFromCatalog("abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFromCatalog after remove: err = %v, want ErrNotFound", err)
	}
	if _, err := s.RemoveFromCatalog("abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveFromCatalog: err = %v, want ErrNotFound", err)
	}
}

func TestCatalogConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := transcript.VideoRecord{ID: fmt.Sprintf("id-%d", i)}
			if err := s.AppendToCatalog(entry); err != nil {
				t.Errorf("AppendToCatalog: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(entries) != n {
		t.Errorf("len(entries) = %d, want %d (no lost appends)", len(entries), n)
	}
}

func TestDeleteTranscriptIdempotent(t *testing.T) {
	s := newTestStore(t)
	path, err := s.SaveTranscript(&transcript.Record{}, "id-1", "x.mp4")
	if err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if err := s.DeleteTranscript(path); err != nil {
		t.Fatalf("DeleteTranscript: %v", err)
	}
	if err := s.DeleteTranscript(path); err != nil {
		t.Errorf("second DeleteTranscript: %v", err)
	}
}
