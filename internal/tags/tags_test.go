package tags

import (
	"os"
	"path/filepath"
	"testing"
)

func newPlaceholderFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("placeholder audio payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestWriteBPMThenReadBackMatches(t *testing.T) {
	path := newPlaceholderFile(t)
	w := ID3Writer{}

	bpm := 128
	if err := w.WriteBPM(path, &bpm); err != nil {
		t.Fatalf("WriteBPM: %v", err)
	}

	got, err := w.ReadBPM(path)
	if err != nil {
		t.Fatalf("ReadBPM: %v", err)
	}
	if got == nil || *got != 128 {
		t.Fatalf("ReadBPM = %v, want 128", got)
	}
}

func TestWriteBPMNilClearsFrame(t *testing.T) {
	path := newPlaceholderFile(t)
	w := ID3Writer{}

	bpm := 90
	if err := w.WriteBPM(path, &bpm); err != nil {
		t.Fatalf("WriteBPM: %v", err)
	}
	if err := w.WriteBPM(path, nil); err != nil {
		t.Fatalf("WriteBPM(nil): %v", err)
	}

	got, err := w.ReadBPM(path)
	if err != nil {
		t.Fatalf("ReadBPM: %v", err)
	}
	if got != nil {
		t.Fatalf("ReadBPM = %v, want nil after clearing", *got)
	}
}

func TestReadBPMOnUntaggedFileReturnsNil(t *testing.T) {
	path := newPlaceholderFile(t)
	w := ID3Writer{}

	got, err := w.ReadBPM(path)
	if err != nil {
		t.Fatalf("ReadBPM: %v", err)
	}
	if got != nil {
		t.Fatalf("ReadBPM = %v, want nil on untagged file", *got)
	}
}
