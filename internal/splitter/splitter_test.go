package splitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/model"
)

type fakeTagWriter struct {
	written map[string]int
}

func (f *fakeTagWriter) WriteBPM(path string, bpm *int) error {
	if f.written == nil {
		f.written = map[string]int{}
	}
	if bpm != nil {
		f.written[path] = *bpm
	}
	return nil
}

func (f *fakeTagWriter) ReadBPM(path string) (*int, error) {
	v, ok := f.written[path]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func writeFile(t *testing.T, dir, name string, frames int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := audioio.OpenWrite(path, 1000, 1, model.Float)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	data := make([]float64, frames)
	for i := range data {
		data[i] = float64(i)
	}
	if err := w.WriteBlock(audioio.Block{Frames: frames, Channels: 1, Data: data}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func intp(v int) *int { return &v }

func TestSplitCreatesSectionDirsAndRemovesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "01_Mix.wav", 100)

	sections := []model.SectionInfo{
		{SectionNumber: 1, StartSample: 0, EndSample: 40, BPM: intp(120), SectionType: model.SectionSong},
		{SectionNumber: 2, StartSample: 40, EndSample: 100, SectionType: model.SectionSpeaking},
	}
	tw := &fakeTagWriter{}

	var warnings []string
	err := Split([]string{path}, sections, dir, tw, func(component, p, message string) {
		warnings = append(warnings, message)
	})
	if err != nil {
		t.Fatalf("Split: %v", len(warnings))
	}

	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatal("original file should have been removed after successful split")
	}

	sec1 := filepath.Join(dir, "section_01", "01_Mix.wav")
	sec2 := filepath.Join(dir, "section_02", "01_Mix.wav")
	for _, p := range []string{sec1, sec2} {
		if _, statErr := os.Stat(p); statErr != nil {
			t.Fatalf("expected section file %s to exist: %v", p, statErr)
		}
	}

	info1, err := audioio.Probe(sec1)
	if err != nil {
		t.Fatalf("Probe sec1: %v", err)
	}
	if info1.FrameCount != 40 {
		t.Fatalf("section 1 frame count = %d, want 40", info1.FrameCount)
	}
	info2, err := audioio.Probe(sec2)
	if err != nil {
		t.Fatalf("Probe sec2: %v", err)
	}
	if info2.FrameCount != 60 {
		t.Fatalf("section 2 frame count = %d, want 60", info2.FrameCount)
	}

	if tw.written[sec1] != 120 {
		t.Fatalf("expected BPM 120 tagged on section 1, got %v", tw.written[sec1])
	}
	if _, tagged := tw.written[sec2]; tagged {
		t.Fatal("speaking section should not receive a BPM tag")
	}
}

func TestSplitNoopsWhenNoSections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "01_Mix.wav", 10)
	tw := &fakeTagWriter{}
	if err := Split([]string{path}, nil, dir, tw, nil); err != nil {
		t.Fatalf("Split with no sections should be a no-op: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatal("original file should remain when there are no sections")
	}
}
