package track

import (
	"path/filepath"
	"testing"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/convert"
	"github.com/cblack34/channelweaver/internal/model"
)

func writeSegment(t *testing.T, dir, name string, sampleRate, channels int, data []float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := audioio.OpenWrite(path, sampleRate, channels, model.Float)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if err := w.WriteBlock(audioio.Block{Frames: len(data) / channels, Channels: channels, Data: data}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func readMono(t *testing.T, path string) []float64 {
	t.Helper()
	r, err := audioio.OpenRead(path, 4)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer r.Close()
	var out []float64
	for {
		b, err := r.Next()
		if err != nil {
			break
		}
		out = append(out, b.Data...)
	}
	return out
}

func TestBuildMonoConcatenatesSegmentsInOrder(t *testing.T) {
	dir := t.TempDir()
	seg0 := writeSegment(t, dir, "seg0.wav", 8000, 1, []float64{0.1, 0.2, 0.3})
	seg1 := writeSegment(t, dir, "seg1.wav", 8000, 1, []float64{0.4, 0.5})

	outDir := t.TempDir()
	path, frames, err := BuildMono([]string{seg0, seg1}, outDir, "01_Test.wav", 8000, convert.Float32Converter{})
	if err != nil {
		t.Fatalf("BuildMono: %v", err)
	}
	if frames != 5 {
		t.Fatalf("frames = %d, want 5", frames)
	}
	got := readMono(t, path)
	// Segments and output are 32-bit float WAV, so each sample round-trips
	// through float32 precision.
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	for i := range want {
		want[i] = float64(float32(want[i]))
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBuildStereoBusInterleavesColumns(t *testing.T) {
	dir := t.TempDir()
	left := writeSegment(t, dir, "left.wav", 8000, 1, []float64{1, 2, 3})
	right := writeSegment(t, dir, "right.wav", 8000, 1, []float64{-1, -2, -3})

	outDir := t.TempDir()
	path, frames, err := BuildStereoBus([]string{left}, []string{right}, outDir, "Mix.wav", 8000, convert.Float32Converter{})
	if err != nil {
		t.Fatalf("BuildStereoBus: %v", err)
	}
	if frames != 3 {
		t.Fatalf("frames = %d, want 3", frames)
	}
	got := readMono(t, path) // interleaved L,R,L,R,...
	want := []float64{1, -1, 2, -2, 3, -3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBuildStereoBusRejectsMismatchedSegmentCounts(t *testing.T) {
	dir := t.TempDir()
	left := writeSegment(t, dir, "left.wav", 8000, 1, []float64{1, 2})
	outDir := t.TempDir()
	_, _, err := BuildStereoBus([]string{left, left}, []string{left}, outDir, "Mix.wav", 8000, convert.Float32Converter{})
	if err == nil {
		t.Fatal("BuildStereoBus should reject mismatched left/right segment counts")
	}
}
