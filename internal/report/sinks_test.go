package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleSinkWritesLinesForEachLevel(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	sink.Info("discovery", "scanning", nil)
	sink.Warning("splitter", "partial failure", map[string]any{"file": "a.wav"})
	sink.Error("pipeline", "fatal", nil)

	out := buf.String()
	for _, want := range []string{"scanning", "discovery", "partial failure", "splitter", "fatal", "pipeline"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONSinkWritesNewlineDelimitedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink, err := NewJSONSink(path)
	if err != nil {
		t.Fatalf("NewJSONSink: %v", err)
	}

	sink.Info("discovery", "found files", map[string]any{"count": 3})
	sink.Warning("splitter", "file skipped", nil)

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var lines []jsonLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var l jsonLine
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			t.Fatalf("Unmarshal line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Level != "info" || lines[0].Component != "discovery" || lines[0].Message != "found files" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Level != "warning" || lines[1].Component != "splitter" {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}
