package configio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cblack34/channelweaver/internal/model"
)

func TestLoadPlanDecodesChannelsAndBuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	raw := `{
		"channels": [
			{"channelNumber": 1, "displayName": "Kick", "action": "PROCESS", "outputChannel": 1},
			{"channelNumber": 2, "displayName": "Click", "action": "CLICK"}
		],
		"buses": [
			{"fileName": "Mix.wav", "type": "STEREO", "slots": {"left": 1, "right": 2}}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if len(plan.Channels) != 2 || len(plan.Buses) != 1 {
		t.Fatalf("unexpected plan shape: %+v", plan)
	}
	if plan.Channels[0].DisplayName != "Kick" || plan.Channels[0].Action != model.ActionProcess {
		t.Fatalf("unexpected first channel: %+v", plan.Channels[0])
	}
	if plan.Buses[0].FileName != "Mix.wav" {
		t.Fatalf("unexpected bus: %+v", plan.Buses[0])
	}
}

func TestLoadPlanRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	raw := `{"channels": [{"channelNumber": 1, "bogusField": true}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("LoadPlan should reject an unknown field")
	}
}

func TestWriteSessionJSONRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	bpm := 120
	sections := []model.SectionInfo{
		{SectionNumber: 1, StartSample: 0, EndSample: 100, BPM: &bpm, SectionType: model.SectionSong},
	}
	meta := SessionMeta{
		InputDir:   "/in",
		OutputDir:  "/out",
		SampleRate: 48000,
		StartedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
	}

	if err := WriteSessionJSON(path, sections, meta); err != nil {
		t.Fatalf("WriteSessionJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Meta.SampleRate != 48000 || doc.Meta.InputDir != "/in" {
		t.Fatalf("unexpected meta: %+v", doc.Meta)
	}
	if len(doc.Sections) != 1 || *doc.Sections[0].BPM != 120 {
		t.Fatalf("unexpected sections: %+v", doc.Sections)
	}
}
