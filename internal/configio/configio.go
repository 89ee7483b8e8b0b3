// Package configio is the external configuration-loading and session-
// export collaborator: a thin JSON loader for the channel/bus/section-
// splitting plan, and a JSON writer for the final session summary.
// internal/pipeline never imports this package; only main.go does,
// keeping the core independent of any one config file format.
package configio

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cblack34/channelweaver/internal/model"
)

// LoadPlan decodes a channel/bus/section-splitting plan from a JSON file.
func LoadPlan(path string) (model.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Plan{}, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var plan model.Plan
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&plan); err != nil {
		return model.Plan{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return plan, nil
}

// SessionMeta is the session-level metadata attached to a session JSON
// export, alongside the final section list.
type SessionMeta struct {
	InputDir   string    `json:"inputDir"`
	OutputDir  string    `json:"outputDir"`
	SampleRate int       `json:"sampleRate"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

type sessionDocument struct {
	Meta     SessionMeta          `json:"meta"`
	Sections []model.SectionInfo `json:"sections"`
}

// WriteSessionJSON writes the final section list plus session metadata.
// The core's only commitment is that sections here matches what the
// splitter actually used.
func WriteSessionJSON(path string, sections []model.SectionInfo, meta SessionMeta) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session json %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sessionDocument{Meta: meta, Sections: sections})
}
