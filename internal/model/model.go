// Package model holds the shared data types that flow between pipeline
// components: audio session parameters, channel/bus configuration, and
// the section list produced by click analysis.
package model

import (
	"encoding/json"
	"fmt"
)

// BitDepth identifies the sample width of a homogeneous input session.
type BitDepth int

const (
	BitDepthUnknown BitDepth = iota
	Int16
	Int24
	Float32
)

func (b BitDepth) String() string {
	switch b {
	case Int16:
		return "INT16"
	case Int24:
		return "INT24"
	case Float32:
		return "FLOAT32"
	default:
		return "UNKNOWN"
	}
}

// Subtype is the on-wire WAV sample encoding a converter or writer targets.
type Subtype int

const (
	SubtypeUnknown Subtype = iota
	PCM16
	PCM24
	Float
)

func (s Subtype) String() string {
	switch s {
	case PCM16:
		return "PCM_16"
	case PCM24:
		return "PCM_24"
	case Float:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

// AudioParameters are established once from the first input file; every
// subsequent file in the session must match exactly.
type AudioParameters struct {
	SampleRate   int      `json:"sampleRate"`
	ChannelCount int      `json:"channelCount"`
	BitDepth     BitDepth `json:"bitDepth"`
}

func (p AudioParameters) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", p.SampleRate, p.ChannelCount, p.BitDepth)
}

// InputFile is one sequentially numbered recording in the session.
type InputFile struct {
	Path      string
	NumericKey float64 // first decimal integer in the stem; +Inf if absent
	Stem      string
}

// ChannelAction says what the pipeline does with one source channel.
type ChannelAction int

const (
	ActionProcess ChannelAction = iota
	ActionBus
	ActionSkip
	ActionClick
)

func (a ChannelAction) String() string {
	switch a {
	case ActionProcess:
		return "PROCESS"
	case ActionBus:
		return "BUS"
	case ActionSkip:
		return "SKIP"
	case ActionClick:
		return "CLICK"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders a ChannelAction as its plan-file keyword.
func (a ChannelAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the plan-file action keywords.
func (a *ChannelAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "PROCESS":
		*a = ActionProcess
	case "BUS":
		*a = ActionBus
	case "SKIP":
		*a = ActionSkip
	case "CLICK":
		*a = ActionClick
	default:
		return fmt.Errorf("unknown channel action %q", s)
	}
	return nil
}

// ChannelConfig describes what to do with one source channel number.
type ChannelConfig struct {
	ChannelNumber  int           `json:"channelNumber"`
	DisplayName    string        `json:"displayName"`
	Action         ChannelAction `json:"action"`
	OutputChannel  int           `json:"outputChannel,omitempty"`
}

// BusType is the only bus flavor supported.
type BusType int

const (
	BusUnknown BusType = iota
	BusStereo
)

func (t BusType) String() string {
	if t == BusStereo {
		return "STEREO"
	}
	return "UNKNOWN"
}

// MarshalJSON renders a BusType as its plan-file keyword.
func (t BusType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the plan-file bus-type keywords.
func (t *BusType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != "STEREO" {
		return fmt.Errorf("unknown bus type %q", s)
	}
	*t = BusStereo
	return nil
}

// BusSlots maps stereo positions to source channel numbers.
type BusSlots struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// BusConfig describes a synthesized stereo mix.
type BusConfig struct {
	FileName string   `json:"fileName"`
	Type     BusType  `json:"type"`
	Slots    BusSlots `json:"slots"`
}

// SegmentMap maps a channel number to its ordered mono segment files, in
// the same order as the sorted InputFile list: concatenation in that
// order reconstructs the channel's continuous signal sample-exactly.
type SegmentMap map[int][]string

// SectionSplittingConfig is only meaningful with exactly one CLICK channel.
type SectionSplittingConfig struct {
	Enabled                bool    `json:"enabled"`
	GapThresholdSeconds    float64 `json:"gapThresholdSeconds"`
	MinSectionLengthSeconds float64 `json:"minSectionLengthSeconds"`
	BPMChangeThreshold     float64 `json:"bpmChangeThreshold"`
}

// SectionType classifies a detected section.
type SectionType int

const (
	SectionUnknown SectionType = iota
	SectionSong
	SectionSpeaking
)

func (t SectionType) String() string {
	if t == SectionSong {
		return "song"
	}
	return "speaking"
}

// MarshalJSON renders a SectionType as its lowercase keyword.
func (t SectionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the lowercase section-type keywords.
func (t *SectionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "song":
		*t = SectionSong
	case "speaking":
		*t = SectionSpeaking
	default:
		return fmt.Errorf("unknown section type %q", s)
	}
	return nil
}

// SectionInfo is one contiguous, non-overlapping span of the click track
// (and, by construction, of every other final track).
type SectionInfo struct {
	SectionNumber int         `json:"sectionNumber"`
	StartSample   int64       `json:"startSample"`
	EndSample     int64       `json:"endSample"`
	BPM           *int        `json:"bpm,omitempty"`
	SectionType   SectionType `json:"sectionType"`
}

// Plan is the configuration handed to the orchestrator: channel list, bus
// list, and optional section splitting. It is produced by the external
// configuration loader (internal/configio here), never by the core
// pipeline; the loader only decodes it, and the orchestrator validates it
// and fills in missing channels.
type Plan struct {
	Channels         []ChannelConfig        `json:"channels"`
	Buses            []BusConfig            `json:"buses"`
	SectionSplitting SectionSplittingConfig `json:"sectionSplitting"`
}
