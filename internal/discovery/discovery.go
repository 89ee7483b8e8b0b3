// Package discovery finds and sorts the session's input files, and
// verifies they share identical audio parameters.
package discovery

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/model"
)

var leadingIntRe = regexp.MustCompile(`\d+`)

// numericKey returns the first decimal integer in stem, or +Inf if the
// stem has none; files without a numeric key sort after numbered ones.
func numericKey(stem string) float64 {
	m := leadingIntRe.FindString(stem)
	if m == "" {
		return math.Inf(1)
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.Inf(1)
	}
	return n
}

// Discover finds every case-insensitively matched .wav file directly
// under dir and returns them sorted by (numericKey, name).
func Discover(dir string) ([]model.InputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, chanerr.New(chanerr.InputInvalid, "discovery", dir, "directory must be readable", err)
	}

	var files []model.InputFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".wav") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		files = append(files, model.InputFile{
			Path:       filepath.Join(dir, name),
			NumericKey: numericKey(stem),
			Stem:       stem,
		})
	}

	if len(files) == 0 {
		return nil, chanerr.New(chanerr.InputInvalid, "discovery", dir, "input set must be non-empty", nil)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].NumericKey != files[j].NumericKey {
			return files[i].NumericKey < files[j].NumericKey
		}
		return files[i].Stem < files[j].Stem
	})
	return files, nil
}

// Validate probes every file in order and confirms all share identical
// audio parameters, returning the parameters established by the first
// file. Any mismatch names the differing attribute and the file.
func Validate(files []model.InputFile) (model.AudioParameters, error) {
	if len(files) == 0 {
		return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", "", "input set must be non-empty", nil)
	}

	first, err := audioio.Probe(files[0].Path)
	if err != nil {
		return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", files[0].Path, "file must be a parsable WAV", err)
	}
	bd, err := bitDepthOf(first.Subtype)
	if err != nil {
		return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", files[0].Path, "subtype must be PCM_16/PCM_24/FLOAT", err)
	}
	params := model.AudioParameters{
		SampleRate:   first.SampleRate,
		ChannelCount: first.Channels,
		BitDepth:     bd,
	}

	for _, f := range files[1:] {
		info, err := audioio.Probe(f.Path)
		if err != nil {
			return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", f.Path, "file must be a parsable WAV", err)
		}
		if info.SampleRate != params.SampleRate {
			return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", f.Path,
				fmt.Sprintf("sample_rate mismatch: expected %d, got %d", params.SampleRate, info.SampleRate), nil)
		}
		if info.Channels != params.ChannelCount {
			return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", f.Path,
				fmt.Sprintf("channel_count mismatch: expected %d, got %d", params.ChannelCount, info.Channels), nil)
		}
		fbd, err := bitDepthOf(info.Subtype)
		if err != nil || fbd != params.BitDepth {
			return model.AudioParameters{}, chanerr.New(chanerr.InputInvalid, "discovery", f.Path,
				fmt.Sprintf("bit_depth mismatch: expected %s, got %s", params.BitDepth, info.Subtype), nil)
		}
	}

	return params, nil
}

func bitDepthOf(s model.Subtype) (model.BitDepth, error) {
	switch s {
	case model.PCM16:
		return model.Int16, nil
	case model.PCM24:
		return model.Int24, nil
	case model.Float:
		return model.Float32, nil
	default:
		return model.BitDepthUnknown, fmt.Errorf("unsupported subtype %s", s)
	}
}
