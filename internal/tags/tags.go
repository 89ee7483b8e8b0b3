// Package tags wraps github.com/bogem/id3v2/v2 behind a small abstract
// interface for writing and reading BPM metadata, so the binding stays
// swappable.
package tags

import (
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// Writer is the abstract write/read contract the splitter depends on.
type Writer interface {
	WriteBPM(path string, bpm *int) error
	ReadBPM(path string) (*int, error)
}

// ID3Writer implements Writer on top of ID3v2 TBPM text frames.
type ID3Writer struct{}

// WriteBPM opens path's ID3 tag, sets (or clears) the TBPM frame, and
// saves. A nil bpm removes the frame. Audio samples are never touched.
func (ID3Writer) WriteBPM(path string, bpm *int) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if bpm == nil {
		tag.DeleteFrames(tag.CommonID("BPM"))
	} else {
		tag.AddTextFrame(tag.CommonID("BPM"), tag.DefaultEncoding(), strconv.Itoa(*bpm))
	}
	return tag.Save()
}

// ReadBPM reads back the TBPM frame for verification, returning nil if
// absent or unparsable.
func (ID3Writer) ReadBPM(path string) (*int, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer tag.Close()

	raw := tag.GetTextFrame(tag.CommonID("BPM")).Text
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, nil
	}
	return &n, nil
}
