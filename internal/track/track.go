// Package track concatenates per-channel segments into final mono
// tracks, and lock-step interleaves channel pairs into stereo bus
// tracks.
package track

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/convert"
)

var invalidChars = regexp.MustCompile(`[^A-Za-z0-9 _.\-]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// Sanitize replaces every character outside [A-Za-z0-9 _.\-] with "_",
// collapses whitespace runs to a single "_", and trims leading/trailing
// whitespace or dots. Idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	s := invalidChars.ReplaceAllString(name, "_")
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, " \t\r\n.")
	return s
}

// MonoOutputName builds the "NN_Name.wav" output filename for a PROCESS
// or CLICK channel.
func MonoOutputName(outputChannel int, displayName string) string {
	return fmt.Sprintf("%02d_%s.wav", outputChannel, Sanitize(displayName))
}

// BuildMono streams every segment in segments through the adapter and
// appends it to one atomic writer at outputDir/name. Segment boundaries
// contribute no crossfade, padding, or dropout.
func BuildMono(segments []string, outputDir, name string, sampleRate int, conv convert.Converter) (string, int64, error) {
	outPath := filepath.Join(outputDir, name)
	var total int64

	err := audioio.AtomicWrite(outPath, func(tmp string) error {
		w, err := audioio.OpenWrite(tmp, sampleRate, 1, conv.TargetSubtype())
		if err != nil {
			return err
		}
		defer w.Abort()

		for _, seg := range segments {
			n, err := copySegment(w, seg)
			if err != nil {
				return err
			}
			total += n
		}
		return w.Close()
	})
	if err != nil {
		return "", 0, chanerr.New(chanerr.BuildFailed, "track", outPath, "mono track must build from its segments", err)
	}
	return outPath, total, nil
}

func copySegment(w *audioio.Writer, segPath string) (int64, error) {
	r, err := audioio.OpenRead(segPath, audioio.DefaultBlockFrames)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var n int64
	for {
		block, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return n, err
		}
		if err := w.WriteBlock(block); err != nil {
			return n, err
		}
		n += int64(block.Frames)
	}
	return n, nil
}

// BuildStereoBus streams the left and right channels' segments in
// lock-step, column-stacks each matching pair of mono blocks, and writes
// the resulting 2-channel block to one atomic writer at outputDir/name.
// left and right must have equal length and per-index equal frame counts
// (the extractor's invariant); a violation is a programmer error.
func BuildStereoBus(left, right []string, outputDir, name string, sampleRate int, conv convert.Converter) (string, int64, error) {
	if len(left) != len(right) {
		return "", 0, chanerr.New(chanerr.InternalInvariant, "track", name,
			fmt.Sprintf("left/right segment counts must match: %d != %d", len(left), len(right)), nil)
	}

	outPath := filepath.Join(outputDir, name)
	var total int64

	err := audioio.AtomicWrite(outPath, func(tmp string) error {
		w, err := audioio.OpenWrite(tmp, sampleRate, 2, conv.TargetSubtype())
		if err != nil {
			return err
		}
		defer w.Abort()

		for i := range left {
			n, err := interleavePair(w, left[i], right[i])
			if err != nil {
				return err
			}
			total += n
		}
		return w.Close()
	})
	if err != nil {
		return "", 0, chanerr.New(chanerr.BuildFailed, "track", outPath, "stereo bus must build from its segment pairs", err)
	}
	return outPath, total, nil
}

func interleavePair(w *audioio.Writer, leftPath, rightPath string) (int64, error) {
	lr, err := audioio.OpenRead(leftPath, audioio.DefaultBlockFrames)
	if err != nil {
		return 0, err
	}
	defer lr.Close()
	rr, err := audioio.OpenRead(rightPath, audioio.DefaultBlockFrames)
	if err != nil {
		return 0, err
	}
	defer rr.Close()

	var n int64
	for {
		lb, lerr := lr.Next()
		rb, rerr := rr.Next()
		lEOF := errors.Is(lerr, io.EOF)
		rEOF := errors.Is(rerr, io.EOF)
		if lEOF && rEOF {
			break
		}
		if lerr != nil && !lEOF {
			return n, lerr
		}
		if rerr != nil && !rEOF {
			return n, rerr
		}
		if lEOF != rEOF {
			return n, chanerr.New(chanerr.InternalInvariant, "track", leftPath, "left/right segment frame counts must match", nil)
		}

		frames := lb.Frames
		if rb.Frames < frames {
			frames = rb.Frames
		}
		data := make([]float64, frames*2)
		for i := 0; i < frames; i++ {
			data[i*2] = lb.Data[i]
			data[i*2+1] = rb.Data[i]
		}
		if err := w.WriteBlock(audioio.Block{Frames: frames, Channels: 2, Data: data}); err != nil {
			return n, err
		}
		n += int64(frames)
	}
	return n, nil
}
