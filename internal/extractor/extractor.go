// Package extractor streams a de-interleave of each input file into
// per-channel mono segment files, without ever holding a whole file in
// memory.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/convert"
	"github.com/cblack34/channelweaver/internal/model"
)

// ProgressFunc is called once per input file that finishes extraction.
type ProgressFunc func(fileIndex, total int, path string)

// Extract fans every extracted channel of each input file out to a
// per-channel, per-file segment at temp/ch{ch:02}_{fileIndex:04}.wav, and
// returns the resulting SegmentMap. channels is the set of source channel
// numbers with action != SKIP.
func Extract(ctx context.Context, files []model.InputFile, params model.AudioParameters, conv convert.Converter, tempDir string, channels []int, progress ProgressFunc) (model.SegmentMap, error) {
	segments := make(model.SegmentMap, len(channels))

	for fileIndex, in := range files {
		select {
		case <-ctx.Done():
			return nil, chanerr.New(chanerr.Cancelled, "extractor", in.Path, "cancellation requested between input files", ctx.Err())
		default:
		}

		paths, frameCount, err := extractOneFile(in.Path, fileIndex, params, conv, tempDir, channels)
		if err != nil {
			return nil, err
		}
		for ch, p := range paths {
			segments[ch] = append(segments[ch], p)
		}
		if progress != nil {
			progress(fileIndex, len(files), in.Path)
		}
		_ = frameCount
	}

	return segments, nil
}

func extractOneFile(path string, fileIndex int, params model.AudioParameters, conv convert.Converter, tempDir string, channels []int) (map[int]string, int64, error) {
	reader, err := audioio.OpenRead(path, audioio.DefaultBlockFrames)
	if err != nil {
		return nil, 0, chanerr.New(chanerr.ExtractionFailed, "extractor", path, "input file must open for streaming read", err)
	}
	defer reader.Close()

	writers := make(map[int]*audioio.Writer, len(channels))
	paths := make(map[int]string, len(channels))
	cleanup := func() {
		for _, w := range writers {
			w.Abort()
		}
	}

	for _, ch := range channels {
		segPath := filepath.Join(tempDir, fmt.Sprintf("ch%02d_%04d.wav", ch, fileIndex))
		w, err := audioio.OpenWrite(segPath, params.SampleRate, 1, conv.TargetSubtype())
		if err != nil {
			cleanup()
			return nil, 0, chanerr.New(chanerr.ExtractionFailed, "extractor", segPath, "segment writer must open", err)
		}
		writers[ch] = w
		paths[ch] = segPath
	}

	var frameCount int64
	for {
		block, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			cleanup()
			return nil, 0, chanerr.New(chanerr.ExtractionFailed, "extractor", path, "streaming read must succeed", err)
		}
		frameCount += int64(block.Frames)
		for _, ch := range channels {
			col := block.Col(ch - 1)
			converted := conv.Convert(col)
			if err := writers[ch].WriteBlock(audioio.Block{Frames: block.Frames, Channels: 1, Data: converted}); err != nil {
				cleanup()
				return nil, 0, chanerr.New(chanerr.ExtractionFailed, "extractor", paths[ch], "segment write must succeed", err)
			}
		}
	}

	for ch, w := range writers {
		if err := w.Close(); err != nil {
			for _, seg := range paths {
				os.Remove(seg)
			}
			return nil, 0, chanerr.New(chanerr.ExtractionFailed, "extractor", paths[ch], "segment finalize must succeed", err)
		}
	}

	return paths, frameCount, nil
}
