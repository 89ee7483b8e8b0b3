// Package splitter splits every final output track into numbered section
// subdirectories and attaches the BPM tag to each song section file.
package splitter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/model"
	"github.com/cblack34/channelweaver/internal/tags"
)

// WarnFunc reports a non-fatal warning (e.g. a metadata write failure).
type WarnFunc func(component, path, message string)

// Split rewrites outputDir so every file in finalFiles is replaced by one
// copy per section under outputDir/section_NN/, then attaches the BPM tag
// to every section file whose SectionInfo.BPM is defined. A per-file
// split failure leaves that file intact and is reported as a warning; the
// whole call fails only if not one file was successfully split.
func Split(finalFiles []string, sections []model.SectionInfo, outputDir string, tagWriter tags.Writer, warn WarnFunc) error {
	if len(sections) == 0 {
		return nil
	}
	pad := 2
	if len(sections) > 99 {
		pad = 3
	}

	for _, s := range sections {
		dir := sectionDir(outputDir, s.SectionNumber, pad)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return chanerr.New(chanerr.SplitFailed, "splitter", dir, "section directory must be creatable", err)
		}
	}

	succeeded := 0
	for _, f := range finalFiles {
		if err := splitOneFile(f, sections, outputDir, pad); err != nil {
			if warn != nil {
				warn("splitter", f, err.Error())
			}
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return chanerr.New(chanerr.SplitFailed, "splitter", outputDir, "no file was successfully split", nil)
	}

	for _, f := range finalFiles {
		base := filepath.Base(f)
		for _, s := range sections {
			if s.BPM == nil {
				continue
			}
			path := filepath.Join(sectionDir(outputDir, s.SectionNumber, pad), base)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := tagWriter.WriteBPM(path, s.BPM); err != nil && warn != nil {
				warn("splitter", path, fmt.Sprintf("metadata write failed: %v", err))
			}
		}
	}

	return nil
}

func sectionDir(outputDir string, sectionNumber, pad int) string {
	return filepath.Join(outputDir, fmt.Sprintf("section_%0*d", pad, sectionNumber))
}

// splitOneFile writes every section of one final file and deletes the
// original only once all sections succeeded.
func splitOneFile(path string, sections []model.SectionInfo, outputDir string, pad int) error {
	info, err := audioio.Probe(path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", path, err)
	}

	base := filepath.Base(path)
	var written []string
	rollback := func() {
		for _, w := range written {
			os.Remove(w)
		}
	}

	for _, s := range sections {
		dest := filepath.Join(sectionDir(outputDir, s.SectionNumber, pad), base)
		if err := writeSection(path, dest, s, info); err != nil {
			rollback()
			return fmt.Errorf("write section %d of %s: %w", s.SectionNumber, base, err)
		}
		written = append(written, dest)
	}

	if err := os.Remove(path); err != nil {
		rollback()
		return fmt.Errorf("remove original %s: %w", path, err)
	}
	return nil
}

func writeSection(srcPath, destPath string, s model.SectionInfo, info audioio.Info) error {
	return audioio.AtomicWrite(destPath, func(tmp string) error {
		reader, err := audioio.OpenRead(srcPath, audioio.DefaultBlockFrames)
		if err != nil {
			return err
		}
		defer reader.Close()

		writer, err := audioio.OpenWrite(tmp, info.SampleRate, info.Channels, info.Subtype)
		if err != nil {
			return err
		}
		defer writer.Abort()

		var pos int64
		for pos < s.EndSample {
			block, err := reader.Next()
			if err != nil {
				return err
			}
			blockStart := pos
			blockEnd := pos + int64(block.Frames)
			pos = blockEnd

			lo := max64(s.StartSample, blockStart) - blockStart
			hi := min64(s.EndSample, blockEnd) - blockStart
			if hi <= lo {
				continue
			}
			frames := int(hi - lo)
			data := block.Data[int(lo)*block.Channels : int(hi)*block.Channels]
			if err := writer.WriteBlock(audioio.Block{Frames: frames, Channels: block.Channels, Data: data}); err != nil {
				return err
			}
		}
		return writer.Close()
	})
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
