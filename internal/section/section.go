// Package section merges sections shorter than the configured minimum
// and classifies each section as song or speaking.
package section

import (
	"github.com/cblack34/channelweaver/internal/model"
)

// MergeShort merges any section shorter than minSectionLengthSeconds into
// a neighbor: the first section merges forward into the second; every
// other short section merges backward into the previous one. A single
// remaining short section is left alone. Section numbers are reassigned
// 1..M afterward. No samples are ever dropped.
func MergeShort(sections []model.SectionInfo, minSectionLengthSeconds float64, sampleRate int) []model.SectionInfo {
	if len(sections) <= 1 {
		return renumber(sections)
	}

	minLen := int64(minSectionLengthSeconds * float64(sampleRate))
	out := append([]model.SectionInfo{}, sections...)

	for {
		if len(out) <= 1 {
			break
		}
		shortIdx := -1
		for i, s := range out {
			if s.EndSample-s.StartSample < minLen {
				shortIdx = i
				break
			}
		}
		if shortIdx == -1 {
			break
		}

		if shortIdx == 0 {
			out[1].StartSample = out[0].StartSample
			out = append(out[:0], out[1:]...)
		} else {
			out[shortIdx-1].EndSample = out[shortIdx].EndSample
			out = append(out[:shortIdx], out[shortIdx+1:]...)
		}
	}

	return renumber(out)
}

func renumber(sections []model.SectionInfo) []model.SectionInfo {
	for i := range sections {
		sections[i].SectionNumber = i + 1
	}
	return sections
}

// Classify sets SectionType = song iff BPM is defined, else speaking.
func Classify(sections []model.SectionInfo) []model.SectionInfo {
	for i := range sections {
		if sections[i].BPM != nil {
			sections[i].SectionType = model.SectionSong
		} else {
			sections[i].SectionType = model.SectionSpeaking
		}
	}
	return sections
}
