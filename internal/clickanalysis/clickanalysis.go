// Package clickanalysis runs the filter, envelope, novelty, and peak-pick
// signal chain that turns the click track into an ordered list of
// detected onsets, and the gap/tempo-based boundary detection that turns
// onsets into sections.
//
// The analyzer is exposed as a function value rather than tied to the
// orchestrator's concrete type, so the signal-chain implementation can be
// swapped without touching callers.
package clickanalysis

import (
	"errors"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/model"
)

const (
	minOnsetDistanceMS = 150
	envelopeWindowSec  = 0.005
	peakHeightSigma    = 2.0
	peakProminenceSigma = 1.5
	ioiWindowSize      = 12
	minIOIWindow       = 4
)

// Func is the capability the orchestrator depends on: analyze one click
// track and produce its section list.
type Func func(path string, sampleRate int, gapThresholdSeconds, bpmChangeThreshold float64) ([]model.SectionInfo, error)

// Analyze is the default signal-chain implementation.
func Analyze(path string, sampleRate int, gapThresholdSeconds, bpmChangeThreshold float64) ([]model.SectionInfo, error) {
	novelty, totalFrames, err := noveltySignal(path, sampleRate)
	if err != nil {
		return nil, chanerr.New(chanerr.AnalysisFailed, "clickanalysis", path, "signal chain must read the click track", err)
	}

	if totalFrames == 0 {
		return []model.SectionInfo{{SectionNumber: 1, StartSample: 0, EndSample: 0, SectionType: model.SectionSpeaking}}, nil
	}

	minDistance := int(math.Max(1, minOnsetDistanceMS*float64(sampleRate)/1000))
	mean, std := stat.MeanStdDev(novelty, nil)
	height := mean + peakHeightSigma*std
	prominence := peakProminenceSigma * std

	onsets := pickPeaks(novelty, minDistance, height, prominence)
	sections := buildSections(onsets, totalFrames, sampleRate, gapThresholdSeconds, bpmChangeThreshold)
	return sections, nil
}

// noveltySignal streams the click track through the bandpass filter,
// rectified moving-average envelope, and half-wave-rectified first
// difference, returning the novelty series and the track's frame count.
func noveltySignal(path string, sampleRate int) ([]float64, int64, error) {
	reader, err := audioio.OpenRead(path, audioio.DefaultBlockFrames)
	if err != nil {
		return nil, 0, err
	}
	defer reader.Close()

	filter := newBandpass(float64(sampleRate))
	envWindow := int(math.Max(1, envelopeWindowSec*float64(sampleRate)))
	ring := make([]float64, envWindow)
	ringSum := 0.0
	ringPos := 0
	ringFilled := 0

	var novelty []float64
	var prevEnv float64
	havePrev := false
	var totalFrames int64

	for {
		block, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, err
		}
		totalFrames += int64(block.Frames)

		for i := 0; i < block.Frames; i++ {
			x := block.Data[i*block.Channels]
			f := filter.process(x)
			rect := math.Abs(f)

			if ringFilled < envWindow {
				ringSum += rect
				ring[ringPos] = rect
				ringFilled++
			} else {
				ringSum += rect - ring[ringPos]
				ring[ringPos] = rect
			}
			ringPos = (ringPos + 1) % envWindow
			env := ringSum / float64(ringFilled)

			diff := 0.0
			if havePrev {
				diff = env - prevEnv
				if diff < 0 {
					diff = 0
				}
			}
			novelty = append(novelty, diff)
			prevEnv = env
			havePrev = true
		}
	}
	return novelty, totalFrames, nil
}

type candidate struct {
	idx int
	val float64
}

// pickPeaks finds local maxima of novelty subject to a minimum spacing,
// an absolute height floor, and a topographic prominence floor.
func pickPeaks(novelty []float64, minDistance int, height, prominence float64) []int64 {
	var cands []candidate
	for i := 1; i < len(novelty)-1; i++ {
		if novelty[i] >= height && novelty[i] > novelty[i-1] && novelty[i] >= novelty[i+1] {
			cands = append(cands, candidate{i, novelty[i]})
		}
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].val > cands[b].val })

	var accepted []int
	for _, c := range cands {
		tooClose := false
		for _, a := range accepted {
			d := a - c.idx
			if d < 0 {
				d = -d
			}
			if d < minDistance {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		if peakProminence(novelty, c.idx, minDistance) < prominence {
			continue
		}
		accepted = append(accepted, c.idx)
	}

	sort.Ints(accepted)
	out := make([]int64, len(accepted))
	for i, v := range accepted {
		out[i] = int64(v)
	}
	return out
}

func peakProminence(novelty []float64, idx, window int) float64 {
	lo := idx - window
	if lo < 0 {
		lo = 0
	}
	hi := idx + window
	if hi >= len(novelty) {
		hi = len(novelty) - 1
	}
	minV := novelty[idx]
	for i := lo; i <= hi; i++ {
		if novelty[i] < minV {
			minV = novelty[i]
		}
	}
	return novelty[idx] - minV
}

// buildSections turns the sorted onset list into a contiguous section
// list covering [0, totalFrames).
func buildSections(onsets []int64, totalFrames int64, sampleRate int, gapThresholdSeconds, bpmChangeThreshold float64) []model.SectionInfo {
	if len(onsets) < 2 {
		return []model.SectionInfo{{
			SectionNumber: 1,
			StartSample:   0,
			EndSample:     totalFrames,
			SectionType:   model.SectionSpeaking,
		}}
	}

	gapThresholdSamples := int64(gapThresholdSeconds * float64(sampleRate))

	type run struct{ startIdx, endIdx int }
	var runs []run
	runStart := 0
	for k := 0; k < len(onsets)-1; k++ {
		if onsets[k+1]-onsets[k] >= gapThresholdSamples {
			runs = append(runs, run{runStart, k})
			runStart = k + 1
		}
	}
	runs = append(runs, run{runStart, len(onsets) - 1})

	var sections []model.SectionInfo
	prevEnd := int64(0)

	for ri, rn := range runs {
		runOnsets := onsets[rn.startIdx : rn.endIdx+1]
		tempoBounds := tempoBoundaries(runOnsets, sampleRate, bpmChangeThreshold)

		cur := prevEnd
		bounds := append(append([]int64{}, tempoBounds...), onsets[rn.endIdx])
		for _, b := range bounds {
			if b <= cur {
				continue
			}
			bpmVal := medianBPMInRange(onsets, rn.startIdx, rn.endIdx, cur, b, sampleRate)
			sections = append(sections, model.SectionInfo{
				StartSample: cur,
				EndSample:   b,
				BPM:         &bpmVal,
				SectionType: model.SectionSong,
			})
			cur = b
		}
		prevEnd = onsets[rn.endIdx]

		if ri < len(runs)-1 {
			nextStart := onsets[runs[ri+1].startIdx]
			if nextStart > prevEnd {
				sections = append(sections, model.SectionInfo{
					StartSample: prevEnd,
					EndSample:   nextStart,
					SectionType: model.SectionSpeaking,
				})
			}
			prevEnd = nextStart
		}
	}

	if prevEnd < totalFrames {
		sections = append(sections, model.SectionInfo{
			StartSample: prevEnd,
			EndSample:   totalFrames,
			SectionType: model.SectionSpeaking,
		})
	} else if len(sections) > 0 {
		sections[len(sections)-1].EndSample = totalFrames
	}

	for i := range sections {
		sections[i].SectionNumber = i + 1
	}
	return sections
}

// tempoBoundaries scans the sliding windowed-BPM series within one
// continuous onset run and returns the sample positions where the
// estimate changed by at least bpmChangeThreshold.
func tempoBoundaries(runOnsets []int64, sampleRate int, bpmChangeThreshold float64) []int64 {
	n := len(runOnsets)
	if n < 2 {
		return nil
	}
	iois := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		iois[i] = float64(runOnsets[i+1] - runOnsets[i])
	}

	var boundaries []int64
	var prevBPM float64
	havePrev := false

	for i := 0; i < len(iois); i++ {
		lo := i - (ioiWindowSize - 1)
		if lo < 0 {
			lo = 0
		}
		window := iois[lo : i+1]
		if len(window) < minIOIWindow {
			continue
		}
		bpm := bpmFromIOIs(window, sampleRate)
		if havePrev && math.Abs(bpm-prevBPM) >= bpmChangeThreshold {
			boundaries = append(boundaries, runOnsets[lo])
		}
		prevBPM = bpm
		havePrev = true
	}
	return boundaries
}

func bpmFromIOIs(iois []float64, sampleRate int) float64 {
	sorted := append([]float64{}, iois...)
	sort.Float64s(sorted)
	med := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if med <= 0 {
		return 0
	}
	return float64(sampleRate) * 60 / med
}

func medianBPMInRange(onsets []int64, runStart, runEnd int, rangeStart, rangeEnd int64, sampleRate int) int {
	var iois []float64
	for k := runStart; k < runEnd; k++ {
		if onsets[k] >= rangeStart && onsets[k+1] <= rangeEnd {
			iois = append(iois, float64(onsets[k+1]-onsets[k]))
		}
	}
	if len(iois) == 0 {
		for k := runStart; k < runEnd; k++ {
			iois = append(iois, float64(onsets[k+1]-onsets[k]))
		}
	}
	if len(iois) == 0 {
		return 0
	}
	bpm := bpmFromIOIs(iois, sampleRate)
	return int(math.Round(bpm))
}
