// Package pipeline implements the orchestrator that sequences discovery,
// validation, extraction, track building and, when requested, click
// analysis, section processing, and section splitting. It owns the temp
// and output directory lifecycles throughout.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cblack34/channelweaver/internal/audioio"
	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/clickanalysis"
	"github.com/cblack34/channelweaver/internal/convert"
	"github.com/cblack34/channelweaver/internal/discovery"
	"github.com/cblack34/channelweaver/internal/extractor"
	"github.com/cblack34/channelweaver/internal/model"
	"github.com/cblack34/channelweaver/internal/report"
	"github.com/cblack34/channelweaver/internal/section"
	"github.com/cblack34/channelweaver/internal/splitter"
	"github.com/cblack34/channelweaver/internal/store"
	"github.com/cblack34/channelweaver/internal/tags"
	"github.com/cblack34/channelweaver/internal/track"
)

// Options configures one orchestrator run. Sink and Store accept nil and
// degrade to a no-op; a nil Tags or Analyze falls back to tags.ID3Writer
// and clickanalysis.Analyze respectively.
type Options struct {
	InputDir  string
	OutputDir string
	Plan      model.Plan
	KeepTemp  bool

	Sink    report.Sink
	Store   store.RunStore
	Tags    tags.Writer
	Analyze clickanalysis.Func
}

// Result is what a completed run reports back to its caller.
type Result struct {
	OutputDir  string
	TempDir    string
	RunID      string
	SampleRate int
	Sections   []model.SectionInfo
}

// Run executes one end-to-end pipeline invocation.
func Run(ctx context.Context, opts Options) (Result, error) {
	sink := opts.Sink
	if sink == nil {
		sink = report.NopSink{}
	}
	analyze := opts.Analyze
	if analyze == nil {
		analyze = clickanalysis.Analyze
	}
	tagWriter := opts.Tags
	if tagWriter == nil {
		tagWriter = tags.ID3Writer{}
	}

	var runID string
	if opts.Store != nil {
		id, err := opts.Store.BeginRun(opts.InputDir, opts.OutputDir)
		if err != nil {
			sink.Warning("pipeline", "failed to record run start", map[string]any{"error": err.Error()})
		} else {
			runID = id
		}
	}

	result, err := run(ctx, opts, sink, analyze, tagWriter)

	if opts.Store != nil && runID != "" {
		if finishErr := opts.Store.FinishRun(runID, len(result.Sections), err); finishErr != nil {
			sink.Warning("pipeline", "failed to record run finish", map[string]any{"error": finishErr.Error()})
		}
		for _, s := range result.Sections {
			if recErr := opts.Store.RecordSection(runID, s); recErr != nil {
				sink.Warning("pipeline", "failed to record section", map[string]any{"error": recErr.Error()})
			}
		}
	}
	result.RunID = runID
	return result, err
}

func run(ctx context.Context, opts Options, sink report.Sink, analyze clickanalysis.Func, tagWriter tags.Writer) (Result, error) {
	outputDir, err := resolveOutputDir(opts.OutputDir)
	if err != nil {
		return Result{}, chanerr.New(chanerr.BuildFailed, "pipeline", opts.OutputDir, "output directory must be creatable", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, chanerr.New(chanerr.BuildFailed, "pipeline", outputDir, "output directory must be creatable", err)
	}

	tempDir := filepath.Join(outputDir, ".channelweaver-temp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return Result{}, chanerr.New(chanerr.BuildFailed, "pipeline", tempDir, "temp directory must be creatable", err)
	}

	result := Result{OutputDir: outputDir, TempDir: tempDir}

	cleanup := func() {
		if !opts.KeepTemp {
			os.RemoveAll(tempDir)
		}
	}

	sections, sampleRate, runErr := runStages(ctx, opts, outputDir, tempDir, sink, analyze, tagWriter)
	result.Sections = sections
	result.SampleRate = sampleRate
	cleanup()
	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func runStages(ctx context.Context, opts Options, outputDir, tempDir string, sink report.Sink, analyze clickanalysis.Func, tagWriter tags.Writer) ([]model.SectionInfo, int, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, 0, err
	}

	files, err := discovery.Discover(opts.InputDir)
	if err != nil {
		return nil, 0, err
	}
	sink.Info("discovery", fmt.Sprintf("found %d input files", len(files)), nil)

	params, err := discovery.Validate(files)
	if err != nil {
		return nil, 0, err
	}
	sink.Info("discovery", "validated session parameters", map[string]any{"params": params.String()})

	plan, err := resolvePlan(params, opts.Plan)
	if err != nil {
		return nil, params.SampleRate, err
	}
	if opts.Plan.SectionSplitting.Enabled {
		if _, ok := plan.clickChannel(); !ok {
			return nil, params.SampleRate, chanerr.New(chanerr.ConfigInvalid, "pipeline", "",
				"section_splitting is enabled but no channel has action CLICK", nil)
		}
	}

	conv := convert.ForBitDepth(params.BitDepth)

	if err := checkCancel(ctx); err != nil {
		return nil, params.SampleRate, err
	}

	segments, err := extractor.Extract(ctx, files, params, conv, tempDir, plan.extractedChannels(), func(i, total int, path string) {
		sink.Info("extractor", fmt.Sprintf("extracted file %d/%d", i+1, total), map[string]any{"path": path})
	})
	if err != nil {
		return nil, params.SampleRate, err
	}

	if err := checkCancel(ctx); err != nil {
		return nil, params.SampleRate, err
	}

	finalFiles, clickPath, err := buildTracks(plan, segments, outputDir, params.SampleRate, conv, sink)
	if err != nil {
		return nil, params.SampleRate, err
	}

	if !opts.Plan.SectionSplitting.Enabled || clickPath == "" {
		return nil, params.SampleRate, nil
	}

	if err := checkCancel(ctx); err != nil {
		return nil, params.SampleRate, err
	}

	sections, err := analyzeAndSplit(clickPath, params.SampleRate, opts.Plan.SectionSplitting, finalFiles, outputDir, tagWriter, analyze, sink)
	return sections, params.SampleRate, err
}

func buildTracks(plan resolvedPlan, segments model.SegmentMap, outputDir string, sampleRate int, conv convert.Converter, sink report.Sink) ([]string, string, error) {
	var finalFiles []string
	var clickPath string

	for _, c := range plan.channels {
		if c.Action != model.ActionProcess && c.Action != model.ActionClick {
			continue
		}
		name := track.MonoOutputName(c.OutputChannel, c.DisplayName)
		path, frames, err := track.BuildMono(segments[c.ChannelNumber], outputDir, name, sampleRate, conv)
		if err != nil {
			return nil, "", err
		}
		sink.Info("track", fmt.Sprintf("built %s", name), map[string]any{"frames": frames})
		finalFiles = append(finalFiles, path)
		if c.Action == model.ActionClick {
			clickPath = path
		}
	}

	for _, b := range plan.buses {
		name := b.FileName
		if filepath.Ext(name) == "" {
			name += ".wav"
		}
		path, frames, err := track.BuildStereoBus(segments[b.Slots.Left], segments[b.Slots.Right], outputDir, name, sampleRate, conv)
		if err != nil {
			return nil, "", err
		}
		sink.Info("track", fmt.Sprintf("built %s", name), map[string]any{"frames": frames})
		finalFiles = append(finalFiles, path)
	}

	return finalFiles, clickPath, nil
}

func analyzeAndSplit(clickPath string, sampleRate int, cfg model.SectionSplittingConfig, finalFiles []string, outputDir string, tagWriter tags.Writer, analyze clickanalysis.Func, sink report.Sink) ([]model.SectionInfo, error) {
	sections, err := analyze(clickPath, sampleRate, cfg.GapThresholdSeconds, cfg.BPMChangeThreshold)
	if err != nil {
		sink.Warning("clickanalysis", "analysis failed, falling back to a single section", map[string]any{"error": err.Error()})
		info, probeErr := probeFrameCount(clickPath)
		if probeErr != nil {
			info = 0
		}
		sections = []model.SectionInfo{{SectionNumber: 1, StartSample: 0, EndSample: info, SectionType: model.SectionSpeaking}}
	}

	sections = section.MergeShort(sections, cfg.MinSectionLengthSeconds, sampleRate)
	sections = section.Classify(sections)

	sink.Info("section", fmt.Sprintf("detected %d sections", len(sections)), nil)

	if len(sections) == 0 {
		return sections, nil
	}

	if err := splitter.Split(finalFiles, sections, outputDir, tagWriter, func(component, path, message string) {
		sink.Warning(component, message, map[string]any{"path": path})
	}); err != nil {
		sink.Error("splitter", "section splitting failed", map[string]any{"error": err.Error()})
		return sections, err
	}

	return sections, nil
}

func probeFrameCount(path string) (int64, error) {
	info, err := audioio.Probe(path)
	if err != nil {
		return 0, err
	}
	return info.FrameCount, nil
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return chanerr.New(chanerr.Cancelled, "pipeline", "", "cancellation requested", ctx.Err())
	default:
		return nil
	}
}

// resolveOutputDir suffixes _v2, _v3, ... on conflict, up to a bound.
func resolveOutputDir(base string) (string, error) {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base, nil
	}
	for v := 2; v < 1000; v++ {
		candidate := fmt.Sprintf("%s_v%d", base, v)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not find an available output directory name for %s", base)
}
