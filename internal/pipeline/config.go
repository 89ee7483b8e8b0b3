package pipeline

import (
	"fmt"

	"github.com/cblack34/channelweaver/internal/chanerr"
	"github.com/cblack34/channelweaver/internal/model"
)

// resolvedPlan is the plan after auto-fill and validation: every source
// channel 1..N is represented exactly once.
type resolvedPlan struct {
	channels []model.ChannelConfig // indexed by channel number - 1
	buses    []model.BusConfig
}

// resolvePlan fills missing channel indices, validates uniqueness and bus
// references, and rejects inconsistent channel/bus configurations.
func resolvePlan(params model.AudioParameters, plan model.Plan) (resolvedPlan, error) {
	n := params.ChannelCount
	byNumber := make(map[int]model.ChannelConfig, n)

	for _, c := range plan.Channels {
		if c.ChannelNumber < 1 || c.ChannelNumber > n {
			return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", "",
				fmt.Sprintf("channel_number %d out of range 1..%d", c.ChannelNumber, n), nil)
		}
		if _, dup := byNumber[c.ChannelNumber]; dup {
			return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", "",
				fmt.Sprintf("duplicate channel_number %d", c.ChannelNumber), nil)
		}
		byNumber[c.ChannelNumber] = c
	}

	busReferenced := make(map[int]bool)
	for _, b := range plan.Buses {
		if b.Type != model.BusStereo {
			return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", b.FileName, "only STEREO buses are supported", nil)
		}
		if b.Slots.Left == b.Slots.Right {
			return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", b.FileName, "bus left/right must reference different channels", nil)
		}
		for _, ch := range []int{b.Slots.Left, b.Slots.Right} {
			if ch < 1 || ch > n {
				return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", b.FileName,
					fmt.Sprintf("bus references out-of-range channel %d", ch), nil)
			}
			busReferenced[ch] = true
		}
	}

	clickCount := 0
	for ch, cfg := range byNumber {
		if cfg.Action == model.ActionClick {
			clickCount++
		}
		if busReferenced[ch] && (cfg.Action == model.ActionProcess || cfg.Action == model.ActionSkip) {
			return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", cfg.DisplayName,
				fmt.Sprintf("channel %d is referenced by a bus but has action %s", ch, cfg.Action), nil)
		}
	}

	for ch := 1; ch <= n; ch++ {
		cfg, ok := byNumber[ch]
		if ok {
			if cfg.OutputChannel == 0 {
				cfg.OutputChannel = ch
			}
			byNumber[ch] = cfg
			continue
		}
		action := model.ActionProcess
		if busReferenced[ch] {
			action = model.ActionBus
		}
		byNumber[ch] = model.ChannelConfig{
			ChannelNumber: ch,
			DisplayName:   fmt.Sprintf("Channel%02d", ch),
			Action:        action,
			OutputChannel: ch,
		}
	}

	if clickCount > 1 {
		return resolvedPlan{}, chanerr.New(chanerr.ConfigInvalid, "pipeline", "", "at most one channel may be CLICK", nil)
	}

	channels := make([]model.ChannelConfig, 0, n)
	for ch := 1; ch <= n; ch++ {
		channels = append(channels, byNumber[ch])
	}

	return resolvedPlan{channels: channels, buses: plan.Buses}, nil
}

func (p resolvedPlan) clickChannel() (model.ChannelConfig, bool) {
	for _, c := range p.channels {
		if c.Action == model.ActionClick {
			return c, true
		}
	}
	return model.ChannelConfig{}, false
}

func (p resolvedPlan) extractedChannels() []int {
	var out []int
	for _, c := range p.channels {
		if c.Action != model.ActionSkip {
			out = append(out, c.ChannelNumber)
		}
	}
	return out
}
