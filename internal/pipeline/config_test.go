package pipeline

import (
	"testing"

	"github.com/cblack34/channelweaver/internal/model"
)

func TestResolvePlanAutoFillsMissingChannels(t *testing.T) {
	params := model.AudioParameters{ChannelCount: 3}
	plan := model.Plan{Channels: []model.ChannelConfig{
		{ChannelNumber: 1, DisplayName: "Kick", Action: model.ActionProcess},
	}}
	resolved, err := resolvePlan(params, plan)
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}
	if len(resolved.channels) != 3 {
		t.Fatalf("expected 3 resolved channels, got %d", len(resolved.channels))
	}
	if resolved.channels[1].Action != model.ActionProcess {
		t.Fatalf("auto-filled channel 2 should default to PROCESS, got %s", resolved.channels[1].Action)
	}
	if resolved.channels[1].OutputChannel != 2 {
		t.Fatalf("auto-filled channel 2 output_channel = %d, want 2", resolved.channels[1].OutputChannel)
	}
}

func TestResolvePlanRejectsDuplicateChannelNumbers(t *testing.T) {
	params := model.AudioParameters{ChannelCount: 2}
	plan := model.Plan{Channels: []model.ChannelConfig{
		{ChannelNumber: 1, Action: model.ActionProcess},
		{ChannelNumber: 1, Action: model.ActionSkip},
	}}
	if _, err := resolvePlan(params, plan); err == nil {
		t.Fatal("resolvePlan should reject duplicate channel numbers")
	}
}

func TestResolvePlanRejectsMultipleClickChannels(t *testing.T) {
	params := model.AudioParameters{ChannelCount: 2}
	plan := model.Plan{Channels: []model.ChannelConfig{
		{ChannelNumber: 1, Action: model.ActionClick},
		{ChannelNumber: 2, Action: model.ActionClick},
	}}
	if _, err := resolvePlan(params, plan); err == nil {
		t.Fatal("resolvePlan should reject more than one CLICK channel")
	}
}

func TestResolvePlanRejectsBusReferencingProcessChannel(t *testing.T) {
	params := model.AudioParameters{ChannelCount: 2}
	plan := model.Plan{
		Channels: []model.ChannelConfig{
			{ChannelNumber: 1, Action: model.ActionProcess},
			{ChannelNumber: 2, Action: model.ActionBus},
		},
		Buses: []model.BusConfig{
			{FileName: "Mix.wav", Type: model.BusStereo, Slots: model.BusSlots{Left: 1, Right: 2}},
		},
	}
	if _, err := resolvePlan(params, plan); err == nil {
		t.Fatal("resolvePlan should reject a bus slot whose channel action is PROCESS")
	}
}

func TestResolvePlanRejectsOutOfRangeBusChannel(t *testing.T) {
	params := model.AudioParameters{ChannelCount: 2}
	plan := model.Plan{
		Buses: []model.BusConfig{
			{FileName: "Mix.wav", Type: model.BusStereo, Slots: model.BusSlots{Left: 1, Right: 5}},
		},
	}
	if _, err := resolvePlan(params, plan); err == nil {
		t.Fatal("resolvePlan should reject a bus referencing an out-of-range channel")
	}
}

func TestResolvePlanAcceptsValidBusOverAutoFilledChannels(t *testing.T) {
	params := model.AudioParameters{ChannelCount: 2}
	plan := model.Plan{
		Buses: []model.BusConfig{
			{FileName: "Mix.wav", Type: model.BusStereo, Slots: model.BusSlots{Left: 1, Right: 2}},
		},
	}
	resolved, err := resolvePlan(params, plan)
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}
	for _, c := range resolved.channels {
		if c.Action != model.ActionBus {
			t.Fatalf("channel %d referenced only by bus should auto-fill to BUS, got %s", c.ChannelNumber, c.Action)
		}
	}
}

func TestExtractedChannelsExcludesSkip(t *testing.T) {
	p := resolvedPlan{channels: []model.ChannelConfig{
		{ChannelNumber: 1, Action: model.ActionProcess},
		{ChannelNumber: 2, Action: model.ActionSkip},
		{ChannelNumber: 3, Action: model.ActionBus},
	}}
	got := p.extractedChannels()
	if len(got) != 2 {
		t.Fatalf("extractedChannels = %v, want 2 entries", got)
	}
}
