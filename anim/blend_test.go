package anim

import (
	"testing"

	"github.com/mirelat/animview/rig"
)

func twoClipModel(t *testing.T) *rig.Model {
	t.Helper()
	m := chainModel(1)
	addClip(m, "Idle", translationChannel(0,
		rig.Keyframe{Time: 0, Value: [4]float32{0, 0, 0, 0}},
		rig.Keyframe{Time: 1, Value: [4]float32{0, 0, 0, 0}},
	))
	addClip(m, "Run", translationChannel(0,
		rig.Keyframe{Time: 0, Value: [4]float32{1, 0, 0, 0}},
		rig.Keyframe{Time: 2, Value: [4]float32{1, 0, 0, 0}},
	))
	return m
}

func TestSetClip(t *testing.T) {
	m := twoClipModel(t)
	m.Time = 3

	SetClip(m, "Run", true)
	if m.Current != m.ClipByName["Run"] {
		t.Errorf("current=%d; expected the Run clip", m.Current)
	}
	if m.Time != 0 {
		t.Errorf("time=%g; expected rewind to 0", m.Time)
	}
	if !m.Loop {
		t.Error("loop flag not applied")
	}
	if m.Blend != nil {
		t.Error("SetClip left a blend in flight")
	}
}

func TestSetClipUnknownIsNoop(t *testing.T) {
	m := twoClipModel(t)
	m.Time = 0.5

	SetClip(m, "Fly", false)
	if m.Current != 0 || m.Time != 0.5 {
		t.Errorf("current=%d time=%g; expected unknown clip to change nothing", m.Current, m.Time)
	}
}

func TestBlendToClip(t *testing.T) {
	m := twoClipModel(t)

	BlendToClip(m, "Run", 0.5, true)
	if m.Blend == nil {
		t.Fatal("no blend started")
	}
	if m.Blend.From != 0 || m.Blend.To != m.ClipByName["Run"] {
		t.Errorf("blend %d->%d; expected 0->Run", m.Blend.From, m.Blend.To)
	}
	if m.Blend.Duration != 0.5 || m.Blend.Progress != 0 {
		t.Errorf("blend duration=%g progress=%g; expected 0.5/0", m.Blend.Duration, m.Blend.Progress)
	}
	if m.Current != 0 {
		t.Error("source clip changed before the blend committed")
	}
	if !m.Loop {
		t.Error("loop flag for the target clip not applied immediately")
	}
}

func TestBlendToClipOverwritesSlot(t *testing.T) {
	m := twoClipModel(t)
	BlendToClip(m, "Run", 1, false)
	m.Blend.Progress = 0.8

	BlendToClip(m, "Idle", 2, false)
	if m.Blend.To != m.ClipByName["Idle"] || m.Blend.Progress != 0 {
		t.Errorf("blend=%+v; expected a fresh blend toward Idle", m.Blend)
	}
}

func TestBlendToClipZeroDuration(t *testing.T) {
	m := twoClipModel(t)
	m.Time = 0.7

	BlendToClip(m, "Run", 0, false)
	if m.Blend != nil {
		t.Error("zero duration still allocated a blend")
	}
	if m.Current != m.ClipByName["Run"] || m.Time != 0 {
		t.Errorf("current=%d time=%g; expected immediate switch to Run at 0", m.Current, m.Time)
	}
}

func TestAdvanceBlendsCommit(t *testing.T) {
	reg := rig.NewRegistry()
	m := twoClipModel(t)
	reg.Add(m)
	BlendToClip(m, "Run", 1, false)
	m.Time = 0.4

	AdvanceBlends(reg, 0.25)
	if m.Blend == nil || m.Blend.Progress != 0.25 {
		t.Fatalf("blend=%+v; expected progress 0.25", m.Blend)
	}
	if m.Current != 0 {
		t.Error("blend committed early")
	}

	AdvanceBlends(reg, 0.75)
	if m.Blend != nil {
		t.Error("finished blend not cleared")
	}
	if m.Current != m.ClipByName["Run"] {
		t.Errorf("current=%d; expected commit to Run", m.Current)
	}
	if m.Time != 0 {
		t.Errorf("time=%g; expected target clip to restart at 0", m.Time)
	}
}

func TestStop(t *testing.T) {
	m := twoClipModel(t)
	SetClip(m, "Run", true)
	m.Time = 1.2
	BlendToClip(m, "Idle", 1, false)

	Stop(m)
	if m.Time != 0 {
		t.Errorf("time=%g; expected 0", m.Time)
	}
	if m.Blend != nil {
		t.Error("Stop left a blend in flight")
	}
	if m.Current != m.ClipByName["Run"] {
		t.Error("Stop changed the clip selection")
	}
}
