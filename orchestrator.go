// Package main - orchestrator.go
//
// This file implements the orchestrator: the fixed-cadence control loop
// that turns captured frames into input actions.
//
// Tick pipeline:
//   1. Observe stop/pause (tick boundaries only, never mid-tick)
//   2. Load the config snapshot, apply the assist override
//   3. Capture a frame (consecutive failures beyond the limit auto-pause)
//   4. Perception: bar reads, throttled OCR, template matches -> Snapshot
//   5. Policies in fixed order: tracker, sequencer, buffs, pots, repair,
//      unstuck, assist, loot, interval slots, auto-target
//   6. Serialized dispatch of the collected actions, at most one action
//      per slot per tick
//   7. Publish the status snapshot
//
// The fixed policy order makes same-tick side effects deterministic: a
// target-changed event from the tracker resets the sequencer before the
// sequencer runs.
//
// Lifecycle: Start, Pause, Resume, Stop, all idempotent. Start fails
// with CalibrationError until a profile exists. No action is ever issued
// after a stop has been observed.
package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Bot owns the control loop and every policy's persistent state.
type Bot struct {
	store     *ConfigStore
	source    FrameSource
	sink      InputSink
	templates *TemplateStore
	calib     *Calibrator
	reader    *TextReader
	dumper    *DebugDumper

	profile atomic.Pointer[CalibrationProfile]

	tracker   *TargetTracker
	sequencer *SkillSequencer
	buffs     *BuffScheduler
	pots      *PotScheduler
	repair    *RepairMonitor
	unstuck   *UnstuckDetector
	assist    *AssistController
	loot      *LootPolicy
	intervals *IntervalSlotRunner
	targeter  *AutoTargeter

	// OCR throttle state, loop goroutine only.
	lastNameOCR time.Time
	lastName    RecognizedText
	lastTextOCR time.Time
	lastText    RecognizedText

	status atomic.Pointer[StatusSnapshot]

	mu        sync.Mutex
	running   bool
	paused    atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	tick      uint64
	failCount int
}

// NewBot wires the loop with its collaborators.
func NewBot(store *ConfigStore, source FrameSource, sink InputSink,
	templates *TemplateStore, calib *Calibrator, reader *TextReader,
	dumper *DebugDumper) *Bot {
	b := &Bot{
		store:     store,
		source:    source,
		sink:      sink,
		templates: templates,
		calib:     calib,
		reader:    reader,
		dumper:    dumper,
		tracker:   NewTargetTracker(),
		sequencer: NewSkillSequencer(),
		buffs:     NewBuffScheduler(),
		pots:      NewPotScheduler(),
		repair:    NewRepairMonitor(),
		unstuck:   NewUnstuckDetector(),
		assist:    NewAssistController(),
		loot:      NewLootPolicy(),
		intervals: NewIntervalSlotRunner(),
		targeter:  NewAutoTargeter(),
	}
	b.status.Store(&StatusSnapshot{})
	return b
}

// Calibrate captures a frame and derives a fresh profile. Explicit user
// action only; the loop never re-calibrates on its own.
func (b *Bot) Calibrate() error {
	frame, err := b.source.Capture()
	if err != nil {
		return &CalibrationError{Stage: "capture", Detail: err.Error()}
	}
	profile, err := b.calib.Calibrate(frame)
	if err != nil {
		return err
	}
	b.profile.Store(profile)
	return nil
}

// Profile returns the current calibration profile, nil before the first
// successful Calibrate.
func (b *Bot) Profile() *CalibrationProfile {
	return b.profile.Load()
}

// Status returns the most recently published status snapshot.
func (b *Bot) Status() *StatusSnapshot {
	return b.status.Load()
}

// Start launches the loop. Idempotent; returns CalibrationError when no
// profile has been computed yet.
func (b *Bot) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	if b.profile.Load() == nil {
		return &CalibrationError{Stage: "start", Detail: "not calibrated"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running = true
	b.paused.Store(false)
	b.startedAt = time.Now()
	b.failCount = 0

	go b.run(ctx)
	LogInfo("Bot: started")
	return nil
}

// Pause suspends policy evaluation at the next tick boundary. Idempotent.
func (b *Bot) Pause() {
	if b.paused.CompareAndSwap(false, true) {
		LogInfo("Bot: paused")
	}
}

// Resume clears a pause. Idempotent.
func (b *Bot) Resume() {
	if b.paused.CompareAndSwap(true, false) {
		b.mu.Lock()
		b.failCount = 0
		b.mu.Unlock()
		LogInfo("Bot: resumed")
	}
}

// TogglePause flips between paused and running.
func (b *Bot) TogglePause() {
	if b.paused.Load() {
		b.Resume()
	} else {
		b.Pause()
	}
}

// Stop terminates the loop and waits for the current tick to finish.
// Idempotent.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	cancel := b.cancel
	done := b.done
	b.mu.Unlock()

	cancel()
	<-done
	LogInfo("Bot: stopped")
}

// run is the loop goroutine.
func (b *Bot) run(ctx context.Context) {
	defer close(b.done)

	cfg := b.store.Load()
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.publishStopped()
			return
		case <-ticker.C:
		}

		if b.paused.Load() {
			b.publishStatus(nil, true)
			continue
		}

		cfg = b.store.Load()
		ticker.Reset(cfg.TickInterval)
		b.step(cfg)
	}
}

// step executes one tick.
func (b *Bot) step(cfg *BotConfig) {
	eff := b.assist.Apply(cfg)
	now := time.Now()

	frame, err := b.source.Capture()
	if err != nil || frame == nil || frame.Image == nil {
		b.failCount++
		LogWarn("Bot: capture failed (%d/%d): %v", b.failCount, eff.CaptureFailLimit, err)
		if b.failCount >= eff.CaptureFailLimit {
			LogError("Bot: %d consecutive capture failures, auto-pausing", b.failCount)
			b.Pause()
			b.failCount = 0
		}
		return
	}
	b.failCount = 0
	b.tick++

	profile := b.profile.Load()
	snap := b.perceive(frame, profile, eff, now)

	event := b.tracker.Update(snap, eff)
	if event != TargetEventNone {
		b.sequencer.Reset(eff)
		b.unstuck.NoteEvent()
		b.loot.NoteEvent(event, eff, now)
	}

	var actions []Action
	if b.tracker.State() == TargetEngaged {
		actions = append(actions, b.sequencer.Evaluate(snap, eff, now)...)
	}
	actions = append(actions, b.buffs.Evaluate(snap, eff, now)...)
	actions = append(actions, b.pots.Evaluate(snap, eff, now)...)
	actions = append(actions, b.repair.Evaluate(snap, eff, profile.HasMessages, now)...)
	actions = append(actions, b.unstuck.Evaluate(snap, eff)...)
	actions = append(actions, b.assist.Evaluate(snap, eff, now)...)
	actions = append(actions, b.loot.Evaluate(eff)...)
	actions = append(actions, b.intervals.Evaluate(snap, eff, now)...)
	actions = append(actions, b.targeter.Evaluate(b.tracker.State(), eff, now)...)

	for _, a := range arbitrate(actions) {
		if err := Dispatch(b.sink, a); err != nil {
			LogWarn("Bot: dispatch failed (%s): %v", a.Source, err)
		}
	}

	b.publishStatus(snap, false)
}

// arbitrate drops duplicate slot actions: at most one action per slot
// per tick, first requester in policy order wins.
func arbitrate(actions []Action) []Action {
	if len(actions) <= 1 {
		return actions
	}
	seen := make(map[string]bool)
	out := actions[:0]
	for _, a := range actions {
		if a.SlotIdx >= 0 {
			key := a.Source + "/" + string(rune('0'+a.SlotIdx))
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, a)
	}
	return out
}

// perceive runs the perception stage and builds the immutable Snapshot.
func (b *Bot) perceive(frame *Frame, profile *CalibrationProfile, cfg *BotConfig, now time.Time) *Snapshot {
	snap := &Snapshot{
		Tick:       b.tick,
		CapturedAt: frame.CapturedAt,
		Target:     b.tracker.Enemy(),
	}

	snap.HP = ReadBar(frame, profile.HPBar, HPColorRef)
	snap.MP = ReadBar(frame, profile.MPBar, MPColorRef)
	snap.EnemyHP = ReadBar(frame, profile.EnemyHP, EnemyHPColorRef)

	// Name OCR, throttled: between runs the previous result is carried
	// and flagged stale.
	if b.reader != nil && now.Sub(b.lastNameOCR) >= cfg.OCRInterval {
		b.lastNameOCR = now
		b.lastName = b.reader.ReadText(frame, profile.EnemyName, cfg.ConfidenceFloor)
		snap.EnemyName = b.lastName
	} else {
		snap.EnemyName = b.lastName
		snap.NameStale = true
	}

	if b.reader != nil && profile.HasMessages && now.Sub(b.lastTextOCR) >= cfg.OCRInterval {
		b.lastTextOCR = now
		b.lastText = b.reader.ReadText(frame, profile.SystemMessage, cfg.ConfidenceFloor)
		snap.SystemText = b.lastText
	} else {
		snap.SystemText = b.lastText
		snap.TextStale = true
	}

	if profile.HasTray {
		for i, slot := range cfg.SkillSlots {
			if !slot.Enabled || slot.Template == "" {
				continue
			}
			if tmpl, err := b.templates.Get(slot.Template); err == nil {
				snap.SkillReady[i] = Match(frame, profile.SkillTray, tmpl, IconMatchThreshold)
			}
		}
		for i, slot := range cfg.BuffSlots {
			if !slot.Enabled || slot.Template == "" {
				continue
			}
			if tmpl, err := b.templates.Get(slot.Template); err == nil {
				snap.BuffActive[i] = Match(frame, profile.BuffStrip, tmpl, IconMatchThreshold)
				snap.BuffIcon[i] = Match(frame, profile.SkillTray, tmpl, IconMatchThreshold)
			}
		}
		if b.assist.Active() {
			if tmpl, err := b.templates.Get("assist_button"); err == nil {
				snap.AssistButton = Match(frame, profile.SkillTray, tmpl, IconMatchThreshold)
			}
		}
	}

	if cfg.DebugImages {
		b.dumper.Dump("hp", frame, profile.HPBar)
		b.dumper.Dump("enemy_name", frame, profile.EnemyName)
		if profile.HasTray {
			b.dumper.Dump("tray", frame, profile.SkillTray)
		}
	}

	return snap
}

// publishStatus stores a fresh status snapshot for the config surface.
func (b *Bot) publishStatus(snap *Snapshot, paused bool) {
	s := &StatusSnapshot{
		Running:      true,
		Paused:       paused || b.paused.Load(),
		Tick:         b.tick,
		TrackerState: b.tracker.State().String(),
		KillCount:    b.tracker.Kills(),
		StartedAt:    b.startedAt,
	}
	if snap != nil {
		s.HPPercent = snap.HP.Percent
		s.MPPercent = snap.MP.Percent
		s.EnemyName = b.tracker.Enemy().Name
		s.EnemyHP = b.tracker.Enemy().HealthPercent
	} else if prev := b.status.Load(); prev != nil {
		s.HPPercent = prev.HPPercent
		s.MPPercent = prev.MPPercent
		s.EnemyName = prev.EnemyName
		s.EnemyHP = prev.EnemyHP
	}
	b.status.Store(s)
}

// publishStopped marks the published status as not running after the
// loop exits. The last observed readings stay visible.
func (b *Bot) publishStopped() {
	s := &StatusSnapshot{}
	if prev := b.status.Load(); prev != nil {
		*s = *prev
	}
	s.Running = false
	s.Paused = false
	b.status.Store(s)
}
