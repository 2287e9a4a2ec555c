package main

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

// fakeSource serves canned frames or a capture error.
type fakeSource struct {
	mu    sync.Mutex
	frame *Frame
	err   error
	calls int
}

func (f *fakeSource) Capture() (*Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

// fakeSink records dispatched actions.
type fakeSink struct {
	mu      sync.Mutex
	actions []Action
}

func (f *fakeSink) PressKey(key string) error {
	f.record(Action{Kind: ActionPressKey, Key: key})
	return nil
}

func (f *fakeSink) ClickAt(p Point) error {
	f.record(Action{Kind: ActionClick, At: p})
	return nil
}

func (f *fakeSink) HoldKey(key string, d time.Duration) error {
	f.record(Action{Kind: ActionHoldKey, Key: key, Hold: d})
	return nil
}

func (f *fakeSink) record(a Action) {
	f.mu.Lock()
	f.actions = append(f.actions, a)
	f.mu.Unlock()
}

func (f *fakeSink) recorded() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Action, len(f.actions))
	copy(out, f.actions)
	return out
}

// testProfile is a minimal calibration for synthetic 400x300 frames.
func testProfile() *CalibrationProfile {
	return &CalibrationProfile{
		HPBar:     Bounds{X: 10, Y: 10, W: 160, H: 14},
		MPBar:     Bounds{X: 10, Y: 38, W: 160, H: 14},
		EnemyName: Bounds{X: 9, Y: 71, W: 163, H: 18},
		EnemyHP:   Bounds{X: 9, Y: 89, W: 163, H: 17},
	}
}

func testBot(t *testing.T, source FrameSource, sink InputSink) (*Bot, *ConfigStore) {
	t.Helper()
	store := NewConfigStore(t.TempDir() + "/settings.env")
	store.Update(func(cfg *BotConfig) {
		cfg.TickInterval = 5 * time.Millisecond
		cfg.AutoAttack = false
		cfg.BuffsOn = false
		cfg.LootOn = false
		cfg.UnstuckOn = false
	})
	templates := NewTemplateStore(t.TempDir())
	dumper := NewDebugDumper(t.TempDir(), false)
	calib := NewCalibrator(templates, dumper)
	return NewBot(store, source, sink, templates, calib, nil, dumper), store
}

func TestStartRequiresCalibration(t *testing.T) {
	bot, _ := testBot(t, &fakeSource{}, &fakeSink{})

	err := bot.Start()
	var calErr *CalibrationError
	if !errors.As(err, &calErr) {
		t.Fatalf("Start without a profile returned %v, want CalibrationError", err)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	source := &fakeSource{frame: testFrame(400, 300)}
	bot, _ := testBot(t, source, &fakeSink{})
	bot.profile.Store(testProfile())

	if err := bot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := bot.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	bot.Stop()
	bot.Stop() // must not panic or block
}

func TestCaptureFailuresAutoPause(t *testing.T) {
	source := &fakeSource{err: &WindowNotFoundError{Title: "gone"}}
	bot, store := testBot(t, source, &fakeSink{})
	store.Update(func(cfg *BotConfig) { cfg.CaptureFailLimit = 3 })
	bot.profile.Store(testProfile())

	cfg := store.Load()
	for i := 0; i < 3; i++ {
		bot.step(cfg)
	}
	if !bot.paused.Load() {
		t.Fatalf("loop not paused after %d consecutive capture failures", cfg.CaptureFailLimit)
	}
}

func TestCaptureRecoveryResetsFailCount(t *testing.T) {
	source := &fakeSource{err: &WindowNotFoundError{Title: "gone"}}
	bot, store := testBot(t, source, &fakeSink{})
	store.Update(func(cfg *BotConfig) { cfg.CaptureFailLimit = 3 })
	bot.profile.Store(testProfile())

	cfg := store.Load()
	bot.step(cfg)
	bot.step(cfg)

	// Recovery clears the streak.
	source.mu.Lock()
	source.err = nil
	source.frame = testFrame(400, 300)
	source.mu.Unlock()
	bot.step(cfg)

	source.mu.Lock()
	source.err = &WindowNotFoundError{Title: "gone"}
	source.mu.Unlock()
	bot.step(cfg)
	bot.step(cfg)

	if bot.paused.Load() {
		t.Fatalf("paused despite an intervening successful capture")
	}
}

func TestStepFiresPotOnLowHP(t *testing.T) {
	profile := testProfile()
	frame := testFrame(400, 300)
	// 30% HP, healthy MP.
	fillRect(frame.Image, Bounds{X: profile.HPBar.X, Y: profile.HPBar.Y, W: profile.HPBar.W * 30 / 100, H: profile.HPBar.H}, HPColorRef.Fill)
	fillRect(frame.Image, profile.MPBar, MPColorRef.Fill)

	source := &fakeSource{frame: frame}
	sink := &fakeSink{}
	bot, store := testBot(t, source, sink)
	bot.profile.Store(profile)

	bot.step(store.Load())

	actions := sink.recorded()
	if len(actions) != 1 || actions[0].Key != store.Load().HPPotKey {
		t.Fatalf("dispatched %+v, want one HP pot press", actions)
	}

	status := bot.Status()
	if status.HPPercent != 30 {
		t.Errorf("status HP = %d%%, want 30", status.HPPercent)
	}
	if status.MPPercent != 100 {
		t.Errorf("status MP = %d%%, want 100", status.MPPercent)
	}
}

func TestStatusReportsStopped(t *testing.T) {
	source := &fakeSource{frame: testFrame(400, 300)}
	bot, _ := testBot(t, source, &fakeSink{})
	bot.profile.Store(testProfile())

	if err := bot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if !bot.Status().Running {
		t.Fatalf("status not running while the loop is up")
	}

	bot.Stop()
	if s := bot.Status(); s.Running {
		t.Fatalf("status still running after Stop: %+v", s)
	}
}

func TestNoActionsAfterStop(t *testing.T) {
	source := &fakeSource{frame: testFrame(400, 300)}
	sink := &fakeSink{}
	bot, _ := testBot(t, source, sink)
	bot.profile.Store(testProfile())

	if err := bot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	bot.Stop()

	before := len(sink.recorded())
	time.Sleep(30 * time.Millisecond)
	if after := len(sink.recorded()); after != before {
		t.Fatalf("%d actions dispatched after Stop", after-before)
	}
}

func TestArbitrateDropsDuplicateSlotActions(t *testing.T) {
	a1 := slotAction("sequencer", "1", 0)
	a2 := slotAction("sequencer", "1", 0)
	a3 := slotAction("buffs", "2", 0) // other policy, same index, kept
	free := PressAction("pots", "9")

	out := arbitrate([]Action{a1, a2, a3, free})
	if len(out) != 3 {
		t.Fatalf("arbitrate kept %d actions, want 3", len(out))
	}
	if out[0] != a1 || out[1] != a3 || out[2] != free {
		t.Errorf("arbitrate reordered or dropped wrong actions: %+v", out)
	}
}
