package main

import (
	"testing"
	"time"
)

func TestPotFiresOnceThenSuppressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HPThreshold = 40
	cfg.PotInterval = 1500 * time.Millisecond
	pots := NewPotScheduler()
	base := time.Now()

	snap := &Snapshot{HP: BarReading{Percent: 35}, MP: BarReading{Percent: 90}}

	actions := pots.Evaluate(snap, cfg, base)
	if len(actions) != 1 || actions[0].Key != cfg.HPPotKey {
		t.Fatalf("actions = %+v, want one HP pot press", actions)
	}

	// Health stays at 35: suppressed until the re-fire interval elapses.
	for i := 1; i <= 5; i++ {
		if a := pots.Evaluate(snap, cfg, base.Add(time.Duration(i)*200*time.Millisecond)); len(a) != 0 {
			t.Fatalf("refired %+v inside the interval", a)
		}
	}
	if a := pots.Evaluate(snap, cfg, base.Add(2*time.Second)); len(a) != 1 {
		t.Errorf("got %d actions after the interval, want 1", len(a))
	}
}

func TestPotThresholdsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HPThreshold = 40
	cfg.MPThreshold = 30
	pots := NewPotScheduler()

	snap := &Snapshot{HP: BarReading{Percent: 35}, MP: BarReading{Percent: 20}}
	actions := pots.Evaluate(snap, cfg, time.Now())
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want HP and MP pots", len(actions))
	}
}

func TestPotIgnoresZeroReading(t *testing.T) {
	cfg := DefaultConfig()
	pots := NewPotScheduler()

	// A 0% read is an occluded bar, not an emergency.
	snap := &Snapshot{HP: BarReading{Percent: 0}, MP: BarReading{Percent: 0}}
	if a := pots.Evaluate(snap, cfg, time.Now()); len(a) != 0 {
		t.Errorf("fired %+v on zero readings", a)
	}
}

func TestRepairCountsWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepairWarnCount = 3
	rep := NewRepairMonitor()
	base := time.Now()

	warn := func(i int, text string) []Action {
		snap := &Snapshot{SystemText: RecognizedText{Text: text, Confidence: 0.8}}
		return rep.Evaluate(snap, cfg, true, base.Add(time.Duration(i)*time.Second))
	}

	if a := warn(0, "your sword is about to break 1"); len(a) != 0 {
		t.Fatalf("fired after 1 warning: %+v", a)
	}
	if a := warn(1, "your sword is about to break 2"); len(a) != 0 {
		t.Fatalf("fired after 2 warnings: %+v", a)
	}
	a := warn(2, "your sword is about to break 3")
	if len(a) != 1 || a[0].Key != cfg.RepairKey {
		t.Fatalf("actions = %+v, want repair key after 3 warnings", a)
	}
}

func TestRepairIgnoresRepeatedText(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepairWarnCount = 3
	rep := NewRepairMonitor()
	base := time.Now()

	// The same recognized line across ticks is one warning, not three.
	snap := &Snapshot{SystemText: RecognizedText{Text: "armor is about to break", Confidence: 0.8}}
	for i := 0; i < 5; i++ {
		if a := rep.Evaluate(snap, cfg, true, base.Add(time.Duration(i)*time.Second)); len(a) != 0 {
			t.Fatalf("fired on repeated identical text: %+v", a)
		}
	}
}

func TestRepairHPDeltaFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepairHPDelta = 50
	rep := NewRepairMonitor()
	base := time.Now()

	hp := func(i, percent int) []Action {
		snap := &Snapshot{HP: BarReading{Percent: percent}}
		return rep.Evaluate(snap, cfg, false, base.Add(time.Duration(i)*time.Second))
	}

	hp(0, 100)
	hp(1, 80) // -20
	hp(2, 90) // heal, ignored
	if a := hp(3, 70); len(a) != 0 { // -20, accum 40
		t.Fatalf("fired at accum 40: %+v", a)
	}
	if a := hp(4, 55); len(a) != 1 { // -15, accum 55 >= 50
		t.Fatalf("actions = %+v, want repair at accum 55", a)
	}
}

func TestUnstuckExactlyOneActionAtTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnstuckOn = true
	cfg.AutoAttack = true
	cfg.UnstuckTimeoutTicks = 20
	u := NewUnstuckDetector()
	snap := &Snapshot{TextStale: true}

	fires := 0
	for i := 0; i < 21; i++ {
		if a := u.Evaluate(snap, cfg); len(a) > 0 {
			fires++
		}
	}
	if fires != 1 {
		t.Fatalf("fired %d times over 21 idle ticks with timeout 20, want exactly 1", fires)
	}
}

func TestUnstuckEventResetsTimer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnstuckTimeoutTicks = 20
	u := NewUnstuckDetector()
	snap := &Snapshot{TextStale: true}

	for i := 0; i < 15; i++ {
		u.Evaluate(snap, cfg)
	}
	u.NoteEvent()
	for i := 0; i < 20; i++ {
		if a := u.Evaluate(snap, cfg); len(a) > 0 {
			t.Fatalf("fired %d ticks after event reset", i+1)
		}
	}
}

func TestUnstuckDamageNumbersResetTimer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnstuckTimeoutTicks = 20
	u := NewUnstuckDetector()

	idle := &Snapshot{TextStale: true}
	combat := &Snapshot{SystemText: RecognizedText{Text: "critical 1284", Confidence: 0.7}}

	for i := 0; i < 19; i++ {
		u.Evaluate(idle, cfg)
	}
	u.Evaluate(combat, cfg)
	for i := 0; i < 20; i++ {
		if a := u.Evaluate(idle, cfg); len(a) > 0 {
			t.Fatalf("fired %d ticks after damage numbers", i+1)
		}
	}
}

func TestAssistOverrideAndRestore(t *testing.T) {
	assist := NewAssistController()
	cfg := DefaultConfig()
	cfg.AutoAttack = true
	cfg.MobFilterOn = true
	cfg.UnstuckOn = false
	cfg.AssistOn = true

	eff := assist.Apply(cfg)
	if eff.AutoAttack || eff.MobFilterOn || eff.UnstuckOn {
		t.Fatalf("effective config %+v, want all three overridden off", eff)
	}
	// The published config itself is untouched.
	if !cfg.AutoAttack || !cfg.MobFilterOn {
		t.Fatalf("Apply mutated the published config")
	}

	savedAuto, savedFilt, savedStck := assist.Saved()
	if !savedAuto || !savedFilt || savedStck {
		t.Fatalf("saved = %v %v %v, want true true false", savedAuto, savedFilt, savedStck)
	}

	// Override holds for the whole session.
	for i := 0; i < 10; i++ {
		if eff := assist.Apply(cfg); eff.AutoAttack || eff.MobFilterOn || eff.UnstuckOn {
			t.Fatalf("override dropped mid-session")
		}
	}

	cfg2 := cfg.Clone()
	cfg2.AssistOn = false
	eff = assist.Apply(cfg2)
	if eff.AutoAttack != true || eff.MobFilterOn != true || eff.UnstuckOn != false {
		t.Fatalf("restored config %+v, want exact pre-enable values", eff)
	}
	if assist.Active() {
		t.Errorf("assist still active after disable")
	}
}

func TestAssistClickRateLimited(t *testing.T) {
	assist := NewAssistController()
	cfg := DefaultConfig()
	cfg.AssistOn = true
	cfg.AssistClickInterval = time.Second
	assist.Apply(cfg)

	snap := &Snapshot{AssistButton: MatchResult{Found: true, Location: Point{X: 300, Y: 500}}}
	base := time.Now()

	if a := assist.Evaluate(snap, cfg, base); len(a) != 1 {
		t.Fatalf("first click missing")
	}
	clicks := 0
	for i := 1; i <= 6; i++ {
		clicks += len(assist.Evaluate(snap, cfg, base.Add(time.Duration(i)*150*time.Millisecond)))
	}
	if clicks != 0 {
		t.Errorf("%d clicks inside one second", clicks)
	}
	if a := assist.Evaluate(snap, cfg, base.Add(1100*time.Millisecond)); len(a) != 1 {
		t.Errorf("no click after the interval")
	}
}

func TestLootFiresConfiguredPresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LootOn = true
	cfg.LootPresses = 3
	loot := NewLootPolicy()
	now := time.Now()

	loot.NoteEvent(TargetEventDied, cfg, now)
	total := 0
	for i := 0; i < 6; i++ {
		total += len(loot.Evaluate(cfg))
	}
	if total != 3 {
		t.Errorf("got %d pick presses, want 3", total)
	}
}

func TestLootIgnoresNonDeathEvents(t *testing.T) {
	cfg := DefaultConfig()
	loot := NewLootPolicy()

	loot.NoteEvent(TargetEventLost, cfg, time.Now())
	if a := loot.Evaluate(cfg); len(a) != 0 {
		t.Errorf("loot armed by a Lost event: %+v", a)
	}
}

func TestIntervalSlots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IntervalSlots[0] = IntervalSlotConfig{Enabled: true, Key: "5", Interval: time.Second}
	runner := NewIntervalSlotRunner()
	snap := &Snapshot{}
	base := time.Now()

	if a := runner.Evaluate(snap, cfg, base); len(a) != 1 {
		t.Fatalf("first interval press missing")
	}
	if a := runner.Evaluate(snap, cfg, base.Add(500*time.Millisecond)); len(a) != 0 {
		t.Errorf("refired %+v inside the interval", a)
	}
	if a := runner.Evaluate(snap, cfg, base.Add(1100*time.Millisecond)); len(a) != 1 {
		t.Errorf("no press after the interval")
	}
}

func TestIntervalSlotsMobFilterGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IntervalSlots[0] = IntervalSlotConfig{Enabled: true, Key: "5", Interval: time.Second}
	cfg.MobFilterOn = true
	cfg.MobAllow = []string{"aibatt"}
	runner := NewIntervalSlotRunner()
	base := time.Now()

	// No accepted target: the interval is consumed but nothing fires.
	if a := runner.Evaluate(&Snapshot{}, cfg, base); len(a) != 0 {
		t.Fatalf("fired %+v with the filter rejecting the target", a)
	}
	accepted := &Snapshot{Target: EnemyState{Name: "aibatt"}}
	if a := runner.Evaluate(accepted, cfg, base.Add(500*time.Millisecond)); len(a) != 0 {
		t.Errorf("suppressed press did not consume the interval")
	}
	if a := runner.Evaluate(accepted, cfg, base.Add(1100*time.Millisecond)); len(a) != 1 {
		t.Errorf("no press for an accepted target after the interval")
	}
}

func TestAutoTargeter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoTargetEvery = 2 * time.Second
	at := NewAutoTargeter()
	base := time.Now()

	// Forced initial press.
	if a := at.Evaluate(TargetNoTarget, cfg, base); len(a) != 1 {
		t.Fatalf("no forced initial target press")
	}
	if a := at.Evaluate(TargetNoTarget, cfg, base.Add(time.Second)); len(a) != 0 {
		t.Errorf("cycled %+v before the cadence elapsed", a)
	}
	if a := at.Evaluate(TargetNoTarget, cfg, base.Add(2100*time.Millisecond)); len(a) != 1 {
		t.Errorf("no cycle press after the cadence")
	}
	// Never cycles while engaged.
	if a := at.Evaluate(TargetEngaged, cfg, base.Add(time.Minute)); len(a) != 0 {
		t.Errorf("cycled %+v while engaged", a)
	}
}
