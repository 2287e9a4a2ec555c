package main

import "testing"

func trackerConfig() *BotConfig {
	cfg := DefaultConfig()
	cfg.MobFilterOn = false
	cfg.DeathDebounce = 3
	cfg.LostDebounce = 2
	return cfg
}

// trackSnap builds a minimal perception snapshot for tracker tests.
func trackSnap(tick uint64, name string, hp int, stale bool) *Snapshot {
	return &Snapshot{
		Tick:      tick,
		EnemyName: RecognizedText{Text: name, Confidence: 0.9},
		EnemyHP:   BarReading{Percent: hp},
		NameStale: stale,
	}
}

func TestTrackerEngages(t *testing.T) {
	cfg := trackerConfig()
	tr := NewTargetTracker()

	if ev := tr.Update(trackSnap(1, "", 0, false), cfg); ev != TargetEventNone {
		t.Fatalf("empty perception produced event %v", ev)
	}
	if tr.State() != TargetNoTarget {
		t.Fatalf("state = %v, want NoTarget", tr.State())
	}

	ev := tr.Update(trackSnap(2, "Goblin", 100, false), cfg)
	if ev != TargetEventAcquired {
		t.Fatalf("event = %v, want Acquired", ev)
	}
	if tr.State() != TargetEngaged {
		t.Fatalf("state = %v, want Engaged", tr.State())
	}
	if tr.Enemy().Name != "goblin" {
		t.Errorf("enemy name = %q, want normalized goblin", tr.Enemy().Name)
	}
}

func TestTrackerFilterBlocksEngage(t *testing.T) {
	cfg := trackerConfig()
	cfg.MobFilterOn = true
	cfg.MobAllow = []string{"orc"}
	tr := NewTargetTracker()

	if ev := tr.Update(trackSnap(1, "Goblin", 100, false), cfg); ev != TargetEventNone {
		t.Fatalf("filtered name engaged: event %v", ev)
	}
	if tr.State() != TargetNoTarget {
		t.Fatalf("state = %v, want NoTarget", tr.State())
	}
}

func TestTrackerDeathDebounce(t *testing.T) {
	cfg := trackerConfig()
	tr := NewTargetTracker()

	tick := uint64(1)
	// Warm up: engage and fill the smoothing window with healthy reads.
	for i := 0; i < 3; i++ {
		tr.Update(trackSnap(tick, "Goblin", 100, false), cfg)
		tick++
	}
	if tr.State() != TargetEngaged {
		t.Fatalf("not engaged after warmup")
	}

	// Zero reads: the median window absorbs the first, then the
	// debounce counter needs DeathDebounce consecutive zeros.
	var died int
	for i := 1; i <= 6; i++ {
		ev := tr.Update(trackSnap(tick, "Goblin", 0, false), cfg)
		tick++
		if ev == TargetEventDied {
			died = i
			break
		}
	}
	if died != 4 {
		t.Fatalf("died after %d zero ticks, want 4 (1 window + 3 debounce)", died)
	}
	if tr.State() != TargetNoTarget {
		t.Errorf("state after death = %v, want NoTarget", tr.State())
	}
	if tr.Kills() != 1 {
		t.Errorf("kills = %d, want 1", tr.Kills())
	}
}

func TestTrackerSingleZeroDoesNotKill(t *testing.T) {
	cfg := trackerConfig()
	tr := NewTargetTracker()

	tick := uint64(1)
	for i := 0; i < 3; i++ {
		tr.Update(trackSnap(tick, "Goblin", 100, false), cfg)
		tick++
	}
	// Transient misread.
	if ev := tr.Update(trackSnap(tick, "Goblin", 0, false), cfg); ev != TargetEventNone {
		t.Fatalf("single zero produced event %v", ev)
	}
	tick++
	if ev := tr.Update(trackSnap(tick, "Goblin", 95, false), cfg); ev != TargetEventNone {
		t.Fatalf("recovery produced event %v", ev)
	}
	if tr.State() != TargetEngaged {
		t.Errorf("state = %v, want still Engaged", tr.State())
	}
}

func TestTrackerLostDebounce(t *testing.T) {
	cfg := trackerConfig()
	tr := NewTargetTracker()

	tr.Update(trackSnap(1, "Goblin", 100, false), cfg)

	if ev := tr.Update(trackSnap(2, "", 100, false), cfg); ev != TargetEventNone {
		t.Fatalf("first miss produced event %v", ev)
	}
	ev := tr.Update(trackSnap(3, "", 100, false), cfg)
	if ev != TargetEventLost {
		t.Fatalf("event = %v, want Lost after %d misses", ev, cfg.LostDebounce)
	}
	if tr.State() != TargetNoTarget {
		t.Errorf("state = %v, want NoTarget", tr.State())
	}
}

func TestTrackerStaleNameIsNotAMiss(t *testing.T) {
	cfg := trackerConfig()
	tr := NewTargetTracker()

	tr.Update(trackSnap(1, "Goblin", 100, false), cfg)
	for i := 0; i < 10; i++ {
		if ev := tr.Update(trackSnap(uint64(2+i), "", 100, true), cfg); ev != TargetEventNone {
			t.Fatalf("stale tick %d produced event %v", i, ev)
		}
	}
	if tr.State() != TargetEngaged {
		t.Errorf("state = %v, want Engaged through stale reads", tr.State())
	}
}

func TestTrackerHPJumpMeansNewEnemy(t *testing.T) {
	cfg := trackerConfig()
	tr := NewTargetTracker()

	tick := uint64(1)
	for i := 0; i < 3; i++ {
		tr.Update(trackSnap(tick, "Goblin", 100, false), cfg)
		tick++
	}
	for i := 0; i < 3; i++ {
		tr.Update(trackSnap(tick, "Goblin", 20, false), cfg)
		tick++
	}
	if tr.Enemy().HealthPercent != 20 {
		t.Fatalf("tracked HP = %d, want 20", tr.Enemy().HealthPercent)
	}

	// The jump needs to clear the smoothing window before it registers.
	var got TargetEvent
	for i := 0; i < 3 && got == TargetEventNone; i++ {
		got = tr.Update(trackSnap(tick, "Goblin", 100, false), cfg)
		tick++
	}
	if got != TargetEventAcquired {
		t.Fatalf("event = %v, want Acquired on low-to-high jump", got)
	}
	if tr.State() != TargetEngaged {
		t.Errorf("state = %v, want Engaged on the new enemy", tr.State())
	}
}
