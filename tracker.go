// Package main - tracker.go
//
// This file implements the target tracker: the state machine that owns
// the believed state of the currently engaged enemy.
//
// States: NoTarget -> Engaged -> Dead/Lost -> NoTarget
//
// Transitions are debounced with consecutive-miss counters because every
// input is noisy: a single 0% HP read or one failed name recognition must
// not end an engagement.
//
//   - NoTarget -> Engaged: a non-empty recognized name passes the mob
//     filter with enemy HP > 0.
//   - Engaged -> Dead: smoothed HP at 0 for DeathDebounce consecutive
//     ticks, after the enemy was seen above the alive floor at least once.
//   - Engaged -> Lost: name missing or changed to a different accepted
//     name for LostDebounce consecutive ticks.
//
// Both terminal transitions reset to NoTarget within the same tick and
// emit a target-changed event the sequencer consumes immediately.
//
// HP smoothing: readings pass through a 3-wide window; the tracker works
// on the window median. A low-to-high jump in smoothed HP means the
// client re-targeted onto a fresh enemy, not that the enemy healed; it is
// reported as Acquired for the new enemy.
package main

const (
	hpWindowSize = 3
	hpAliveFloor = 15 // must be seen above this before a death counts
	hpJumpLow    = 30
	hpJumpHigh   = 80
)

// TargetTracker owns the engaged-enemy state machine.
type TargetTracker struct {
	state TargetState
	enemy EnemyState

	deadTicks int
	lostTicks int

	hpWindow []int
	sawAlive bool

	kills int
}

// NewTargetTracker creates a tracker in NoTarget.
func NewTargetTracker() *TargetTracker {
	return &TargetTracker{state: TargetNoTarget}
}

// State returns the current tracker state.
func (t *TargetTracker) State() TargetState {
	return t.state
}

// Enemy returns the current believed enemy state.
func (t *TargetTracker) Enemy() EnemyState {
	return t.enemy
}

// Kills returns the number of Dead transitions observed this session.
func (t *TargetTracker) Kills() int {
	return t.kills
}

// Update advances the state machine with this tick's perception and
// returns the target-changed event, if any.
func (t *TargetTracker) Update(snap *Snapshot, cfg *BotConfig) TargetEvent {
	name := NormalizeName(snap.EnemyName.Text)
	accepted := AcceptMobName(name, cfg)
	hp := t.smoothHP(snap.EnemyHP.Percent)

	switch t.state {
	case TargetNoTarget:
		if accepted && hp > 0 {
			t.engage(name, hp, snap.Tick)
			LogInfo("Tracker: engaged %q at %d%%", name, hp)
			return TargetEventAcquired
		}
		return TargetEventNone

	case TargetEngaged:
		// Name watch. Stale OCR carries the previous name and must not
		// count as a miss.
		switch {
		case snap.NameStale:
			// no evidence either way
		case accepted && name == t.enemy.Name:
			t.lostTicks = 0
		default:
			t.lostTicks++
			if t.lostTicks >= cfg.LostDebounce {
				prev := t.enemy.Name
				t.reset()
				LogInfo("Tracker: lost %q after %d misses", prev, cfg.LostDebounce)
				// A different accepted name can engage next tick.
				return TargetEventLost
			}
		}

		// Low-to-high jump means the client switched to a new enemy.
		if t.sawAlive && t.enemy.HealthPercent <= hpJumpLow && hp >= hpJumpHigh {
			prevHP := t.enemy.HealthPercent
			newName := t.enemy.Name
			if accepted {
				newName = name
			}
			t.engage(newName, hp, snap.Tick)
			LogInfo("Tracker: HP jump %d%% -> %d%%, treating as new enemy", prevHP, hp)
			return TargetEventAcquired
		}

		if hp > hpAliveFloor {
			t.sawAlive = true
		}
		t.enemy.HealthPercent = hp
		t.enemy.LastSeenTick = snap.Tick

		if hp == 0 && t.sawAlive {
			t.deadTicks++
			if t.deadTicks >= cfg.DeathDebounce {
				t.enemy.ConsideredDead = true
				t.kills++
				name := t.enemy.Name
				t.reset()
				LogInfo("Tracker: %q died (kill #%d)", name, t.kills)
				return TargetEventDied
			}
		} else {
			t.deadTicks = 0
		}
		return TargetEventNone
	}

	// Dead and Lost are transient; reaching here means reset already ran.
	t.state = TargetNoTarget
	return TargetEventNone
}

// engage initializes the engaged state for a fresh enemy.
func (t *TargetTracker) engage(name string, hp int, tick uint64) {
	t.state = TargetEngaged
	t.enemy = EnemyState{Name: name, HealthPercent: hp, LastSeenTick: tick}
	t.deadTicks = 0
	t.lostTicks = 0
	t.sawAlive = hp > hpAliveFloor
}

// reset returns to NoTarget and clears per-enemy state.
func (t *TargetTracker) reset() {
	t.state = TargetNoTarget
	t.enemy = EnemyState{}
	t.deadTicks = 0
	t.lostTicks = 0
	t.sawAlive = false
	t.hpWindow = t.hpWindow[:0]
}

// smoothHP pushes a reading through the window and returns the median.
func (t *TargetTracker) smoothHP(hp int) int {
	t.hpWindow = append(t.hpWindow, hp)
	if len(t.hpWindow) > hpWindowSize {
		t.hpWindow = t.hpWindow[1:]
	}
	if len(t.hpWindow) < hpWindowSize {
		return hp
	}
	a, b, c := t.hpWindow[0], t.hpWindow[1], t.hpWindow[2]
	return median3(a, b, c)
}

// median3 returns the median of three ints.
func median3(a, b, c int) int {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}
