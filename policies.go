// Package main - policies.go
//
// This file implements the single-purpose policies evaluated after the
// tracker and the slot schedulers each tick:
//
//   - PotScheduler: HP/MP potion keys on threshold crossings
//   - RepairMonitor: repair key after repeated item-break warnings
//   - UnstuckDetector: recovery burst when no engagement happens
//   - AssistController: party-assist override mode
//   - LootPolicy: pick-key presses after a kill
//   - IntervalSlotRunner: time-driven skill keys
//   - AutoTargeter: target-cycle key while nothing is engaged
//
// Policies never return errors. Degenerate perception (0% bars, empty
// text, missing templates) is ordinary input.
package main

import (
	"math/rand"
	"strings"
	"time"
	"unicode"
)

// PotScheduler fires potion keys when a bar drops below its threshold.
// HP and MP are checked independently, each with the minimum re-fire
// interval so a persistently low bar does not spam the key.
type PotScheduler struct {
	lastHP time.Time
	lastMP time.Time
}

// NewPotScheduler creates a scheduler with both intervals expired.
func NewPotScheduler() *PotScheduler {
	return &PotScheduler{}
}

// Evaluate returns the potion presses due this tick.
func (p *PotScheduler) Evaluate(snap *Snapshot, cfg *BotConfig, now time.Time) []Action {
	var actions []Action
	if cfg.HPPotKey != "" && snap.HP.Percent > 0 && snap.HP.Percent < cfg.HPThreshold {
		if now.Sub(p.lastHP) >= cfg.PotInterval {
			p.lastHP = now
			LogInfo("Pots: HP %d%% below %d%%", snap.HP.Percent, cfg.HPThreshold)
			actions = append(actions, PressAction("pots", cfg.HPPotKey))
		}
	}
	if cfg.MPPotKey != "" && snap.MP.Percent > 0 && snap.MP.Percent < cfg.MPThreshold {
		if now.Sub(p.lastMP) >= cfg.PotInterval {
			p.lastMP = now
			LogInfo("Pots: MP %d%% below %d%%", snap.MP.Percent, cfg.MPThreshold)
			actions = append(actions, PressAction("pots", cfg.MPPotKey))
		}
	}
	return actions
}

// breakWarning is the system message fragment the client prints when an
// equipped item is close to breaking.
const breakWarning = "is about to break"

// RepairMonitor fires the repair key after RepairWarnCount break
// warnings, subject to the repair cooldown.
//
// With no calibrated message area the monitor falls back to cumulative
// own-HP loss when RepairHPDelta is configured.
type RepairMonitor struct {
	warnCount  int
	lastText   string
	lastRepair time.Time

	lastHP      int
	damageAccum int
}

// NewRepairMonitor creates a monitor with no warnings observed.
func NewRepairMonitor() *RepairMonitor {
	return &RepairMonitor{lastHP: -1}
}

// Evaluate returns the repair press when due.
func (r *RepairMonitor) Evaluate(snap *Snapshot, cfg *BotConfig, hasMessages bool, now time.Time) []Action {
	if cfg.RepairKey == "" {
		return nil
	}

	if hasMessages {
		if !snap.TextStale {
			text := strings.ToLower(snap.SystemText.Text)
			if strings.Contains(text, breakWarning) && text != r.lastText {
				r.warnCount++
				LogInfo("Repair: break warning %d/%d", r.warnCount, cfg.RepairWarnCount)
			}
			r.lastText = text
		}
		if r.warnCount >= cfg.RepairWarnCount && now.Sub(r.lastRepair) >= cfg.RepairCooldown {
			r.warnCount = 0
			r.lastRepair = now
			LogInfo("Repair: firing %q", cfg.RepairKey)
			return []Action{PressAction("repair", cfg.RepairKey)}
		}
		return nil
	}

	// Health-delta fallback.
	if cfg.RepairHPDelta <= 0 {
		return nil
	}
	if r.lastHP >= 0 && snap.HP.Percent < r.lastHP {
		r.damageAccum += r.lastHP - snap.HP.Percent
	}
	r.lastHP = snap.HP.Percent
	if r.damageAccum >= cfg.RepairHPDelta && now.Sub(r.lastRepair) >= cfg.RepairCooldown {
		r.damageAccum = 0
		r.lastRepair = now
		LogInfo("Repair: damage accumulation reached %d", cfg.RepairHPDelta)
		return []Action{PressAction("repair", cfg.RepairKey)}
	}
	return nil
}

// movementKeys are candidates for the unstuck burst.
var movementKeys = []string{"w", "a", "s", "d"}

// UnstuckDetector counts ticks since the last sign of progress: any
// target-changed event, or damage numbers appearing in the system
// message area. Crossing the timeout while auto attack is expected to
// act fires exactly one recovery burst, then the counter restarts.
type UnstuckDetector struct {
	idleTicks int
	rng       *rand.Rand
}

// NewUnstuckDetector creates a detector with a fresh counter.
func NewUnstuckDetector() *UnstuckDetector {
	return &UnstuckDetector{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NoteEvent resets the idle counter on any target-changed event.
func (u *UnstuckDetector) NoteEvent() {
	u.idleTicks = 0
}

// Evaluate advances the idle counter and fires the recovery burst when
// the timeout is crossed.
func (u *UnstuckDetector) Evaluate(snap *Snapshot, cfg *BotConfig) []Action {
	if !cfg.UnstuckOn || !cfg.AutoAttack {
		u.idleTicks = 0
		return nil
	}

	if !snap.TextStale && containsDamageNumber(snap.SystemText.Text) {
		u.idleTicks = 0
		return nil
	}

	u.idleTicks++
	if u.idleTicks <= cfg.UnstuckTimeoutTicks {
		return nil
	}
	u.idleTicks = 0

	key := movementKeys[u.rng.Intn(len(movementKeys))]
	hold := time.Duration(300+u.rng.Intn(500)) * time.Millisecond
	LogWarn("Unstuck: no progress for %d ticks, moving %q for %s", cfg.UnstuckTimeoutTicks, key, hold)
	return []Action{
		HoldAction("unstuck", key, hold),
		PressAction("unstuck", cfg.TargetKey),
	}
}

// containsDamageNumber reports whether the text carries a standalone
// number, the shape of a floating combat damage line.
func containsDamageNumber(s string) bool {
	run := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			run++
			if run >= 2 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// AssistController implements assist mode: while enabled it masks auto
// attack, the mob filter and unstuck off, and instead clicks the party
// assist control whenever it is visible in the skill tray, rate limited
// to one click per AssistClickInterval.
//
// The mask saves the three flags on the rising edge and never writes
// them back, so the pre-enable values are restored exactly when assist
// turns off.
type AssistController struct {
	active    bool
	savedAuto bool
	savedFilt bool
	savedStck bool
	lastClick time.Time
}

// NewAssistController creates a controller with assist inactive.
func NewAssistController() *AssistController {
	return &AssistController{}
}

// Active reports whether the override is engaged.
func (a *AssistController) Active() bool {
	return a.active
}

// Saved returns the flag values captured on the rising edge.
func (a *AssistController) Saved() (autoAttack, mobFilter, unstuck bool) {
	return a.savedAuto, a.savedFilt, a.savedStck
}

// Apply returns the effective config for this tick. While assist is on,
// the returned config reports auto attack, mob filter and unstuck as
// disabled; cfg itself is never modified.
func (a *AssistController) Apply(cfg *BotConfig) *BotConfig {
	if cfg.AssistOn && !a.active {
		a.active = true
		a.savedAuto = cfg.AutoAttack
		a.savedFilt = cfg.MobFilterOn
		a.savedStck = cfg.UnstuckOn
		LogInfo("Assist: enabled, overriding auto-attack/filter/unstuck")
	} else if !cfg.AssistOn && a.active {
		a.active = false
		LogInfo("Assist: disabled, prior toggles back in effect")
	}

	if !a.active {
		return cfg
	}
	eff := cfg.Clone()
	eff.AutoAttack = false
	eff.MobFilterOn = false
	eff.UnstuckOn = false
	return eff
}

// Evaluate clicks the assist control when visible and due.
func (a *AssistController) Evaluate(snap *Snapshot, cfg *BotConfig, now time.Time) []Action {
	if !a.active || !snap.AssistButton.Found {
		return nil
	}
	if now.Sub(a.lastClick) < cfg.AssistClickInterval {
		return nil
	}
	a.lastClick = now
	return []Action{ClickAction("assist", snap.AssistButton.Location)}
}

// LootPolicy presses the pick key a few times after each kill, spaced
// one press per tick, guarded by the loot cooldown.
type LootPolicy struct {
	pending  int
	lastLoot time.Time
}

// NewLootPolicy creates a policy with nothing pending.
func NewLootPolicy() *LootPolicy {
	return &LootPolicy{}
}

// NoteEvent arms the policy on a death event.
func (l *LootPolicy) NoteEvent(event TargetEvent, cfg *BotConfig, now time.Time) {
	if event != TargetEventDied || !cfg.LootOn {
		return
	}
	if now.Sub(l.lastLoot) < cfg.LootCooldown {
		return
	}
	l.pending = cfg.LootPresses
	l.lastLoot = now
}

// Evaluate emits one pending pick press per tick.
func (l *LootPolicy) Evaluate(cfg *BotConfig) []Action {
	if l.pending <= 0 || cfg.LootKey == "" {
		return nil
	}
	l.pending--
	return []Action{PressAction("loot", cfg.LootKey)}
}

// IntervalSlotRunner fires time-driven skill keys independent of the
// sequencer.
type IntervalSlotRunner struct {
	fired [4]time.Time
}

// NewIntervalSlotRunner creates a runner with all intervals expired.
func NewIntervalSlotRunner() *IntervalSlotRunner {
	return &IntervalSlotRunner{}
}

// Evaluate returns the interval presses due this tick.
func (r *IntervalSlotRunner) Evaluate(snap *Snapshot, cfg *BotConfig, now time.Time) []Action {
	var actions []Action
	for i, slot := range cfg.IntervalSlots {
		if !slot.Enabled || slot.Key == "" || slot.Interval <= 0 {
			continue
		}
		if now.Sub(r.fired[i]) < slot.Interval {
			continue
		}
		// The interval is consumed even when the filter suppresses the
		// press, so a rejected mob does not queue up a burst.
		r.fired[i] = now
		if cfg.MobFilterOn && !AcceptMobName(snap.Target.Name, cfg) {
			continue
		}
		a := PressAction("interval", slot.Key)
		a.SlotIdx = i
		actions = append(actions, a)
	}
	return actions
}

// AutoTargeter presses the target-cycle key on a cadence while nothing
// is engaged, plus one forced press right after start.
type AutoTargeter struct {
	lastCycle time.Time
	forced    bool
}

// NewAutoTargeter creates a targeter that will force one initial press.
func NewAutoTargeter() *AutoTargeter {
	return &AutoTargeter{}
}

// Evaluate returns the target-cycle press when due.
func (t *AutoTargeter) Evaluate(state TargetState, cfg *BotConfig, now time.Time) []Action {
	if !cfg.AutoAttack || cfg.TargetKey == "" {
		return nil
	}
	if state != TargetNoTarget {
		return nil
	}
	if !t.forced {
		t.forced = true
		t.lastCycle = now
		return []Action{PressAction("autotarget", cfg.TargetKey)}
	}
	if now.Sub(t.lastCycle) < cfg.AutoTargetEvery {
		return nil
	}
	t.lastCycle = now
	return []Action{PressAction("autotarget", cfg.TargetKey)}
}
