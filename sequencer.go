// Package main - sequencer.go
//
// This file implements the skill sequencer: an ordered cycle over the
// enabled skill slots, driven by icon presence in the calibrated skill
// tray.
//
// Semantics per tick (only while a target is engaged and auto attack is
// on):
//
//   - Icon present: the ability is ready. Fire the slot's key, subject to
//     its cooldown, and remember that a fire happened (waiting flag).
//   - Icon absent after a fire: the ability was consumed. Advance to the
//     next enabled slot, wrapping at the end.
//   - Icon absent without a fire: the slot is stalled unless its bypass
//     flag allows skipping it.
//   - Slot with no template: fire on cooldown and advance immediately,
//     there is no icon to watch.
//
// Any target-changed event resets the cycle to the first enabled slot,
// pre-empting an in-flight firing decision.
package main

import "time"

const minFireSpacing = 100 * time.Millisecond

// SkillSequencer owns the sequence cursor and the waiting-activation
// flag. All methods run on the loop goroutine.
type SkillSequencer struct {
	index    int
	waiting  bool
	lastFire time.Time
	fired    [MaxSlots]time.Time
}

// NewSkillSequencer creates a sequencer at the first slot.
func NewSkillSequencer() *SkillSequencer {
	return &SkillSequencer{}
}

// Index returns the current slot cursor.
func (s *SkillSequencer) Index() int {
	return s.index
}

// Reset moves the cursor to the first enabled slot and clears the
// waiting flag. Called on every target-changed event.
func (s *SkillSequencer) Reset(cfg *BotConfig) {
	s.index = firstEnabledSlot(cfg.SkillSlots)
	s.waiting = false
}

// Evaluate decides this tick's sequencer actions. The orchestrator only
// calls it while the tracker is Engaged.
func (s *SkillSequencer) Evaluate(snap *Snapshot, cfg *BotConfig, now time.Time) []Action {
	if !cfg.AutoAttack {
		return nil
	}
	if countEnabled(cfg.SkillSlots) == 0 {
		return nil
	}

	// Cursor may point at a slot disabled by a config change.
	if !cfg.SkillSlots[s.index].Enabled {
		s.advance(cfg)
	}

	slot := cfg.SkillSlots[s.index]

	if slot.Template == "" {
		// Key-only slot: fire and move on.
		if !s.canFire(slot, now) {
			return nil
		}
		s.markFire(now)
		idx := s.index
		s.advance(cfg)
		s.waiting = false
		return []Action{slotAction("sequencer", slot.Key, idx)}
	}

	ready := snap.SkillReady[s.index].Found

	if ready {
		if !s.canFire(slot, now) {
			return nil
		}
		s.markFire(now)
		s.waiting = true
		return []Action{slotAction("sequencer", slot.Key, s.index)}
	}

	// Icon absent.
	if s.waiting {
		s.advance(cfg)
		s.waiting = false
		return nil
	}
	if slot.Bypass {
		s.advance(cfg)
		return nil
	}
	return nil
}

// canFire checks the global fire spacing and the slot's own cooldown.
func (s *SkillSequencer) canFire(slot SlotConfig, now time.Time) bool {
	if now.Sub(s.lastFire) < minFireSpacing {
		return false
	}
	return now.Sub(s.fired[s.index]) >= slot.Cooldown
}

// markFire records a fire on the current slot.
func (s *SkillSequencer) markFire(now time.Time) {
	s.lastFire = now
	s.fired[s.index] = now
}

// advance moves the cursor to the next enabled slot, wrapping.
func (s *SkillSequencer) advance(cfg *BotConfig) {
	for i := 0; i < MaxSlots; i++ {
		s.index = (s.index + 1) % MaxSlots
		if cfg.SkillSlots[s.index].Enabled {
			return
		}
	}
	s.index = 0
}

// slotAction builds a slot-bound key press.
func slotAction(source, key string, idx int) Action {
	a := PressAction(source, key)
	a.SlotIdx = idx
	return a
}

// firstEnabledSlot returns the index of the first enabled slot, or 0.
func firstEnabledSlot(slots [MaxSlots]SlotConfig) int {
	for i, s := range slots {
		if s.Enabled {
			return i
		}
	}
	return 0
}

// countEnabled counts enabled slots.
func countEnabled(slots [MaxSlots]SlotConfig) int {
	n := 0
	for _, s := range slots {
		if s.Enabled {
			n++
		}
	}
	return n
}
