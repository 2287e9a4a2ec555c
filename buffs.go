// Package main - buffs.go
//
// This file implements the buff scheduler. Unlike the sequencer it is
// unordered and independent of targeting: every enabled buff slot is
// evaluated each pass, and firing one slot never blocks the others.
//
// A buff is due when its template is absent from the active-buffs strip
// (the fixed band above the skill tray) and its per-slot cooldown has
// elapsed. Activation clicks the buff's icon in the skill tray when the
// icon was located this tick, otherwise it falls back to the slot's key.
// At most one fire per slot per tick.
package main

import "time"

// BuffScheduler tracks per-slot fire times. All methods run on the loop
// goroutine.
type BuffScheduler struct {
	fired [MaxSlots]time.Time
}

// NewBuffScheduler creates a scheduler with all cooldowns expired.
func NewBuffScheduler() *BuffScheduler {
	return &BuffScheduler{}
}

// Evaluate returns the activations due this tick, in slot order.
func (b *BuffScheduler) Evaluate(snap *Snapshot, cfg *BotConfig, now time.Time) []Action {
	if !cfg.BuffsOn {
		return nil
	}

	var actions []Action
	for i, slot := range cfg.BuffSlots {
		if !slot.Enabled {
			continue
		}
		if slot.Template != "" && snap.BuffActive[i].Found {
			continue // buff currently active
		}
		if now.Sub(b.fired[i]) < slot.Cooldown {
			continue
		}

		var a Action
		if slot.Template != "" && snap.BuffIcon[i].Found {
			a = ClickAction("buffs", snap.BuffIcon[i].Location)
		} else if slot.Key != "" {
			a = PressAction("buffs", slot.Key)
		} else {
			continue
		}
		a.SlotIdx = i
		b.fired[i] = now
		actions = append(actions, a)
	}
	return actions
}
