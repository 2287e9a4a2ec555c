// Package main - mobfilter.go
//
// Mob filter: classifies a recognized enemy name against allow/deny lists.
// Matching is case-insensitive substring matching so minor OCR artifacts
// around an otherwise correct name still match.
package main

import "strings"

// AcceptMobName reports whether the recognized name should be engaged.
//
// Rules:
//   - Empty names are never accepted.
//   - Deny entries win over allow entries.
//   - With filtering disabled, every non-empty name is accepted.
//   - With filtering enabled and an empty allow list, every name not
//     denied is accepted.
func AcceptMobName(name string, cfg *BotConfig) bool {
	if name == "" {
		return false
	}
	if !cfg.MobFilterOn {
		return true
	}

	lower := strings.ToLower(name)
	for _, deny := range cfg.MobDeny {
		if deny != "" && strings.Contains(lower, strings.ToLower(deny)) {
			return false
		}
	}
	if len(cfg.MobAllow) == 0 {
		return true
	}
	for _, allow := range cfg.MobAllow {
		if allow != "" && strings.Contains(lower, strings.ToLower(allow)) {
			return true
		}
	}
	return false
}
