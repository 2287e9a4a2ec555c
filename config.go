// Package main - config.go
//
// This file implements bot configuration: the immutable BotConfig object,
// the ConfigStore that publishes whole-object replacements to the control
// loop, and persistence as a flat key/value document.
//
// Concurrency Model:
// The control loop reads the current config exactly once per tick via
// ConfigStore.Load(). Writers (tray UI, websocket surface) build a modified
// copy and publish it with ConfigStore.Update(). The loop can never observe
// a half-updated configuration because the pointer swap is atomic and
// published configs are never mutated afterwards.
//
// Persistence:
// Settings are stored in settings.env as flat KEY=value pairs, loaded and
// written with godotenv. Unknown keys are ignored on load so older settings
// files keep working.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
)

// SlotConfig configures one skill or buff slot.
type SlotConfig struct {
	Enabled  bool
	Key      string
	Template string // template asset name, empty = key-only slot
	Bypass   bool   // skill slots: advance past the slot when its icon never appears
	Cooldown time.Duration
}

// IntervalSlotConfig configures a time-driven skill key independent of
// the sequencer.
type IntervalSlotConfig struct {
	Enabled  bool
	Key      string
	Interval time.Duration
}

// BotConfig holds every toggle, threshold and binding the bot consumes.
//
// A BotConfig is immutable after publication. To change settings, copy the
// current config, modify the copy, and publish it through ConfigStore.
type BotConfig struct {
	// Window / capture
	WindowTitle string
	UseBrowser  bool
	GameURL     string

	// Loop timing
	TickInterval       time.Duration
	OCRInterval        time.Duration
	CaptureFailLimit   int
	ConfidenceFloor    float64
	DebugImages        bool

	// Feature toggles
	AutoAttack    bool
	MobFilterOn   bool
	UnstuckOn     bool
	AssistOn      bool
	BuffsOn       bool
	LootOn        bool

	// Targeting
	TargetKey       string
	DeathDebounce   int // consecutive 0% ticks before Dead
	LostDebounce    int // consecutive missed-name ticks before Lost
	AutoTargetEvery time.Duration

	// Mob filter
	MobAllow []string
	MobDeny  []string

	// Slots
	SkillSlots    [MaxSlots]SlotConfig
	BuffSlots     [MaxSlots]SlotConfig
	IntervalSlots [4]IntervalSlotConfig

	// Pots
	HPThreshold int
	MPThreshold int
	HPPotKey    string
	MPPotKey    string
	PotInterval time.Duration

	// Repair
	RepairKey       string
	RepairWarnCount int
	RepairCooldown  time.Duration
	RepairHPDelta   int // health-delta fallback trigger, 0 = disabled

	// Unstuck
	UnstuckTimeoutTicks int

	// Assist
	AssistClickInterval time.Duration

	// Loot
	LootKey      string
	LootPresses  int
	LootCooldown time.Duration
}

// DefaultConfig returns the configuration used before any settings file
// has been loaded.
func DefaultConfig() *BotConfig {
	cfg := &BotConfig{
		WindowTitle: "Kathana",
		UseBrowser:  false,
		GameURL:     "",

		TickInterval:     150 * time.Millisecond,
		OCRInterval:      450 * time.Millisecond,
		CaptureFailLimit: 10,
		ConfidenceFloor:  0.40,
		DebugImages:      false,

		AutoAttack:  true,
		MobFilterOn: false,
		UnstuckOn:   true,
		AssistOn:    false,
		BuffsOn:     true,
		LootOn:      true,

		TargetKey:       "tab",
		DeathDebounce:   3,
		LostDebounce:    5,
		AutoTargetEvery: 2 * time.Second,

		HPThreshold: 40,
		MPThreshold: 30,
		HPPotKey:    "9",
		MPPotKey:    "0",
		PotInterval: 1500 * time.Millisecond,

		RepairKey:       "f10",
		RepairWarnCount: 3,
		RepairCooldown:  5 * time.Second,
		RepairHPDelta:   0,

		UnstuckTimeoutTicks: 100,

		AssistClickInterval: time.Second,

		LootKey:      "4",
		LootPresses:  3,
		LootCooldown: 2 * time.Second,
	}
	for i := range cfg.SkillSlots {
		cfg.SkillSlots[i] = SlotConfig{Key: strconv.Itoa(i + 1), Cooldown: 100 * time.Millisecond}
	}
	for i := range cfg.BuffSlots {
		cfg.BuffSlots[i] = SlotConfig{Cooldown: 300 * time.Millisecond}
	}
	return cfg
}

// Clone returns a deep copy safe to modify before publishing.
func (c *BotConfig) Clone() *BotConfig {
	cp := *c
	cp.MobAllow = append([]string(nil), c.MobAllow...)
	cp.MobDeny = append([]string(nil), c.MobDeny...)
	return &cp
}

// ConfigStore publishes immutable config snapshots to the control loop.
type ConfigStore struct {
	current atomic.Pointer[BotConfig]
	path    string
}

// NewConfigStore creates a store seeded with the default config.
func NewConfigStore(path string) *ConfigStore {
	s := &ConfigStore{path: path}
	s.current.Store(DefaultConfig())
	return s
}

// Load returns the current config snapshot. The returned value must be
// treated as read-only.
func (s *ConfigStore) Load() *BotConfig {
	return s.current.Load()
}

// Update applies fn to a copy of the current config and publishes the
// result. fn must not retain the copy after returning.
func (s *ConfigStore) Update(fn func(*BotConfig)) *BotConfig {
	next := s.Load().Clone()
	fn(next)
	s.current.Store(next)
	return next
}

// LoadFile reads the settings file and publishes the resulting config.
// A missing file is not an error; defaults stay in effect.
func (s *ConfigStore) LoadFile() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		LogInfo("Config: %s not found, using defaults", s.path)
		return nil
	}

	kv, err := godotenv.Read(s.path)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	cfg := DefaultConfig()
	applySettings(cfg, kv)
	s.current.Store(cfg)
	LogInfo("Config: loaded %d keys from %s", len(kv), s.path)
	return nil
}

// SaveFile writes the current config as a flat key/value document.
func (s *ConfigStore) SaveFile() error {
	kv := settingsMap(s.Load())
	if err := godotenv.Write(kv, s.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	LogInfo("Config: saved %d keys to %s", len(kv), s.path)
	return nil
}

// applySettings copies recognized keys from kv onto cfg. Unknown keys are
// ignored, malformed values keep the default and log a warning.
func applySettings(cfg *BotConfig, kv map[string]string) {
	getBool := func(key string, dst *bool) {
		if v, ok := kv[key]; ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				LogWarn("Config: bad bool for %s: %q", key, v)
				return
			}
			*dst = b
		}
	}
	getInt := func(key string, dst *int) {
		if v, ok := kv[key]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				LogWarn("Config: bad int for %s: %q", key, v)
				return
			}
			*dst = n
		}
	}
	getDur := func(key string, dst *time.Duration) {
		if v, ok := kv[key]; ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				LogWarn("Config: bad duration for %s: %q", key, v)
				return
			}
			*dst = d
		}
	}
	getStr := func(key string, dst *string) {
		if v, ok := kv[key]; ok {
			*dst = v
		}
	}
	getFloat := func(key string, dst *float64) {
		if v, ok := kv[key]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				LogWarn("Config: bad float for %s: %q", key, v)
				return
			}
			*dst = f
		}
	}
	getList := func(key string, dst *[]string) {
		if v, ok := kv[key]; ok {
			var out []string
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					out = append(out, part)
				}
			}
			*dst = out
		}
	}

	getStr("WINDOW_TITLE", &cfg.WindowTitle)
	getBool("USE_BROWSER", &cfg.UseBrowser)
	getStr("GAME_URL", &cfg.GameURL)

	getDur("TICK_INTERVAL", &cfg.TickInterval)
	getDur("OCR_INTERVAL", &cfg.OCRInterval)
	getInt("CAPTURE_FAIL_LIMIT", &cfg.CaptureFailLimit)
	getFloat("CONFIDENCE_FLOOR", &cfg.ConfidenceFloor)
	getBool("DEBUG_IMAGES", &cfg.DebugImages)

	getBool("AUTO_ATTACK", &cfg.AutoAttack)
	getBool("MOB_FILTER", &cfg.MobFilterOn)
	getBool("UNSTUCK", &cfg.UnstuckOn)
	getBool("ASSIST", &cfg.AssistOn)
	getBool("BUFFS", &cfg.BuffsOn)
	getBool("LOOT", &cfg.LootOn)

	getStr("TARGET_KEY", &cfg.TargetKey)
	getInt("DEATH_DEBOUNCE", &cfg.DeathDebounce)
	getInt("LOST_DEBOUNCE", &cfg.LostDebounce)
	getDur("AUTO_TARGET_EVERY", &cfg.AutoTargetEvery)

	getList("MOB_ALLOW", &cfg.MobAllow)
	getList("MOB_DENY", &cfg.MobDeny)

	getInt("HP_THRESHOLD", &cfg.HPThreshold)
	getInt("MP_THRESHOLD", &cfg.MPThreshold)
	getStr("HP_POT_KEY", &cfg.HPPotKey)
	getStr("MP_POT_KEY", &cfg.MPPotKey)
	getDur("POT_INTERVAL", &cfg.PotInterval)

	getStr("REPAIR_KEY", &cfg.RepairKey)
	getInt("REPAIR_WARN_COUNT", &cfg.RepairWarnCount)
	getDur("REPAIR_COOLDOWN", &cfg.RepairCooldown)
	getInt("REPAIR_HP_DELTA", &cfg.RepairHPDelta)

	getInt("UNSTUCK_TIMEOUT_TICKS", &cfg.UnstuckTimeoutTicks)

	getDur("ASSIST_CLICK_INTERVAL", &cfg.AssistClickInterval)

	getStr("LOOT_KEY", &cfg.LootKey)
	getInt("LOOT_PRESSES", &cfg.LootPresses)
	getDur("LOOT_COOLDOWN", &cfg.LootCooldown)

	for i := range cfg.SkillSlots {
		p := fmt.Sprintf("SKILL_%d_", i+1)
		getBool(p+"ENABLED", &cfg.SkillSlots[i].Enabled)
		getStr(p+"KEY", &cfg.SkillSlots[i].Key)
		getStr(p+"TEMPLATE", &cfg.SkillSlots[i].Template)
		getBool(p+"BYPASS", &cfg.SkillSlots[i].Bypass)
		getDur(p+"COOLDOWN", &cfg.SkillSlots[i].Cooldown)
	}
	for i := range cfg.BuffSlots {
		p := fmt.Sprintf("BUFF_%d_", i+1)
		getBool(p+"ENABLED", &cfg.BuffSlots[i].Enabled)
		getStr(p+"KEY", &cfg.BuffSlots[i].Key)
		getStr(p+"TEMPLATE", &cfg.BuffSlots[i].Template)
		getDur(p+"COOLDOWN", &cfg.BuffSlots[i].Cooldown)
	}
	for i := range cfg.IntervalSlots {
		p := fmt.Sprintf("INTERVAL_%d_", i+1)
		getBool(p+"ENABLED", &cfg.IntervalSlots[i].Enabled)
		getStr(p+"KEY", &cfg.IntervalSlots[i].Key)
		getDur(p+"INTERVAL", &cfg.IntervalSlots[i].Interval)
	}
}

// settingsMap flattens cfg into the key/value form written to disk.
func settingsMap(cfg *BotConfig) map[string]string {
	kv := map[string]string{
		"WINDOW_TITLE": cfg.WindowTitle,
		"USE_BROWSER":  strconv.FormatBool(cfg.UseBrowser),
		"GAME_URL":     cfg.GameURL,

		"TICK_INTERVAL":      cfg.TickInterval.String(),
		"OCR_INTERVAL":       cfg.OCRInterval.String(),
		"CAPTURE_FAIL_LIMIT": strconv.Itoa(cfg.CaptureFailLimit),
		"CONFIDENCE_FLOOR":   strconv.FormatFloat(cfg.ConfidenceFloor, 'f', 2, 64),
		"DEBUG_IMAGES":       strconv.FormatBool(cfg.DebugImages),

		"AUTO_ATTACK": strconv.FormatBool(cfg.AutoAttack),
		"MOB_FILTER":  strconv.FormatBool(cfg.MobFilterOn),
		"UNSTUCK":     strconv.FormatBool(cfg.UnstuckOn),
		"ASSIST":      strconv.FormatBool(cfg.AssistOn),
		"BUFFS":       strconv.FormatBool(cfg.BuffsOn),
		"LOOT":        strconv.FormatBool(cfg.LootOn),

		"TARGET_KEY":        cfg.TargetKey,
		"DEATH_DEBOUNCE":    strconv.Itoa(cfg.DeathDebounce),
		"LOST_DEBOUNCE":     strconv.Itoa(cfg.LostDebounce),
		"AUTO_TARGET_EVERY": cfg.AutoTargetEvery.String(),

		"MOB_ALLOW": strings.Join(cfg.MobAllow, ","),
		"MOB_DENY":  strings.Join(cfg.MobDeny, ","),

		"HP_THRESHOLD": strconv.Itoa(cfg.HPThreshold),
		"MP_THRESHOLD": strconv.Itoa(cfg.MPThreshold),
		"HP_POT_KEY":   cfg.HPPotKey,
		"MP_POT_KEY":   cfg.MPPotKey,
		"POT_INTERVAL": cfg.PotInterval.String(),

		"REPAIR_KEY":        cfg.RepairKey,
		"REPAIR_WARN_COUNT": strconv.Itoa(cfg.RepairWarnCount),
		"REPAIR_COOLDOWN":   cfg.RepairCooldown.String(),
		"REPAIR_HP_DELTA":   strconv.Itoa(cfg.RepairHPDelta),

		"UNSTUCK_TIMEOUT_TICKS": strconv.Itoa(cfg.UnstuckTimeoutTicks),

		"ASSIST_CLICK_INTERVAL": cfg.AssistClickInterval.String(),

		"LOOT_KEY":      cfg.LootKey,
		"LOOT_PRESSES":  strconv.Itoa(cfg.LootPresses),
		"LOOT_COOLDOWN": cfg.LootCooldown.String(),
	}
	for i, s := range cfg.SkillSlots {
		p := fmt.Sprintf("SKILL_%d_", i+1)
		kv[p+"ENABLED"] = strconv.FormatBool(s.Enabled)
		kv[p+"KEY"] = s.Key
		kv[p+"TEMPLATE"] = s.Template
		kv[p+"BYPASS"] = strconv.FormatBool(s.Bypass)
		kv[p+"COOLDOWN"] = s.Cooldown.String()
	}
	for i, s := range cfg.BuffSlots {
		p := fmt.Sprintf("BUFF_%d_", i+1)
		kv[p+"ENABLED"] = strconv.FormatBool(s.Enabled)
		kv[p+"KEY"] = s.Key
		kv[p+"TEMPLATE"] = s.Template
		kv[p+"COOLDOWN"] = s.Cooldown.String()
	}
	for i, s := range cfg.IntervalSlots {
		p := fmt.Sprintf("INTERVAL_%d_", i+1)
		kv[p+"ENABLED"] = strconv.FormatBool(s.Enabled)
		kv[p+"KEY"] = s.Key
		kv[p+"INTERVAL"] = s.Interval.String()
	}
	return kv
}

// SettingsKeys returns the persisted key names in sorted order.
// Used by the websocket surface to describe the schema.
func SettingsKeys(cfg *BotConfig) []string {
	kv := settingsMap(cfg)
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
