// Package main - tray.go
//
// This file implements the system tray UI. Uses getlantern/systray for
// cross-platform tray menu support.
//
// Menu Structure:
//   Kathana Bot
//   ├─ Status: state | HP | kills (read-only, refreshed every second)
//   ├─ Calibrate (explicit re-calibration)
//   ├─ Start / Pause
//   ├─ Features
//   │  ├─ Auto Attack
//   │  ├─ Mob Filter
//   │  ├─ Unstuck
//   │  ├─ Assist Mode
//   │  ├─ Buffs
//   │  ├─ Loot
//   │  └─ Debug Images
//   ├─ Skill Slots (checkboxes 1-8)
//   ├─ Buff Slots (checkboxes 1-8)
//   ├─ Thresholds (HP / MP, 0-100% in 10% steps)
//   └─ Quit (graceful shutdown)
//
// Concurrency Model:
// One goroutine per clickable item, the systray idiom. Every change goes
// through ConfigStore.Update so the loop only ever sees whole-config
// replacements, then persists to the settings file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getlantern/systray"
)

// TrayApp manages the system tray menu and its event handlers.
type TrayApp struct {
	bot    *Bot
	store  *ConfigStore
	onQuit func()

	statusItem *systray.MenuItem

	calibrateItem *systray.MenuItem
	startItem     *systray.MenuItem
	pauseItem     *systray.MenuItem

	autoAttackItem *systray.MenuItem
	mobFilterItem  *systray.MenuItem
	unstuckItem    *systray.MenuItem
	assistItem     *systray.MenuItem
	buffsItem      *systray.MenuItem
	lootItem       *systray.MenuItem
	debugItem      *systray.MenuItem

	skillSlotItems [MaxSlots]*systray.MenuItem
	buffSlotItems  [MaxSlots]*systray.MenuItem

	hpThresholdItems [11]*systray.MenuItem
	mpThresholdItems [11]*systray.MenuItem
}

// NewTrayApp creates a new tray application.
func NewTrayApp(bot *Bot, store *ConfigStore, onQuit func()) *TrayApp {
	return &TrayApp{bot: bot, store: store, onQuit: onQuit}
}

// Run starts the tray application. Blocks until quit.
func (t *TrayApp) Run() {
	LogInfo("Starting system tray application")
	systray.Run(t.onReady, func() {
		LogInfo("System tray onExit callback triggered")
		t.bot.Stop()
		if t.onQuit != nil {
			t.onQuit()
		}
		LogInfo("System tray exit complete")
	})
}

// onReady is called when the tray is ready
func (t *TrayApp) onReady() {
	systray.SetTitle("Kathana Bot")
	systray.SetTooltip("Kathana automation bot")

	t.statusItem = systray.AddMenuItem("Status: not calibrated", "Current bot status")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.calibrateItem = systray.AddMenuItem("Calibrate", "Locate screen regions on the current frame")
	t.startItem = systray.AddMenuItem("Start", "Start the control loop")
	t.pauseItem = systray.AddMenuItem("Pause", "Pause or resume the control loop")

	systray.AddSeparator()

	cfg := t.store.Load()

	featureMenu := systray.AddMenuItem("Features", "Toggle features")
	t.autoAttackItem = featureMenu.AddSubMenuItemCheckbox("Auto Attack", "", cfg.AutoAttack)
	t.mobFilterItem = featureMenu.AddSubMenuItemCheckbox("Mob Filter", "", cfg.MobFilterOn)
	t.unstuckItem = featureMenu.AddSubMenuItemCheckbox("Unstuck", "", cfg.UnstuckOn)
	t.assistItem = featureMenu.AddSubMenuItemCheckbox("Assist Mode", "", cfg.AssistOn)
	t.buffsItem = featureMenu.AddSubMenuItemCheckbox("Buffs", "", cfg.BuffsOn)
	t.lootItem = featureMenu.AddSubMenuItemCheckbox("Loot", "", cfg.LootOn)
	t.debugItem = featureMenu.AddSubMenuItemCheckbox("Debug Images", "", cfg.DebugImages)

	skillMenu := systray.AddMenuItem("Skill Slots", "Enable skill slots")
	buffMenu := systray.AddMenuItem("Buff Slots", "Enable buff slots")
	for i := 0; i < MaxSlots; i++ {
		t.skillSlotItems[i] = skillMenu.AddSubMenuItemCheckbox(
			fmt.Sprintf("Slot %d", i+1), "", cfg.SkillSlots[i].Enabled)
		t.buffSlotItems[i] = buffMenu.AddSubMenuItemCheckbox(
			fmt.Sprintf("Slot %d", i+1), "", cfg.BuffSlots[i].Enabled)
	}

	thresholdMenu := systray.AddMenuItem("Thresholds", "Configure pot thresholds")
	hpMenu := thresholdMenu.AddSubMenuItem("HP Threshold", "Set HP pot threshold")
	mpMenu := thresholdMenu.AddSubMenuItem("MP Threshold", "Set MP pot threshold")
	for i := 0; i <= 10; i++ {
		percent := i * 10
		t.hpThresholdItems[i] = hpMenu.AddSubMenuItemCheckbox(
			fmt.Sprintf("%d%%", percent), "", percent == cfg.HPThreshold)
		t.mpThresholdItems[i] = mpMenu.AddSubMenuItemCheckbox(
			fmt.Sprintf("%d%%", percent), "", percent == cfg.MPThreshold)
	}

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit the application")

	go t.handleEvents(quitItem)
	go t.refreshStatus()

	LogInfo("System tray initialized")
}

// handleEvents wires the click handlers.
func (t *TrayApp) handleEvents(quitItem *systray.MenuItem) {
	go t.handleToggle(t.autoAttackItem, "auto attack", func(cfg *BotConfig, on bool) { cfg.AutoAttack = on })
	go t.handleToggle(t.mobFilterItem, "mob filter", func(cfg *BotConfig, on bool) { cfg.MobFilterOn = on })
	go t.handleToggle(t.unstuckItem, "unstuck", func(cfg *BotConfig, on bool) { cfg.UnstuckOn = on })
	go t.handleToggle(t.assistItem, "assist", func(cfg *BotConfig, on bool) { cfg.AssistOn = on })
	go t.handleToggle(t.buffsItem, "buffs", func(cfg *BotConfig, on bool) { cfg.BuffsOn = on })
	go t.handleToggle(t.lootItem, "loot", func(cfg *BotConfig, on bool) { cfg.LootOn = on })
	go t.handleToggle(t.debugItem, "debug images", func(cfg *BotConfig, on bool) { cfg.DebugImages = on })

	for i := 0; i < MaxSlots; i++ {
		idx := i
		go t.handleToggle(t.skillSlotItems[i], fmt.Sprintf("skill slot %d", idx+1),
			func(cfg *BotConfig, on bool) { cfg.SkillSlots[idx].Enabled = on })
		go t.handleToggle(t.buffSlotItems[i], fmt.Sprintf("buff slot %d", idx+1),
			func(cfg *BotConfig, on bool) { cfg.BuffSlots[idx].Enabled = on })
	}

	for i := 0; i <= 10; i++ {
		percent := i * 10
		go t.handleThresholdClick("hp", percent, t.hpThresholdItems[i])
		go t.handleThresholdClick("mp", percent, t.mpThresholdItems[i])
	}

	for {
		select {
		case <-t.calibrateItem.ClickedCh:
			if err := t.bot.Calibrate(); err != nil {
				LogError("Tray: calibration failed: %v", err)
				t.statusItem.SetTitle(fmt.Sprintf("Status: %v", err))
			} else {
				t.statusItem.SetTitle("Status: calibrated")
			}

		case <-t.startItem.ClickedCh:
			if err := t.bot.Start(); err != nil {
				LogError("Tray: start failed: %v", err)
				t.statusItem.SetTitle(fmt.Sprintf("Status: %v", err))
			}

		case <-t.pauseItem.ClickedCh:
			t.bot.TogglePause()

		case <-quitItem.ClickedCh:
			LogInfo("Quit requested by user")
			t.bot.Stop()
			if err := t.store.SaveFile(); err != nil {
				LogWarn("Tray: failed to save settings: %v", err)
			}
			if t.onQuit != nil {
				t.onQuit()
			}
			CloseLogger()
			systray.Quit()
			os.Exit(0)
		}
	}
}

// handleToggle flips one boolean config field on each click.
func (t *TrayApp) handleToggle(item *systray.MenuItem, name string, set func(*BotConfig, bool)) {
	for {
		<-item.ClickedCh

		on := !item.Checked()
		t.store.Update(func(cfg *BotConfig) { set(cfg, on) })
		if on {
			item.Check()
		} else {
			item.Uncheck()
		}

		if err := t.store.SaveFile(); err != nil {
			LogWarn("Tray: failed to save settings: %v", err)
		}
		LogInfo("Tray: %s -> %v", name, on)
	}
}

// handleThresholdClick handles threshold selection clicks
func (t *TrayApp) handleThresholdClick(kind string, percent int, item *systray.MenuItem) {
	for {
		<-item.ClickedCh

		t.store.Update(func(cfg *BotConfig) {
			if kind == "hp" {
				cfg.HPThreshold = percent
			} else {
				cfg.MPThreshold = percent
			}
		})
		t.updateThresholdCheckmarks()

		if err := t.store.SaveFile(); err != nil {
			LogWarn("Tray: failed to save settings: %v", err)
		}
		LogInfo("Tray: %s threshold -> %d%%", kind, percent)
	}
}

// updateThresholdCheckmarks updates threshold checkmarks from the config.
func (t *TrayApp) updateThresholdCheckmarks() {
	cfg := t.store.Load()
	for i := 0; i <= 10; i++ {
		if i*10 == cfg.HPThreshold {
			t.hpThresholdItems[i].Check()
		} else {
			t.hpThresholdItems[i].Uncheck()
		}
		if i*10 == cfg.MPThreshold {
			t.mpThresholdItems[i].Check()
		} else {
			t.mpThresholdItems[i].Uncheck()
		}
	}
}

// refreshStatus updates the read-only status line once per second.
func (t *TrayApp) refreshStatus() {
	for range time.Tick(time.Second) {
		s := t.bot.Status()
		if s == nil || s.Tick == 0 {
			continue
		}
		state := s.TrackerState
		if s.Paused {
			state = "paused"
		}
		t.statusItem.SetTitle(fmt.Sprintf("Status: %s | HP %d%% | %d kills",
			state, s.HPPercent, s.KillCount))
	}
}
