// Package main - hotkeys.go
//
// Global hotkeys, active even while the game window holds focus:
//
//   F7  - recalibrate
//   F9  - toggle pause
//   F12 - stop the loop
//
// Uses gohook's low-level keyboard hook; handlers run on the hook
// goroutine and only touch the bot through its lifecycle surface.
package main

import (
	hook "github.com/robotn/gohook"
)

// RunHotkeys registers the global hotkeys and blocks processing events.
// Run it on its own goroutine.
func RunHotkeys(bot *Bot) {
	hook.Register(hook.KeyDown, []string{"f7"}, func(e hook.Event) {
		LogInfo("Hotkeys: F7, recalibrating")
		if err := bot.Calibrate(); err != nil {
			LogError("Hotkeys: calibration failed: %v", err)
		}
	})
	hook.Register(hook.KeyDown, []string{"f9"}, func(e hook.Event) {
		LogInfo("Hotkeys: F9, toggling pause")
		bot.TogglePause()
	})
	hook.Register(hook.KeyDown, []string{"f12"}, func(e hook.Event) {
		LogInfo("Hotkeys: F12, stopping")
		bot.Stop()
	})

	s := hook.Start()
	<-hook.Process(s)
}

// StopHotkeys tears down the keyboard hook.
func StopHotkeys() {
	hook.End()
}
