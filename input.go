// Package main - input.go
//
// This file defines the input sink boundary and its native robotgo
// implementation. Actions arrive already arbitrated by the orchestrator;
// the sink just executes them.
//
// Coordinates in Actions are window-relative; the native sink adds the
// window origin before moving the mouse.
package main

import (
	"time"

	"github.com/go-vgo/robotgo"
)

// InputSink executes key presses and mouse clicks at the OS level.
// Fire-and-forget; failures are logged by the caller and the tick
// continues.
type InputSink interface {
	PressKey(key string) error
	ClickAt(p Point) error
	HoldKey(key string, d time.Duration) error
}

// PressKey taps the key in the connected window.
func (w *NativeWindow) PressKey(key string) error {
	return robotgo.KeyTap(key)
}

// ClickAt clicks the left button at a window-relative point.
func (w *NativeWindow) ClickAt(p Point) error {
	o := w.origin()
	robotgo.Move(o.X+p.X, o.Y+p.Y)
	robotgo.MilliSleep(20)
	robotgo.Click("left", false)
	return nil
}

// HoldKey keeps the key down for the duration. Blocks the caller; the
// orchestrator only uses short holds (movement bursts).
func (w *NativeWindow) HoldKey(key string, d time.Duration) error {
	if err := robotgo.KeyToggle(key, "down"); err != nil {
		return err
	}
	robotgo.MilliSleep(int(d.Milliseconds()))
	return robotgo.KeyToggle(key, "up")
}

// Dispatch executes one arbitrated action against the sink.
func Dispatch(sink InputSink, a Action) error {
	switch a.Kind {
	case ActionPressKey:
		LogDebug("Input: press %q (%s)", a.Key, a.Source)
		return sink.PressKey(a.Key)
	case ActionClick:
		LogDebug("Input: click (%d,%d) (%s)", a.At.X, a.At.Y, a.Source)
		return sink.ClickAt(a.At)
	case ActionHoldKey:
		LogDebug("Input: hold %q for %s (%s)", a.Key, a.Hold, a.Source)
		return sink.HoldKey(a.Key, a.Hold)
	}
	return nil
}
