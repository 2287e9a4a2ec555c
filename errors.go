// Package main - errors.go
//
// Typed errors for the two failure classes that callers branch on:
// calibration failure (fatal to starting the loop) and window lookup
// failure at the capture boundary. Perception misses are never errors;
// they are data consumed by the policies.
package main

import "fmt"

// CalibrationError reports that a calibration stage could not locate its
// target in the frame. Start() must not succeed while calibration is
// unresolved.
type CalibrationError struct {
	Stage  string
	Detail string
}

func (e *CalibrationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("calibration failed at %s", e.Stage)
	}
	return fmt.Sprintf("calibration failed at %s: %s", e.Stage, e.Detail)
}

// WindowNotFoundError reports that no window matching the configured
// title substring could be found.
type WindowNotFoundError struct {
	Title string
}

func (e *WindowNotFoundError) Error() string {
	return fmt.Sprintf("no window matching title %q", e.Title)
}
