// Package main - capture.go
//
// This file defines the frame source boundary and its native
// implementation: locating the game window by title substring and
// capturing its client area as an RGBA frame.
//
// All perception coordinates are window-relative. The native source
// captures exactly the window rectangle, so frame coordinates and window
// coordinates coincide; the input sink translates back to screen space.
package main

import (
	"strings"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
)

// FrameSource produces a timestamped raster snapshot of the target
// window on demand.
type FrameSource interface {
	Capture() (*Frame, error)
}

// NativeWindow is the OS-level game window: frame source and input sink
// in one, addressed through robotgo.
type NativeWindow struct {
	title string

	mu     sync.Mutex
	pid    int
	bounds Bounds
	found  bool
}

// NewNativeWindow creates an unconnected window handle for the given
// title substring.
func NewNativeWindow(title string) *NativeWindow {
	return &NativeWindow{title: title}
}

// Connect locates the window. Returns WindowNotFoundError when no
// process matches the title substring.
func (w *NativeWindow) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids, err := robotgo.FindIds(w.title)
	if err != nil || len(ids) == 0 {
		// Fall back to scanning process names for a substring match.
		pid, ok := findPidByName(w.title)
		if !ok {
			return &WindowNotFoundError{Title: w.title}
		}
		ids = []int{pid}
	}

	w.pid = ids[0]
	x, y, width, height := robotgo.GetBounds(w.pid)
	if width == 0 || height == 0 {
		return &WindowNotFoundError{Title: w.title}
	}
	w.bounds = Bounds{X: x, Y: y, W: width, H: height}
	w.found = true

	LogInfo("NativeWindow: connected to pid %d at %+v", w.pid, w.bounds)
	robotgo.ActivePid(w.pid)
	return nil
}

// findPidByName scans running processes for a name containing the title.
func findPidByName(title string) (int, bool) {
	pids, err := robotgo.Pids()
	if err != nil {
		return 0, false
	}
	needle := strings.ToLower(title)
	for _, pid := range pids {
		name, err := robotgo.FindName(pid)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			return pid, true
		}
	}
	return 0, false
}

// Capture grabs the window client area. The window rectangle is
// re-queried on every capture so a moved window stays tracked.
func (w *NativeWindow) Capture() (*Frame, error) {
	w.mu.Lock()
	if !w.found {
		w.mu.Unlock()
		return nil, &WindowNotFoundError{Title: w.title}
	}
	x, y, width, height := robotgo.GetBounds(w.pid)
	if width == 0 || height == 0 {
		w.mu.Unlock()
		return nil, &WindowNotFoundError{Title: w.title}
	}
	w.bounds = Bounds{X: x, Y: y, W: width, H: height}
	w.mu.Unlock()

	bit := robotgo.CaptureScreen(x, y, width, height)
	if bit == nil {
		return nil, &WindowNotFoundError{Title: w.title}
	}
	defer robotgo.FreeBitmap(bit)

	img := robotgo.ToRGBA(bit)
	return &Frame{Image: img, CapturedAt: time.Now()}, nil
}

// origin returns the current window origin in screen coordinates.
func (w *NativeWindow) origin() Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Point{X: w.bounds.X, Y: w.bounds.Y}
}
