// Package main - data.go
//
// This file defines the core data structures shared across the bot.
// It provides geometric primitives, per-tick perception results, and the
// immutable Snapshot consumed by every policy.
//
// Major Data Categories:
//
// 1. Geometric Types:
//    - Point: 2D window-relative coordinates
//    - Bounds: Rectangles with center/containment/clipping operations
//    - Color: RGB color with tolerance matching
//
// 2. Perception Results (derived per tick, never persisted):
//    - Frame: captured raster + timestamp, owned by the tick that captured it
//    - BarReading: fill percentage of a status bar region
//    - RecognizedText: OCR output with confidence
//    - MatchResult: template match score and location
//
// 3. Tracked State:
//    - EnemyState: believed state of the engaged enemy, mutated only by
//      the TargetTracker
//
// 4. The Snapshot:
//    The single per-tick bundle all policies consume. Built once by the
//    perception stage, never mutated afterwards.
//
// Thread Safety:
// All types here are plain value types. The Snapshot is safe to share
// because nothing writes to it after construction.
package main

import (
	"image"
	"math"
	"time"
)

// MaxSlots is the number of configurable skill and buff slots.
const MaxSlots = 8

// Point represents a 2D coordinate in window space.
type Point struct {
	X int
	Y int
}

// NewPoint creates a new Point
func NewPoint(x, y int) Point {
	return Point{X: x, Y: y}
}

// Distance calculates Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Bounds represents a rectangular area
type Bounds struct {
	X int // Top-left X coordinate
	Y int // Top-left Y coordinate
	W int // Width
	H int // Height
}

// NewBounds creates a new Bounds
func NewBounds(x, y, w, h int) Bounds {
	return Bounds{X: x, Y: y, W: w, H: h}
}

// Center returns the center point of the bounds
func (b Bounds) Center() Point {
	return Point{
		X: b.X + b.W/2,
		Y: b.Y + b.H/2,
	}
}

// Empty reports whether the bounds has no area
func (b Bounds) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W &&
		p.Y >= b.Y && p.Y <= b.Y+b.H
}

// Rect converts the bounds to an image.Rectangle
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Clip constrains the bounds to the given rectangle
func (b Bounds) Clip(r image.Rectangle) Bounds {
	clipped := b.Rect().Intersect(r)
	return Bounds{
		X: clipped.Min.X,
		Y: clipped.Min.Y,
		W: clipped.Dx(),
		H: clipped.Dy(),
	}
}

// In reports whether the bounds lies entirely within the rectangle
func (b Bounds) In(r image.Rectangle) bool {
	return b.Rect().In(r)
}

// Color represents an RGB color
type Color struct {
	R uint8
	G uint8
	B uint8
}

// NewColor creates a new Color
func NewColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Matches checks if another color matches within tolerance
func (c Color) Matches(other Color, tolerance uint8) bool {
	return absDiff(c.R, other.R) <= tolerance &&
		absDiff(c.G, other.G) <= tolerance &&
		absDiff(c.B, other.B) <= tolerance
}

// absDiff returns absolute difference between two uint8 values
func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// Frame is a captured raster snapshot of the target window.
//
// A Frame belongs to the tick that captured it: the perception stage reads
// it, the Snapshot carries only derived values, and the Frame is dropped
// when the tick ends.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
}

// Bounds returns the pixel bounds of the frame
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// BarReading is the fill percentage read from a bar region.
// Derived per tick; a 0% reading is a valid result, not a fault.
type BarReading struct {
	Percent int
	Region  Bounds
}

// RecognizedText is the post-processed OCR result for a region.
// Empty text is a valid "nothing recognized" result, not an error.
type RecognizedText struct {
	Text       string
	Confidence float64
}

// MatchResult is the outcome of a template search within a region.
type MatchResult struct {
	Found    bool
	Score    float32
	Location Point
}

// TargetState enumerates the Target Tracker states.
type TargetState int

const (
	TargetNoTarget TargetState = iota
	TargetEngaged
	TargetDead
	TargetLost
)

// String returns the string representation of the state
func (s TargetState) String() string {
	switch s {
	case TargetNoTarget:
		return "NoTarget"
	case TargetEngaged:
		return "Engaged"
	case TargetDead:
		return "Dead"
	case TargetLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// TargetEvent is emitted by the Target Tracker when the engaged enemy
// changes. The Skill Sequencer consumes it to reset its sequence index.
type TargetEvent int

const (
	TargetEventNone TargetEvent = iota
	TargetEventAcquired
	TargetEventDied
	TargetEventLost
)

// String returns the string representation of the event
func (e TargetEvent) String() string {
	switch e {
	case TargetEventNone:
		return "None"
	case TargetEventAcquired:
		return "Acquired"
	case TargetEventDied:
		return "Died"
	case TargetEventLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// EnemyState is the believed state of the currently engaged enemy.
// Mutated only by the Target Tracker; reset when the enemy dies or is lost.
type EnemyState struct {
	Name           string
	HealthPercent  int
	LastSeenTick   uint64
	ConsideredDead bool
}

// Snapshot is the per-tick perception bundle consumed by every policy.
//
// Bar readings always match the same-tick frame. The enemy name and the
// system message text are OCR results and may lag behind the frame by up
// to the configured OCR interval; the Stale flags mark carried-over
// readings.
type Snapshot struct {
	Tick       uint64
	CapturedAt time.Time

	HP      BarReading
	MP      BarReading
	EnemyHP BarReading

	EnemyName  RecognizedText
	NameStale  bool
	SystemText RecognizedText
	TextStale  bool

	// Per-slot template results against the calibrated skill tray.
	SkillReady [MaxSlots]MatchResult

	// Per-slot buff results: presence in the active-buffs strip, and the
	// icon location in the skill tray for click activation.
	BuffActive [MaxSlots]MatchResult
	BuffIcon   [MaxSlots]MatchResult

	// Assist control button, searched in the skill tray region.
	AssistButton MatchResult

	// Tracker state as of the previous tick.
	Target EnemyState
}

// ActionKind classifies a requested input action.
type ActionKind int

const (
	ActionPressKey ActionKind = iota
	ActionClick
	ActionHoldKey
)

// Action is an input request produced by a policy. The orchestrator
// arbitrates all requests for a tick and forwards the accepted ones to
// the input sink in policy order.
type Action struct {
	Kind    ActionKind
	Key     string
	At      Point
	Hold    time.Duration
	Source  string
	SlotIdx int // -1 when not slot-bound
}

// PressAction builds a key press request
func PressAction(source, key string) Action {
	return Action{Kind: ActionPressKey, Key: key, Source: source, SlotIdx: -1}
}

// ClickAction builds a mouse click request
func ClickAction(source string, at Point) Action {
	return Action{Kind: ActionClick, At: at, Source: source, SlotIdx: -1}
}

// HoldAction builds a held key request
func HoldAction(source, key string, hold time.Duration) Action {
	return Action{Kind: ActionHoldKey, Key: key, Hold: hold, Source: source, SlotIdx: -1}
}

// StatusSnapshot is the read-only view published for the configuration
// surface. The orchestrator publishes a fresh value after each tick;
// loop-owned state is never handed out.
type StatusSnapshot struct {
	Running      bool      `json:"running"`
	Paused       bool      `json:"paused"`
	Tick         uint64    `json:"tick"`
	TrackerState string    `json:"trackerState"`
	HPPercent    int       `json:"hpPercent"`
	MPPercent    int       `json:"mpPercent"`
	EnemyName    string    `json:"enemyName"`
	EnemyHP      int       `json:"enemyHp"`
	KillCount    int       `json:"killCount"`
	StartedAt    time.Time `json:"startedAt"`
	LastError    string    `json:"lastError,omitempty"`
}
