// Package main - calibrate.go
//
// This file implements calibration: locating the fixed screen regions the
// perception stage reads every tick. Calibration runs once on demand and
// its result is immutable; re-calibration only happens on explicit request.
//
// Stages:
//
// 1. Player bar pair:
//    HSV contour search for the red HP bar (roughly 160-168 x 12-16 px)
//    confirmed by a blue MP bar about 14 px below it. The pairing rule
//    rejects enemy HP bars and loose red UI elements.
//
// 2. Enemy regions:
//    Derived from the MP bar position. The enemy name/HP block sits at a
//    fixed offset below the player bars; the first 18 px of its height is
//    the name label, the bar underneath is the enemy HP.
//
// 3. Skill tray:
//    Template search for the tray end-cap anchors. Horizontal layout
//    variants are tried first at threshold 0.65; vertical variants are
//    the fallback at 0.60. The tray spans between the two anchors, and
//    the active-buffs strip is the 40 px band directly above it.
//
// 4. System message area:
//    Template search for the chat scrollbar anchor; the message region
//    extends left of it.
//
// Stages 3 and 4 are optional: a profile without a skill tray disables
// icon-driven sequencing, a profile without a message area disables
// message-driven repair. Stage 1 failing is a CalibrationError.
package main

import (
	"image"

	"gocv.io/x/gocv"
)

// CalibrationProfile holds the calibrated window regions. Immutable once
// computed.
type CalibrationProfile struct {
	HPBar     Bounds
	MPBar     Bounds
	EnemyName Bounds
	EnemyHP   Bounds

	SkillTray Bounds
	BuffStrip Bounds
	HasTray   bool

	SystemMessage Bounds
	HasMessages   bool
}

// anchor template names, tried in priority order per orientation.
var (
	horizontalAnchors = [][2]string{
		{"tray_left", "tray_right"},
	}
	verticalAnchors = [][2]string{
		{"tray_top", "tray_bottom"},
	}
)

const (
	barPairGap    = 14 // rows between HP bottom and MP top
	buffStripH    = 40
	nameBlockOffY = 19
	nameBlockOffX = -1
	nameBlockW    = 163
	nameBlockH    = 35
	nameLabelH    = 18
)

// Calibrator locates screen regions using the template store.
type Calibrator struct {
	templates *TemplateStore
	dumper    *DebugDumper
}

// NewCalibrator creates a calibrator.
func NewCalibrator(templates *TemplateStore, dumper *DebugDumper) *Calibrator {
	return &Calibrator{templates: templates, dumper: dumper}
}

// Calibrate derives a profile from the frame. Returns CalibrationError
// when the player bar pair cannot be located.
func (c *Calibrator) Calibrate(frame *Frame) (*CalibrationProfile, error) {
	if frame == nil || frame.Image == nil {
		return nil, &CalibrationError{Stage: "capture", Detail: "no frame"}
	}

	hpBar, mpBar, err := findBarPair(frame.Image)
	if err != nil {
		return nil, err
	}
	LogInfo("Calibrate: HP bar at %+v, MP bar at %+v", hpBar, mpBar)

	profile := &CalibrationProfile{
		HPBar: hpBar,
		MPBar: mpBar,
	}

	// Enemy block below the MP bar. The name label occupies the top of
	// the block, the enemy HP bar the rest.
	nameBlock := Bounds{
		X: mpBar.X + nameBlockOffX,
		Y: mpBar.Y + mpBar.H + nameBlockOffY,
		W: nameBlockW,
		H: nameBlockH,
	}.Clip(frame.Image.Bounds())
	profile.EnemyName = Bounds{X: nameBlock.X, Y: nameBlock.Y, W: nameBlock.W, H: nameLabelH}
	profile.EnemyHP = Bounds{
		X: nameBlock.X,
		Y: nameBlock.Y + nameLabelH,
		W: nameBlock.W,
		H: nameBlock.H - nameLabelH,
	}

	if tray, ok := c.findSkillTray(frame); ok {
		profile.SkillTray = tray
		profile.BuffStrip = Bounds{
			X: tray.X,
			Y: tray.Y - buffStripH,
			W: tray.W,
			H: buffStripH,
		}.Clip(frame.Image.Bounds())
		profile.HasTray = true
		LogInfo("Calibrate: skill tray at %+v", tray)
	} else {
		LogWarn("Calibrate: skill tray anchors not found, icon sequencing disabled")
	}

	if msg, ok := c.findMessageArea(frame); ok {
		profile.SystemMessage = msg
		profile.HasMessages = true
		LogInfo("Calibrate: system message area at %+v", msg)
	} else {
		LogWarn("Calibrate: chat scrollbar not found, message monitoring disabled")
	}

	c.dumper.Dump("calib_hp", frame, profile.HPBar)
	c.dumper.Dump("calib_mp", frame, profile.MPBar)
	c.dumper.Dump("calib_name", frame, profile.EnemyName)
	if profile.HasTray {
		c.dumper.Dump("calib_tray", frame, profile.SkillTray)
	}

	return profile, nil
}

// findBarPair locates the red HP bar with a blue MP bar below it.
func findBarPair(img *image.RGBA) (Bounds, Bounds, error) {
	src, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return Bounds{}, Bounds{}, &CalibrationError{Stage: "bars", Detail: err.Error()}
	}
	defer src.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(src, &bgr, gocv.ColorRGBAToBGR)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	redMask := maskRed(hsv)
	defer redMask.Close()
	blueMask := maskBlue(hsv)
	defer blueMask.Close()

	contours := gocv.FindContours(redMask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		w, h := rect.Dx(), rect.Dy()
		if w < 150 || w > 180 || h < 10 || h > 20 {
			continue
		}

		// Confirm the MP bar: a blue band of comparable width just below.
		probe := image.Rect(rect.Min.X, rect.Max.Y+barPairGap-6,
			rect.Max.X, rect.Max.Y+barPairGap+10).Intersect(imageRectOf(blueMask))
		if probe.Empty() {
			continue
		}
		region := blueMask.Region(probe)
		bluePixels := gocv.CountNonZero(region)
		region.Close()
		if bluePixels < w*4 {
			continue
		}

		hp := Bounds{X: rect.Min.X, Y: rect.Min.Y, W: w, H: h}
		mp := Bounds{X: rect.Min.X, Y: rect.Max.Y + barPairGap, W: w, H: h}
		return hp, mp, nil
	}

	return Bounds{}, Bounds{}, &CalibrationError{
		Stage:  "bars",
		Detail: "no red/blue bar pair found",
	}
}

// maskRed builds a binary mask of red pixels. Red straddles the hue
// wrap-around, so two bands are combined.
func maskRed(hsv gocv.Mat) gocv.Mat {
	low := gocv.NewMat()
	defer low.Close()
	high := gocv.NewMat()
	defer high.Close()

	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, 120, 80, 0),
		gocv.NewScalar(10, 255, 255, 0), &low)
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(160, 120, 80, 0),
		gocv.NewScalar(179, 255, 255, 0), &high)

	mask := gocv.NewMat()
	gocv.BitwiseOr(low, high, &mask)
	return mask
}

// maskBlue builds a binary mask of blue pixels.
func maskBlue(hsv gocv.Mat) gocv.Mat {
	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(100, 120, 80, 0),
		gocv.NewScalar(130, 255, 255, 0), &mask)
	return mask
}

// imageRectOf returns the pixel rectangle of a Mat.
func imageRectOf(m gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, m.Cols(), m.Rows())
}

// findSkillTray locates the tray between its end-cap anchors.
// Horizontal variants take priority over vertical.
func (c *Calibrator) findSkillTray(frame *Frame) (Bounds, bool) {
	full := frame.Image.Bounds()
	whole := Bounds{X: 0, Y: 0, W: full.Dx(), H: full.Dy()}

	try := func(pairs [][2]string, threshold float32, vertical bool) (Bounds, bool) {
		for _, pair := range pairs {
			first, err1 := c.templates.Get(pair[0])
			second, err2 := c.templates.Get(pair[1])
			if err1 != nil || err2 != nil {
				continue
			}
			a := Match(frame, whole, first, threshold)
			b := Match(frame, whole, second, threshold)
			if !a.Found || !b.Found {
				continue
			}
			tray := trayBetween(a.Location, b.Location, vertical)
			if tray.Empty() {
				continue
			}
			return tray.Clip(full), true
		}
		return Bounds{}, false
	}

	if tray, ok := try(horizontalAnchors, AnchorMatchThreshold, false); ok {
		return tray, ok
	}
	return try(verticalAnchors, 0.60, true)
}

// trayBetween builds the tray bounds spanning the two anchor centers.
func trayBetween(a, b Point, vertical bool) Bounds {
	if vertical {
		top, bottom := a, b
		if bottom.Y < top.Y {
			top, bottom = bottom, top
		}
		return Bounds{X: top.X - 22, Y: top.Y, W: 44, H: bottom.Y - top.Y}
	}
	left, right := a, b
	if right.X < left.X {
		left, right = right, left
	}
	return Bounds{X: left.X, Y: left.Y - 22, W: right.X - left.X, H: 44}
}

// findMessageArea locates the system message region left of the chat
// scrollbar anchor.
func (c *Calibrator) findMessageArea(frame *Frame) (Bounds, bool) {
	tmpl, err := c.templates.Get("chat_scrollbar")
	if err != nil {
		return Bounds{}, false
	}
	full := frame.Image.Bounds()
	whole := Bounds{X: 0, Y: 0, W: full.Dx(), H: full.Dy()}

	m := Match(frame, whole, tmpl, AnchorMatchThreshold)
	if !m.Found {
		return Bounds{}, false
	}

	// Message lines sit left of the scrollbar; read the bottom few lines.
	area := Bounds{
		X: m.Location.X - 420,
		Y: m.Location.Y - 60,
		W: 410,
		H: 120,
	}.Clip(full)
	return area, !area.Empty()
}
