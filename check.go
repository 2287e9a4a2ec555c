// Package main - check.go
//
// Offline calibration check for detection debugging without a live game.
// Loads a screenshot, runs calibration and the per-region readers on it,
// draws the located regions, and saves the result.
//
// Usage:
//   1. Place a screenshot as check.png in the current directory
//   2. Run: go run . --check
//   3. Inspect result.png and Debug.log
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"
)

// RunOfflineCheck calibrates against check.png and writes result.png
// with the located regions outlined.
func RunOfflineCheck(calibrator *Calibrator, reader *TextReader, store *ConfigStore) error {
	LogInfo("=== Offline Check Started ===")

	f, err := os.Open("check.png")
	if err != nil {
		return fmt.Errorf("failed to open check.png: %w", err)
	}
	src, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode check.png: %w", err)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x-bounds.Min.X, y-bounds.Min.Y, src.At(x, y))
		}
	}
	frame := &Frame{Image: rgba, CapturedAt: time.Now()}

	profile, err := calibrator.Calibrate(frame)
	if err != nil {
		return err
	}

	cfg := store.Load()
	hp := ReadBar(frame, profile.HPBar, HPColorRef)
	mp := ReadBar(frame, profile.MPBar, MPColorRef)
	enemyHP := ReadBar(frame, profile.EnemyHP, EnemyHPColorRef)
	LogInfo("Check: HP %d%%, MP %d%%, enemy HP %d%%", hp.Percent, mp.Percent, enemyHP.Percent)

	if reader != nil {
		name := reader.ReadText(frame, profile.EnemyName, cfg.ConfidenceFloor)
		LogInfo("Check: enemy name %q (confidence %.2f)", name.Text, name.Confidence)
	}

	out := image.NewRGBA(rgba.Bounds())
	copy(out.Pix, rgba.Pix)
	drawBox(out, profile.HPBar, color.RGBA{R: 0, G: 255, B: 0, A: 255})
	drawBox(out, profile.MPBar, color.RGBA{R: 0, G: 255, B: 0, A: 255})
	drawBox(out, profile.EnemyName, color.RGBA{R: 0, G: 255, B: 255, A: 255})
	drawBox(out, profile.EnemyHP, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	if profile.HasTray {
		drawBox(out, profile.SkillTray, color.RGBA{R: 255, G: 255, B: 0, A: 255})
		drawBox(out, profile.BuffStrip, color.RGBA{R: 255, G: 128, B: 0, A: 255})
	}
	if profile.HasMessages {
		drawBox(out, profile.SystemMessage, color.RGBA{R: 255, G: 0, B: 255, A: 255})
	}

	rf, err := os.Create("result.png")
	if err != nil {
		return fmt.Errorf("failed to create result.png: %w", err)
	}
	defer rf.Close()
	if err := png.Encode(rf, out); err != nil {
		return fmt.Errorf("failed to write result.png: %w", err)
	}

	LogInfo("=== Offline Check Complete: result.png written ===")
	return nil
}

// drawBox outlines the bounds on the image with a 2px border.
func drawBox(img *image.RGBA, b Bounds, c color.RGBA) {
	clipped := b.Clip(img.Bounds())
	if clipped.Empty() {
		return
	}
	for t := 0; t < 2; t++ {
		for x := clipped.X; x < clipped.X+clipped.W; x++ {
			img.SetRGBA(x, clipped.Y+t, c)
			img.SetRGBA(x, clipped.Y+clipped.H-1-t, c)
		}
		for y := clipped.Y; y < clipped.Y+clipped.H; y++ {
			img.SetRGBA(clipped.X+t, y, c)
			img.SetRGBA(clipped.X+clipped.W-1-t, y, c)
		}
	}
}
