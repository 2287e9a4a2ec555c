// Package main - bars.go
//
// This file implements the bar reader: the fill percentage of a status
// bar region is derived by classifying pixels column by column against a
// fill-color reference with tolerance.
//
// Algorithm:
//   1. Clip the region to the frame bounds.
//   2. For each column, count pixels matching the reference color.
//      A column is "filled" when at least half its height matches.
//   3. Percent = rightmost filled column / region width. A fill reaching
//      within 2 columns of the right edge reads as 100 to absorb border
//      shading.
//
// A region with no matching pixels reads 0. Absence of color is a valid
// reading, never an error.
package main

import "image"

// BarColorRef describes the fill color of a bar and its match tolerance.
type BarColorRef struct {
	Fill      Color
	Tolerance uint8
}

// Default color references for the three bar kinds. The HP and enemy HP
// bars share the same red fill; the values allow for the gradient shading
// the client renders across the bar height.
var (
	HPColorRef      = BarColorRef{Fill: Color{R: 218, G: 48, B: 46}, Tolerance: 60}
	MPColorRef      = BarColorRef{Fill: Color{R: 38, G: 100, B: 219}, Tolerance: 60}
	EnemyHPColorRef = BarColorRef{Fill: Color{R: 218, G: 48, B: 46}, Tolerance: 60}
)

// ReadBar scans the region of the frame and returns its fill percentage.
// The result is always in [0,100]. An empty or out-of-frame region reads 0.
func ReadBar(frame *Frame, region Bounds, ref BarColorRef) BarReading {
	reading := BarReading{Percent: 0, Region: region}
	if frame == nil || frame.Image == nil || region.Empty() {
		return reading
	}

	clipped := region.Clip(frame.Image.Bounds())
	if clipped.Empty() {
		return reading
	}

	reading.Percent = scanFillPercent(frame.Image, clipped, ref)
	return reading
}

// scanFillPercent implements the column scan on a clipped region.
func scanFillPercent(img *image.RGBA, region Bounds, ref BarColorRef) int {
	lastFilled := -1
	minMatch := region.H / 2
	if minMatch < 1 {
		minMatch = 1
	}

	for col := 0; col < region.W; col++ {
		matches := 0
		for row := 0; row < region.H; row++ {
			off := img.PixOffset(region.X+col, region.Y+row)
			px := Color{R: img.Pix[off], G: img.Pix[off+1], B: img.Pix[off+2]}
			if ref.Fill.Matches(px, ref.Tolerance) {
				matches++
			}
		}
		if matches >= minMatch {
			lastFilled = col
		}
	}

	if lastFilled < 0 {
		return 0
	}
	// Border shading keeps the final column or two from matching on a
	// full bar.
	if lastFilled >= region.W-2 {
		return 100
	}

	percent := (lastFilled + 1) * 100 / region.W
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
