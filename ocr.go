// Package main - ocr.go
//
// This file implements the text reader on top of the Tesseract engine.
//
// Pipeline per read:
//   1. Crop the region from the frame.
//   2. Upscale 4x (small in-game name labels are unreadable at native
//      size) and binarize against a brightness threshold.
//   3. Run Tesseract, collect word confidences.
//   4. Post-process: trim, strip non-letter artifacts, collapse runs of
//      whitespace.
//
// Confidence below the configured floor yields empty text, not an error.
// OCR noise is expected, not exceptional.
package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	"github.com/otiai10/gosseract"
)

const ocrUpscale = 4

// TextReader wraps a Tesseract client. The client is not safe for
// concurrent use, so reads are serialized with a mutex.
type TextReader struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTextReader creates a reader configured for single-line English text.
func NewTextReader() (*TextReader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, err
	}
	// Single text line suits name labels and chat lines.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, err
	}
	return &TextReader{client: client}, nil
}

// Close releases the Tesseract client.
func (r *TextReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

// ReadText recognizes text in the region. Results below confidenceFloor
// come back with empty text and the measured confidence.
func (r *TextReader) ReadText(frame *Frame, region Bounds, confidenceFloor float64) RecognizedText {
	result := RecognizedText{}
	if frame == nil || frame.Image == nil || region.Empty() {
		return result
	}
	clipped := region.Clip(frame.Image.Bounds())
	if clipped.Empty() {
		return result
	}

	prepared := prepareForOCR(cropRGBA(frame.Image, clipped))

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		LogError("TextReader: failed to encode region: %v", err)
		return result
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		LogError("TextReader: failed to set image: %v", err)
		return result
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		LogDebug("TextReader: recognition failed: %v", err)
		return result
	}

	var words []string
	var confSum float64
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		words = append(words, word)
		confSum += box.Confidence
	}
	if len(words) == 0 {
		return result
	}

	result.Confidence = confSum / float64(len(words)) / 100.0
	if result.Confidence < confidenceFloor {
		LogDebug("TextReader: confidence %.2f below floor %.2f, dropping %q",
			result.Confidence, confidenceFloor, strings.Join(words, " "))
		return result
	}

	result.Text = cleanOCRText(strings.Join(words, " "))
	return result
}

// prepareForOCR upscales the crop and binarizes it to black text on a
// white background.
func prepareForOCR(crop *image.RGBA) image.Image {
	b := crop.Bounds()
	scaled := resize.Resize(uint(b.Dx()*ocrUpscale), uint(b.Dy()*ocrUpscale), crop, resize.Bilinear)

	sb := scaled.Bounds()
	out := image.NewGray(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			r, g, bl, _ := scaled.At(x, y).RGBA()
			// Name labels render as light text; keep bright pixels as
			// text (black) and drop the rest to background (white).
			lum := (299*r + 587*g + 114*bl) / 1000 >> 8
			if lum > 160 {
				out.SetGray(x-sb.Min.X, y-sb.Min.Y, color.Gray{Y: 0})
			} else {
				out.SetGray(x-sb.Min.X, y-sb.Min.Y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// cleanOCRText strips recognition artifacts: everything outside letters,
// digits, spaces and a few name punctuation marks, then collapses
// whitespace runs.
func cleanOCRText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == ' ', r == '\'', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeName lowercases a recognized name for matching.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
