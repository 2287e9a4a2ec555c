// Package main - template.go
//
// This file implements template matching: loading reference icon images,
// generating scaled variants for resolution drift, and searching frame
// regions with normalized cross-correlation.
//
// Major Components:
//
// 1. TemplateStore:
//    - Loads PNG assets from the templates directory at startup
//    - Pre-builds grayscale variants at scales 1.0, 0.9, 1.1, 0.8, 1.2
//    - Assets are immutable after loading
//
// 2. Matcher:
//    - Converts the frame region to a grayscale Mat
//    - Runs MatchTemplate (TM_CCOEFF_NORMED) per scale variant
//    - Returns the best score across scales; Found when the score clears
//      the threshold
//
// Thresholds:
//   - IconMatchThreshold (0.70): skill/buff icon presence
//   - AnchorMatchThreshold (0.65): calibration anchors
//
// Match locations are reported in window coordinates (region offset added
// back), pointing at the center of the matched template.
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	"github.com/vcaesar/imgo"
	"gocv.io/x/gocv"
)

const (
	IconMatchThreshold   = 0.70
	AnchorMatchThreshold = 0.65
)

// templateScales are tried in priority order; the nominal scale first.
var templateScales = []float64{1.0, 0.9, 1.1, 0.8, 1.2}

// Template is one reference image with its pre-built scale variants.
type Template struct {
	Name     string
	variants []gocv.Mat // grayscale, one per scale
	sizes    []image.Point
}

// TemplateStore holds all loaded reference templates by name.
type TemplateStore struct {
	dir       string
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateStore creates a store rooted at dir. Assets are loaded
// lazily by name and cached.
func NewTemplateStore(dir string) *TemplateStore {
	return &TemplateStore{
		dir:       dir,
		templates: make(map[string]*Template),
	}
}

// LoadAll eagerly loads every .png in the store directory.
func (s *TemplateStore) LoadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read template dir: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".png")
		if _, err := s.Get(name); err != nil {
			LogWarn("TemplateStore: failed to load %s: %v", e.Name(), err)
			continue
		}
		loaded++
	}
	LogInfo("TemplateStore: loaded %d templates from %s", loaded, s.dir)
	return nil
}

// Get returns the named template, loading it on first use.
func (s *TemplateStore) Get(name string) (*Template, error) {
	s.mu.RLock()
	t, ok := s.templates[name]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	path := filepath.Join(s.dir, name+".png")
	img, err := imgo.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	t = &Template{Name: name}
	base := img.Bounds()
	for _, scale := range templateScales {
		w := uint(float64(base.Dx()) * scale)
		h := uint(float64(base.Dy()) * scale)
		if w == 0 || h == 0 {
			continue
		}
		scaled := resize.Resize(w, h, img, resize.Bilinear)
		mat, err := grayMat(scaled)
		if err != nil {
			t.Close()
			return nil, err
		}
		t.variants = append(t.variants, mat)
		t.sizes = append(t.sizes, image.Pt(int(w), int(h)))
	}

	s.mu.Lock()
	if existing, ok := s.templates[name]; ok {
		s.mu.Unlock()
		t.Close()
		return existing, nil
	}
	s.templates[name] = t
	s.mu.Unlock()

	LogDebug("TemplateStore: loaded %s (%dx%d, %d variants)",
		name, base.Dx(), base.Dy(), len(t.variants))
	return t, nil
}

// Close releases the template's Mats.
func (t *Template) Close() {
	for i := range t.variants {
		t.variants[i].Close()
	}
	t.variants = nil
}

// Close releases every loaded template.
func (s *TemplateStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		t.Close()
	}
	s.templates = make(map[string]*Template)
}

// Match searches the frame region for the template and returns the best
// result across scale variants. The location is the match center in
// window coordinates.
func Match(frame *Frame, region Bounds, tmpl *Template, threshold float32) MatchResult {
	result := MatchResult{}
	if frame == nil || frame.Image == nil || tmpl == nil || len(tmpl.variants) == 0 {
		return result
	}

	clipped := region.Clip(frame.Image.Bounds())
	if clipped.Empty() {
		return result
	}

	scene, err := grayMat(cropRGBA(frame.Image, clipped))
	if err != nil {
		LogError("Match: scene conversion failed: %v", err)
		return result
	}
	defer scene.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	for i, variant := range tmpl.variants {
		size := tmpl.sizes[i]
		if size.X > clipped.W || size.Y > clipped.H {
			continue
		}

		scores := gocv.NewMat()
		gocv.MatchTemplate(scene, variant, &scores, gocv.TmCcoeffNormed, mask)
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(scores)
		scores.Close()

		if maxVal > result.Score {
			result.Score = maxVal
			result.Location = Point{
				X: clipped.X + maxLoc.X + size.X/2,
				Y: clipped.Y + maxLoc.Y + size.Y/2,
			}
		}
		// Nominal scale clearing the threshold wins outright.
		if maxVal >= threshold {
			result.Found = true
			break
		}
	}

	result.Found = result.Score >= threshold
	return result
}

// cropRGBA copies a region into a tightly-packed zero-origin RGBA.
// Mat conversion reads the Pix buffer directly, so sub-images sharing the
// parent stride cannot be passed through as-is.
func cropRGBA(img *image.RGBA, region Bounds) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, region.W, region.H))
	for row := 0; row < region.H; row++ {
		srcOff := img.PixOffset(region.X, region.Y+row)
		dstOff := out.PixOffset(0, row)
		copy(out.Pix[dstOff:dstOff+region.W*4], img.Pix[srcOff:srcOff+region.W*4])
	}
	return out
}

// grayMat converts an image to a single-channel gocv Mat.
func grayMat(img image.Image) (gocv.Mat, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != rgba.Bounds().Dx()*4 || rgba.Bounds().Min != image.Pt(0, 0) {
		b := img.Bounds()
		tight := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				tight.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
			}
		}
		rgba = tight
	}

	src, err := gocv.ImageToMatRGBA(rgba)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)
	return gray, nil
}
