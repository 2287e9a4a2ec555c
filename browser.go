// Package main - browser.go
//
// This file implements the browser-hosted game window: a chromedp-managed
// Chrome instance that doubles as frame source and input sink. Used when
// the game runs in a browser instead of a native client.
//
// Key Responsibilities:
//   - Chromedp browser lifecycle management (start, navigate, close)
//   - Screenshot capture with timeout protection (5s)
//   - Key and mouse dispatch through the CDP input domain
//   - Cookie persistence (save/load for session continuation)
//
// Browser Architecture:
// The BrowserWindow uses nested contexts for proper resource management:
//   - allocCtx: Allocator context for browser process management
//   - ctx: Browser context for page operations
// Both contexts have cancel functions for graceful cleanup.
//
// Timeout Strategy:
//   - Navigation: 60 seconds (slow network tolerance)
//   - Screenshot: 5 seconds (prevent hanging)
//   - Input dispatch: 2 seconds
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// CookieData is the serializable browser cookie form persisted between
// sessions.
type CookieData struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// BrowserWindow manages the chromedp browser instance hosting the game.
// It implements FrameSource and InputSink.
//
// Concurrency:
// Context operations are protected by chromedp's internal
// synchronization; the orchestrator serializes all input dispatch.
type BrowserWindow struct {
	url         string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowserWindow creates an unstarted browser window for the game URL.
func NewBrowserWindow(url string) *BrowserWindow {
	return &BrowserWindow{url: url}
}

// Start launches Chrome and navigates to the game URL. Previously saved
// cookies are restored before navigation so the session continues.
func (b *BrowserWindow) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false), // Show browser window
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(800, 600),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	LogInfo("Browser allocator context created")

	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		LogDebug(format, args...)
	}))
	LogInfo("Browser context created")

	if cookies, err := loadCookies(); err == nil && len(cookies) > 0 {
		LogInfo("Setting %d cookies before navigation", len(cookies))
		if err := b.SetCookies(cookies); err != nil {
			LogWarn("Failed to set cookies before navigation: %v", err)
		}
	}

	LogInfo("Navigating to %s", b.url)

	navCtx, navCancel := context.WithTimeout(b.ctx, 60*time.Second)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(b.url)); err != nil {
		LogError("Navigation error: %v", err)
		return err
	}

	LogInfo("Navigation completed successfully")

	// The game is up once its canvas renders. Cookies are saved at that
	// point, the page rewrites session cookies during load.
	if b.waitForCanvas(30 * time.Second) {
		LogInfo("Game canvas detected, saving cookies")
		if err := b.SaveCookies(); err != nil {
			LogWarn("Failed to save cookies after load: %v", err)
		}
	} else {
		LogWarn("Game canvas not detected after navigation, game may still be loading")
	}
	return nil
}

// waitForCanvas polls for the game canvas until it appears or the
// timeout passes.
func (b *BrowserWindow) waitForCanvas(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.CheckCanvasExists() {
			return true
		}
		time.Sleep(time.Second)
	}
	return false
}

// CheckCanvasExists checks if the game canvas element exists in the page
func (b *BrowserWindow) CheckCanvasExists() bool {
	if b.ctx == nil || b.ctx.Err() != nil {
		LogDebug("Browser context is invalid")
		return false
	}

	var canvasExists bool
	checkCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()

	err := chromedp.Run(checkCtx,
		chromedp.Evaluate(`document.getElementById('canvas') !== null`, &canvasExists),
	)
	if err != nil {
		LogDebug("Failed to check canvas existence: %v", err)
		return false
	}
	return canvasExists
}

// Capture takes a screenshot of the current browser page.
//
// Typical capture time is 10-50ms; the 5 second timeout handles edge
// cases without blocking the loop indefinitely.
func (b *BrowserWindow) Capture() (*Frame, error) {
	if b.ctx == nil || b.ctx.Err() != nil {
		return nil, fmt.Errorf("browser context is invalid")
	}

	var buf []byte
	captureCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	defer cancel()

	err := chromedp.Run(captureCtx,
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		LogDebug("Screenshot failed: %v", err)
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}

	return &Frame{Image: rgba, CapturedAt: time.Now()}, nil
}

// PressKey dispatches a full key press to the page.
func (b *BrowserWindow) PressKey(key string) error {
	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	return chromedp.Run(ctx, chromedp.KeyEvent(keyInput(key)))
}

// ClickAt clicks the left button at the page coordinate.
func (b *BrowserWindow) ClickAt(p Point) error {
	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	return chromedp.Run(ctx, chromedp.MouseClickXY(float64(p.X), float64(p.Y)))
}

// HoldKey keeps the key down for the duration via raw CDP key events.
func (b *BrowserWindow) HoldKey(key string, d time.Duration) error {
	k := keyInput(key)
	ctx, cancel := context.WithTimeout(b.ctx, d+2*time.Second)
	defer cancel()
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchKeyEvent(input.KeyRawDown).WithKey(k).Do(ctx); err != nil {
			return err
		}
		time.Sleep(d)
		return input.DispatchKeyEvent(input.KeyUp).WithKey(k).Do(ctx)
	}))
}

// keyInput maps config key names to chromedp key strings.
func keyInput(key string) string {
	switch key {
	case "tab":
		return kb.Tab
	case "enter":
		return kb.Enter
	case "space":
		return " "
	case "escape", "esc":
		return kb.Escape
	case "f1":
		return kb.F1
	case "f2":
		return kb.F2
	case "f3":
		return kb.F3
	case "f4":
		return kb.F4
	case "f5":
		return kb.F5
	case "f6":
		return kb.F6
	case "f7":
		return kb.F7
	case "f8":
		return kb.F8
	case "f9":
		return kb.F9
	case "f10":
		return kb.F10
	case "f11":
		return kb.F11
	case "f12":
		return kb.F12
	}
	return key
}

// GetCookies retrieves all cookies from the browser
func (b *BrowserWindow) GetCookies() ([]CookieData, error) {
	if b.ctx == nil || b.ctx.Err() != nil {
		return nil, fmt.Errorf("browser context is invalid")
	}

	var cookies []*network.Cookie
	err := chromedp.Run(b.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		LogError("Failed to get cookies: %v", err)
		return nil, err
	}

	cookieData := make([]CookieData, len(cookies))
	for i, c := range cookies {
		cookieData[i] = CookieData{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
	}

	LogInfo("Retrieved %d cookies from browser", len(cookieData))
	return cookieData, nil
}

// SetCookies sets cookies in the browser
func (b *BrowserWindow) SetCookies(cookies []CookieData) error {
	if len(cookies) == 0 {
		return nil
	}

	err := chromedp.Run(b.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				params := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithHTTPOnly(c.HTTPOnly).
					WithSecure(c.Secure)

				if c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					params = params.WithExpires(&expires)
				}
				if c.SameSite != "" {
					params = params.WithSameSite(network.CookieSameSite(c.SameSite))
				}

				if err := params.Do(ctx); err != nil {
					LogWarn("Failed to set cookie %s: %v", c.Name, err)
				}
			}
			return nil
		}),
	)
	if err != nil {
		LogError("Failed to set cookies: %v", err)
		return err
	}

	LogInfo("Set %d cookies in browser", len(cookies))
	return nil
}

const cookieFile = "cookies.json"

// SaveCookies persists the current browser cookies to disk.
func (b *BrowserWindow) SaveCookies() error {
	cookies, err := b.GetCookies()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cookieFile, data, 0644)
}

// loadCookies reads previously saved cookies. A missing file yields an
// empty slice.
func loadCookies() ([]CookieData, error) {
	data, err := os.ReadFile(cookieFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cookies []CookieData
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}

// Close shuts down the browser, saving cookies first.
func (b *BrowserWindow) Close() {
	LogInfo("Closing browser...")
	if b.ctx != nil && b.ctx.Err() == nil {
		if err := b.SaveCookies(); err != nil {
			LogWarn("Failed to save cookies: %v", err)
		}
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	LogInfo("Browser closed successfully")
}
