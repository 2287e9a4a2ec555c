// Package main - main.go
//
// Entry point. Wires the configuration store, template assets, the
// capture/input boundary (native window or browser-hosted game), the
// control loop, the websocket status surface, global hotkeys, and the
// system tray, then hands the main goroutine to the tray.
package main

import (
	"flag"
	"fmt"
	"os"
)

const (
	settingsFile = "settings.env"
	templateDir  = "templates"
)

func main() {
	statusAddr := flag.String("status", "127.0.0.1:7700", "status/config websocket address")
	calibrateNow := flag.Bool("calibrate", false, "calibrate immediately on startup")
	offlineCheck := flag.Bool("check", false, "run offline calibration check on check.png and exit")
	flag.Parse()

	if err := InitLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer CloseLogger()

	store := NewConfigStore(settingsFile)
	if err := store.LoadFile(); err != nil {
		LogError("Failed to load settings: %v", err)
	}
	cfg := store.Load()

	templates := NewTemplateStore(templateDir)
	if err := templates.LoadAll(); err != nil {
		LogWarn("Template preload: %v", err)
	}
	defer templates.Close()

	dumper := NewDebugDumper("debug", cfg.DebugImages)
	calibrator := NewCalibrator(templates, dumper)

	reader, err := NewTextReader()
	if err != nil {
		LogError("Failed to start OCR engine: %v", err)
		fmt.Fprintf(os.Stderr, "failed to start OCR engine: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	if *offlineCheck {
		if err := RunOfflineCheck(calibrator, reader, store); err != nil {
			LogError("Offline check failed: %v", err)
			fmt.Fprintf(os.Stderr, "offline check failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var source FrameSource
	var sink InputSink
	var browser *BrowserWindow

	if cfg.UseBrowser {
		browser = NewBrowserWindow(cfg.GameURL)
		if err := browser.Start(); err != nil {
			LogError("Failed to start browser: %v", err)
			os.Exit(1)
		}
		source, sink = browser, browser
	} else {
		window := NewNativeWindow(cfg.WindowTitle)
		if err := window.Connect(); err != nil {
			LogError("Failed to connect to game window: %v", err)
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		source, sink = window, window
	}

	bot := NewBot(store, source, sink, templates, calibrator, reader, dumper)

	if *calibrateNow {
		if err := bot.Calibrate(); err != nil {
			LogError("Startup calibration failed: %v", err)
		}
	}

	server := NewStatusServer(*statusAddr, bot, store)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			LogError("Status server stopped: %v", err)
		}
	}()

	go RunHotkeys(bot)

	tray := NewTrayApp(bot, store, func() {
		StopHotkeys()
		if browser != nil {
			browser.Close()
		}
	})
	tray.Run()
}
