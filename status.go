// Package main - status.go
//
// This file implements the status/config surface: a local websocket
// endpoint that pushes StatusSnapshot frames to connected clients and
// accepts config updates and lifecycle commands.
//
// Protocol (JSON messages):
//
//   server -> client, every push interval:
//     {"type":"status", "status":{...StatusSnapshot...}}
//
//   client -> server:
//     {"type":"config", "values":{"HP_THRESHOLD":"35", ...}}
//       Applies the flat key/value settings to a copy of the current
//       config and publishes it, then persists to the settings file.
//     {"type":"command", "name":"start"|"pause"|"resume"|"stop"|"calibrate"}
//     {"type":"schema"}
//       Replies with {"type":"schema","keys":[...]}: the settings keys
//       the config message accepts.
//
// The surface never touches loop-owned state: it reads published status
// snapshots and publishes whole-config replacements.
package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const statusPushInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local-only surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the envelope for client -> server frames.
type clientMessage struct {
	Type   string            `json:"type"`
	Name   string            `json:"name,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// serverMessage is the envelope for server -> client frames.
type serverMessage struct {
	Type   string          `json:"type"`
	Status *StatusSnapshot `json:"status,omitempty"`
	Keys   []string        `json:"keys,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// wsClient wraps a connection with a write lock. The write pump and the
// message handler both send frames, and the connection allows at most
// one writer at a time.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(msg serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(msg)
}

// StatusServer serves the websocket surface.
type StatusServer struct {
	addr  string
	bot   *Bot
	store *ConfigStore
}

// NewStatusServer creates a server bound to addr (for example
// "127.0.0.1:7700").
func NewStatusServer(addr string, bot *Bot, store *ConfigStore) *StatusServer {
	return &StatusServer{addr: addr, bot: bot, store: store}
}

// ListenAndServe blocks serving the endpoint. Run it on its own
// goroutine.
func (s *StatusServer) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	LogInfo("StatusServer: listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

// handleWS upgrades the connection and runs the read and write pumps.
func (s *StatusServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		LogWarn("StatusServer: upgrade failed: %v", err)
		return
	}
	LogInfo("StatusServer: client connected from %s", r.RemoteAddr)

	client := &wsClient{conn: conn}
	done := make(chan struct{})
	go s.writePump(client, done)
	s.readPump(client)
	close(done)
	conn.Close()
	LogInfo("StatusServer: client disconnected")
}

// writePump pushes status snapshots on the push interval.
func (s *StatusServer) writePump(client *wsClient, done chan struct{}) {
	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			msg := serverMessage{Type: "status", Status: s.bot.Status()}
			if err := client.send(msg); err != nil {
				return
			}
		}
	}
}

// readPump consumes client frames until the connection drops.
func (s *StatusServer) readPump(client *wsClient) {
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			LogWarn("StatusServer: bad message: %v", err)
			continue
		}
		s.handleMessage(client, msg)
	}
}

// handleMessage applies one client frame.
func (s *StatusServer) handleMessage(client *wsClient, msg clientMessage) {
	switch msg.Type {
	case "config":
		s.store.Update(func(cfg *BotConfig) {
			applySettings(cfg, msg.Values)
		})
		if err := s.store.SaveFile(); err != nil {
			LogWarn("StatusServer: failed to persist settings: %v", err)
		}
		LogInfo("StatusServer: applied %d config keys", len(msg.Values))

	case "command":
		var err error
		switch msg.Name {
		case "start":
			err = s.bot.Start()
		case "pause":
			s.bot.Pause()
		case "resume":
			s.bot.Resume()
		case "stop":
			s.bot.Stop()
		case "calibrate":
			err = s.bot.Calibrate()
		default:
			LogWarn("StatusServer: unknown command %q", msg.Name)
			return
		}
		if err != nil {
			LogWarn("StatusServer: command %q failed: %v", msg.Name, err)
			client.send(serverMessage{Type: "error", Error: err.Error()})
		}

	case "schema":
		client.send(serverMessage{Type: "schema", Keys: SettingsKeys(s.store.Load())})

	default:
		LogWarn("StatusServer: unknown message type %q", msg.Type)
	}
}
