package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestServer serves handler over a websocket upgrade and dials it.
func dialTestServer(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// The write pump and the message handler share one connection, so every
// frame must go through the client's write lock. Unguarded concurrent
// writes panic inside the websocket library.
func TestClientSendSerializesWriters(t *testing.T) {
	conn := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})

	client := &wsClient{conn: conn}
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				client.send(serverMessage{Type: "status", Status: &StatusSnapshot{}})
			}
		}()
	}
	wg.Wait()
}

func TestServerRepliesOnFailedCommandAndSchema(t *testing.T) {
	bot, store := testBot(t, &fakeSource{frame: testFrame(400, 300)}, &fakeSink{})
	server := NewStatusServer("", bot, store)

	conn := dialTestServer(t, server.handleWS)

	// Start without calibration fails; the reply must arrive even while
	// the status pump owns the connection.
	if err := conn.WriteJSON(clientMessage{Type: "command", Name: "start"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if err := conn.WriteJSON(clientMessage{Type: "schema"}); err != nil {
		t.Fatalf("write schema request: %v", err)
	}

	var gotError, gotSchema bool
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !gotError || !gotSchema {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("missing replies (error=%v schema=%v): %v", gotError, gotSchema, err)
		}
		switch msg.Type {
		case "error":
			if !strings.Contains(msg.Error, "calibration") {
				t.Errorf("error reply %q, want a calibration failure", msg.Error)
			}
			gotError = true
		case "schema":
			if len(msg.Keys) == 0 {
				t.Fatalf("schema reply carries no keys")
			}
			for _, want := range []string{"HP_THRESHOLD", "TICK_INTERVAL", "SKILL_1_ENABLED"} {
				found := false
				for _, k := range msg.Keys {
					if k == want {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("schema reply missing %s", want)
				}
			}
			gotSchema = true
		case "status":
			// pump traffic, ignore
		default:
			t.Errorf("unexpected message type %q", msg.Type)
		}
	}
}
