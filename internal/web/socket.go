package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketRequest is the incoming WebSocket message format.
type socketRequest struct {
	Type   string `json:"type"` // "generate" or "clear"
	APIKey string `json:"api_key"`
	Prompt string `json:"prompt"`
}

// socketEvent is the outgoing WebSocket message format.
type socketEvent struct {
	Type    string          `json:"type"` // "state", "result", "cleared", "busy" or "error"
	CycleID string          `json:"cycle_id,omitempty"`
	State   flowchart.State `json:"state,omitempty"`
	Result  *cycleView      `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// socket serializes writes; gorilla connections allow one concurrent writer.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) send(ev socketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		logger.Debugf("web: websocket write: %v", err)
	}
}

func (d *Web) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock := &socket{conn: conn}
	// One page, one generator: the page's artifact and in-flight guard.
	gen := d.newGenerator(flowchart.WithObserver(func(cycleID string, s flowchart.State) {
		sock.send(socketEvent{Type: "state", CycleID: cycleID, State: s})
	}))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("web: websocket read: %v", err)
			}
			cancel()
			return
		}

		var req socketRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			sock.send(socketEvent{Type: "error", Message: "invalid message format"})
			continue
		}

		switch req.Type {
		case "generate":
			if gen.Busy() {
				sock.send(socketEvent{Type: "busy", Message: flowchart.ErrBusy.Error()})
				continue
			}
			wg.Add(1)
			go func(req socketRequest) {
				defer wg.Done()
				c, err := gen.Generate(ctx, req.APIKey, req.Prompt)
				if errors.Is(err, flowchart.ErrBusy) {
					sock.send(socketEvent{Type: "busy", Message: err.Error()})
					return
				}
				if err != nil {
					sock.send(socketEvent{Type: "error", Message: err.Error()})
					return
				}
				v := d.view(c)
				sock.send(socketEvent{Type: "result", CycleID: c.ID, Result: &v})
			}(req)
		case "clear":
			gen.Clear()
			sock.send(socketEvent{Type: "cleared"})
		default:
			sock.send(socketEvent{Type: "error", Message: "unknown message type: " + req.Type})
		}
	}
}
