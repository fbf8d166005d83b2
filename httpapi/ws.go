package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoravur/spooky-engine/engine/update"
	"github.com/zoravur/spooky-engine/enginelog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected websocket subscriber, mirroring the teacher's
// reactive.Client send-closure shape.
type client struct {
	send func(msgType string, payload any) error
}

// Hub fans ViewUpdates out to clients subscribed to a given view id,
// mirroring the teacher's ws.go subscribe/unsubscribe protocol one-for-one.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*client]struct{} // viewID -> clients
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*client]struct{})}
}

func (h *Hub) subscribe(viewID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[viewID] == nil {
		h.subs[viewID] = make(map[*client]struct{})
	}
	h.subs[viewID][c] = struct{}{}
}

func (h *Hub) unsubscribeAll(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for viewID, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, viewID)
		}
	}
}

// Broadcast pushes update to every client subscribed to its view id.
func (h *Hub) Broadcast(upd *update.ViewUpdate) {
	id := viewIDOf(upd)
	if id == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[id] {
		if err := c.send("update", upd); err != nil {
			enginelog.L().Warn("httpapi: ws send failed", zap.Error(err))
		}
	}
}

func viewIDOf(upd *update.ViewUpdate) string {
	switch upd.Format {
	case update.FormatStreaming:
		if upd.Streaming != nil {
			return upd.Streaming.ViewID
		}
	case update.FormatTree:
		if upd.Tree != nil {
			return upd.Tree.QueryID
		}
	default:
		if upd.Flat != nil {
			return upd.Flat.QueryID
		}
	}
	return ""
}

// HandleWS upgrades the connection and handles subscribe/unsubscribe
// messages, per spec §6's demo WS surface.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		enginelog.L().Warn("httpapi: ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := func(msgType string, payload any) error {
		return conn.WriteJSON(map[string]any{"type": msgType, "data": payload})
	}
	cl := &client{send: send}
	defer h.unsubscribeAll(cl)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req struct {
			Type   string `json:"type"`
			ViewID string `json:"viewId"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			send("error", map[string]string{"error": "invalid JSON"})
			continue
		}

		switch strings.ToLower(req.Type) {
		case "subscribe":
			if req.ViewID == "" {
				send("error", map[string]string{"error": "missing viewId"})
				continue
			}
			h.subscribe(req.ViewID, cl)
			send("subscribed", map[string]string{"viewId": req.ViewID})
		case "unsubscribe":
			h.unsubscribeAll(cl)
			send("unsubscribed", "ok")
		default:
			send("error", map[string]string{"error": "unknown message type"})
		}
	}
}
