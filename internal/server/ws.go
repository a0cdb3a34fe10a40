package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scrolldoc/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the incoming WebSocket message format. The shell
// reports raw signals only; all policy lives in the engine.
type clientMessage struct {
	Type     string  `json:"type"`
	RegionID string  `json:"region_id,omitempty"`
	Fraction float64 `json:"fraction,omitempty"`
	Top      float64 `json:"top,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Width    float64 `json:"width,omitempty"`
	TargetID string  `json:"target_id,omitempty"`
	Fragment string  `json:"fragment,omitempty"`
	// ResetPath additionally drops the remembered content path on a
	// forced reload (authoring only).
	ResetPath bool `json:"reset_path,omitempty"`
}

// handleWebSocket bridges one shell connection onto the engine: incoming
// messages become engine events, engine notifications are pushed back as
// JSON frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	notes, unsubscribe := s.engine.Subscribe()
	defer unsubscribe()
	log.Printf("server: viewer %s connected", clientID)

	// Single writer: the notification pump owns the connection's write
	// side. The read loop below never writes.
	go func() {
		for n := range notes {
			if err := conn.WriteJSON(n); err != nil {
				log.Printf("server: viewer %s write: %v", clientID, err)
				conn.Close()
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: viewer %s read: %v", clientID, err)
			}
			return
		}

		var req clientMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Printf("server: viewer %s sent invalid message", clientID)
			continue
		}

		ev, ok := s.toEvent(req)
		if !ok {
			log.Printf("server: viewer %s sent unknown message type %q", clientID, req.Type)
			continue
		}
		if !s.engine.Submit(ev) {
			return
		}
	}
}

// toEvent maps a shell message onto its engine event.
func (s *Server) toEvent(m clientMessage) (engine.Event, bool) {
	switch m.Type {
	case "intersection":
		return engine.IntersectionEvent{RegionID: m.RegionID, Fraction: m.Fraction}, true
	case "geometry":
		return engine.GeometryEvent{RegionID: m.RegionID, Top: m.Top, Height: m.Height}, true
	case "scroll":
		return engine.ScrollEvent{Top: m.Top, ViewportHeight: m.Height}, true
	case "navigate":
		return engine.NavigateEvent{TargetID: m.TargetID}, true
	case "settled":
		return engine.SettledEvent{TargetID: m.TargetID}, true
	case "history-pop":
		return engine.HistoryPopEvent{Fragment: m.Fragment}, true
	case "resize":
		return engine.ResizeEvent{Width: int(m.Width), Height: int(m.Height)}, true
	case "retry":
		return engine.RetryEvent{RegionID: m.RegionID}, true
	case "reload":
		if !s.cfg.Authoring {
			return nil, false
		}
		return engine.ReloadEvent{RegionID: m.RegionID, ResetPath: m.ResetPath}, true
	default:
		return nil, false
	}
}
