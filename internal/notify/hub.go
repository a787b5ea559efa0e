package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans events out to connected websocket clients. Slow clients are
// dropped rather than allowed to back-pressure the workers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan Event), log: log}
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.clients[ws] = ch
	h.mu.Unlock()
	h.log.Debug().Str("remote", ws.RemoteAddr().String()).Msg("event client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, ws)
		h.mu.Unlock()
		ws.Close()
	}()

	// Drain (and discard) client frames so pings are answered.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range ch {
		if err := ws.WriteJSON(ev); err != nil {
			h.log.Debug().Err(err).Msg("event client write failed, dropping")
			return nil
		}
	}
	return nil
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.log.Debug().Str("remote", ws.RemoteAddr().String()).Msg("event client too slow, dropping")
			close(ch)
			delete(h.clients, ws)
			ws.Close()
		}
	}
}

func (h *Hub) ArtifactUpdate(cv *entity.ContextVersion, event string) {
	h.broadcast(Event{Kind: "context-version", Name: event, At: time.Now(), Data: cv})
}

func (h *Hub) InstanceUpdate(inst *entity.Instance, userID int64, event string, cascade bool) {
	h.broadcast(Event{Kind: "instance", Name: event, UserID: userID, Cascade: cascade, At: time.Now(), Data: inst})
}

func (h *Hub) BuildUpdate(buildID entity.ID, event string) {
	h.broadcast(Event{Kind: "build", Name: event, At: time.Now(), Data: map[string]string{"build_id": buildID.String()}})
}
