package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dcheon/KCU/internal/matchmaking"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type clientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// NotifyHub pushes match_found frames to users who are waiting in the
// queue. It is best effort: a user without a socket simply keeps
// polling the status endpoint.
type NotifyHub struct {
	log *slog.Logger

	mu    sync.Mutex
	conns map[string]*clientConn
}

func NewNotifyHub(log *slog.Logger) *NotifyHub {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyHub{
		log:   log,
		conns: make(map[string]*clientConn),
	}
}

func (h *NotifyHub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/matchmaking", h.handleWS)
}

type matchFoundPayload struct {
	Type       string `json:"type"`
	MatchID    string `json:"matchId"`
	OpponentID string `json:"opponentId"`
}

// MatchFound is wired as the matchmaking service's onMatched hook. It
// runs outside the service's critical section.
func (h *NotifyHub) MatchFound(waitingUser string, m matchmaking.Match) {
	opponent := m.Players[0]
	if opponent == waitingUser {
		opponent = m.Players[1]
	}

	b, _ := json.Marshal(matchFoundPayload{
		Type:       "match_found",
		MatchID:    m.ID,
		OpponentID: opponent,
	})

	// The send happens under the same mutex that removes conns from
	// the map: a teardown cannot close the channel between the lookup
	// and the send. The send itself never blocks.
	h.mu.Lock()
	defer h.mu.Unlock()

	conn := h.conns[waitingUser]
	if conn == nil {
		return
	}

	select {
	case conn.send <- b:
	default:
		// slow client, drop the frame; polling still works
	}
}

func (h *NotifyHub) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cc := &clientConn{
		ws:   ws,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	if old := h.conns[userID]; old != nil {
		old.close()
	}
	h.conns[userID] = cc
	h.mu.Unlock()

	h.log.Info("matchmaking socket connected", "user_id", userID)

	// writer loop
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					return
				}
				_ = ws.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				_ = ws.WriteMessage(websocket.PingMessage, []byte{})
			}
		}
	}()

	// reader loop: we expect nothing from the client, this only
	// detects the close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if h.conns[userID] == cc {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	cc.close()

	h.log.Info("matchmaking socket closed", "user_id", userID)
}
