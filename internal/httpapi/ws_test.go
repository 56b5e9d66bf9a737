package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcheon/KCU/internal/matchmaking"
)

func newNotifyTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := matchmaking.NewService(&memScoreStore{}, nil)
	hub := NewNotifyHub(nil)
	svc.SetOnMatched(hub.MatchFound)

	mux := http.NewServeMux()
	(&MatchHandler{Matches: svc}).RegisterRoutes(mux)
	hub.RegisterRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestNotifyHub_WaitingUserGetsMatchFound(t *testing.T) {
	ts := newNotifyTestServer(t)

	// alice joins and starts listening for the pairing
	resp := postJSON(t, ts.URL+"/api/matchmaking/join", joinRequest{UserID: "alice"})
	j := decode[joinResponse](t, resp)
	require.Equal(t, "waiting", j.Status)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/matchmaking?userId=alice"), nil)
	require.NoError(t, err)
	defer ws.Close()

	// bob joins and pairs with her
	resp = postJSON(t, ts.URL+"/api/matchmaking/join", joinRequest{UserID: "bob"})
	paired := decode[joinResponse](t, resp)
	require.Equal(t, "matched", paired.Status)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var frame matchFoundPayload
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "match_found", frame.Type)
	assert.Equal(t, paired.MatchID, frame.MatchID)
	assert.Equal(t, "bob", frame.OpponentID)
}

func TestNotifyHub_RejectsMissingUserID(t *testing.T) {
	ts := newNotifyTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/matchmaking"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotifyHub_MatchFoundDuringDisconnect(t *testing.T) {
	// A pairing racing a disconnect must never send on the closed
	// channel: the teardown deletes the conn from the map under the
	// hub mutex before closing it, and MatchFound sends under that
	// same mutex. A panic here fails the test.
	m := matchmaking.Match{
		ID:        "m1",
		Players:   [2]string{"alice", "bob"},
		CreatedAt: time.Now(),
	}

	for i := 0; i < 500; i++ {
		hub := NewNotifyHub(nil)
		cc := &clientConn{send: make(chan []byte, 1)}

		hub.mu.Lock()
		hub.conns["alice"] = cc
		hub.mu.Unlock()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 20; j++ {
				hub.MatchFound("alice", m)
			}
		}()

		// the disconnect path of handleWS
		hub.mu.Lock()
		if hub.conns["alice"] == cc {
			delete(hub.conns, "alice")
		}
		hub.mu.Unlock()
		cc.close()

		<-done
	}
}

func TestNotifyHub_NoSocketIsHarmless(t *testing.T) {
	ts := newNotifyTestServer(t)

	// nobody is listening, pairing must still work
	postJSON(t, ts.URL+"/api/matchmaking/join", joinRequest{UserID: "alice"}).Body.Close()
	resp := postJSON(t, ts.URL+"/api/matchmaking/join", joinRequest{UserID: "bob"})
	j := decode[joinResponse](t, resp)
	assert.Equal(t, "matched", j.Status)
}
