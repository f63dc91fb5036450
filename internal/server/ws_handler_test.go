package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatwire/internal/auth"
	"chatwire/internal/delivery"
	"chatwire/internal/presence"
)

func TestWSTicket(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	r := authedRequest("POST", "/api/ws/ticket", "", 42)
	w := httptest.NewRecorder()

	h.wsTicket(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	userID, err := auth.ParseTicket(resp["ticket"], h.secret)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	// a ticket must not double as a session cookie
	_, err = auth.ParseSession(resp["ticket"], h.secret)
	require.Error(t, err)
}

func TestWSConnectRefusesBadAdmission(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	sessionToken, err := auth.SignSession(42, h.secret, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name       string
		target     string
		statusCode int
	}{
		{
			name:       "missing ticket",
			target:     "/ws",
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "forged ticket",
			target:     "/ws?ticket=forged",
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "session token instead of ticket",
			target:     "/ws?ticket=" + url.QueryEscape(sessionToken),
			statusCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.target, nil)
			w := httptest.NewRecorder()

			h.wsConnect(w, r)

			require.Equal(t, tc.statusCode, w.Code)
		})
	}

	// refused handshakes never touch the registry
	require.Empty(t, h.hub.Snapshot())
}

func TestWSConnectRejectsNonGET(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	r := httptest.NewRequest("POST", "/ws", nil)
	w := httptest.NewRecorder()

	h.wsConnect(w, r)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func newLiveServer(t *testing.T) (*httptest.Server, *presence.Registry) {
	t.Helper()

	logger := zap.NewNop().Sugar()

	hub := presence.NewRegistry(logger)
	router := delivery.NewRouter(logger, hub)
	hub.OnTransition(router.PresenceChanged)

	deps := Deps{
		Store:  newFakeStore(),
		Blobs:  &fakeBlobs{},
		Google: &fakeGoogle{},
		Hub:    hub,
		Router: router,
	}

	srv, err := NewServer(logger, EnvConfig{
		JWTSecret:  "test secret",
		SessionTTL: time.Hour,
		TicketTTL:  30 * time.Second,
	}, deps)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	return ts, hub
}

func signupUser(t *testing.T, ts *httptest.Server, email, displayName string) (userResponse, *http.Cookie) {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"displayName":%q,"password":"hunter22"}`, email, displayName)
	resp, err := http.Post(ts.URL+"/api/auth/signup", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var u userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))

	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return u, c
		}
	}
	t.Fatal("no session cookie in signup response")
	return userResponse{}, nil
}

func fetchTicket(t *testing.T, ts *httptest.Server, cookie *http.Cookie) string {
	t.Helper()

	req, err := http.NewRequest("POST", ts.URL+"/api/ws/ticket", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["ticket"])

	return out["ticket"]
}

func TestWebsocketLifecycle(t *testing.T) {
	t.Parallel()

	ts, hub := newLiveServer(t)

	ada, adaCookie := signupUser(t, ts, "ada@example.com", "Ada")

	ticket := fetchTicket(t, ts, adaCookie)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?ticket=" + url.QueryEscape(ticket)

	sock, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer sock.Close()

	require.NoError(t, sock.SetReadDeadline(time.Now().Add(2*time.Second)))

	// coming online triggers a presence broadcast
	_, frame, err := sock.ReadMessage()
	require.NoError(t, err)

	var pe delivery.PresenceEvent
	require.NoError(t, json.Unmarshal(frame, &pe))
	require.Equal(t, delivery.EventPresence, pe.Type)
	require.Contains(t, pe.Online, ada.ID)

	// a message sent over HTTP arrives on the open socket
	bob, bobCookie := signupUser(t, ts, "bob@example.com", "Bob")

	sendBody := fmt.Sprintf(`{"recipientId":%d,"text":"hi ada"}`, ada.ID)
	req, err := http.NewRequest("POST", ts.URL+"/api/messages/send", strings.NewReader(sendBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(bobCookie)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, frame, err = sock.ReadMessage()
	require.NoError(t, err)

	var me delivery.MessageEvent
	require.NoError(t, json.Unmarshal(frame, &me))
	require.Equal(t, delivery.EventMessage, me.Type)
	require.Equal(t, bob.ID, me.Message.SenderID)
	require.Equal(t, ada.ID, me.Message.RecipientID)
	require.Equal(t, "hi ada", me.Message.Text)

	// closing the socket takes the user offline
	require.NoError(t, sock.Close())
	require.Eventually(t, func() bool {
		return !hub.IsOnline(ada.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketDialWithoutTicket(t *testing.T) {
	t.Parallel()

	ts, hub := newLiveServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	require.Empty(t, hub.Snapshot())
}
