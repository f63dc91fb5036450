package server

import (
	"net/http"

	"github.com/rs/xid"

	"chatwire/internal/auth"
	"chatwire/internal/presence"
)

// wsTicket handles HTTP requests on "/api/ws/ticket" endpoint. It mints a
// short-lived admission ticket for the authenticated session, so the
// websocket handshake never has to trust the cookie directly.
func (h *handler) wsTicket(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	ticket, err := auth.SignTicket(userID, h.secret, h.ticketTTL)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"ticket": ticket})
}

// wsConnect handles websocket upgrades on "/ws". This is the session gate:
// admission requires a valid ticket, and a refused connection never touches
// the presence registry.
func (h *handler) wsConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.Header().Set("Allow", "GET")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		h.errorJSON(w, http.StatusUnauthorized, "Missing admission ticket")
		return
	}

	userID, err := auth.ParseTicket(ticket, h.secret)
	if err != nil {
		h.errorJSON(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.logger.Debugf("websocket upgrade failed: %v", err)
		return
	}

	conn := presence.NewConn(xid.New().String(), userID, sock)
	h.hub.Register(conn)
	defer h.hub.Unregister(conn.ID)

	go conn.WritePump()
	conn.ReadPump()
}
