// Package delivery pushes persisted messages and presence changes onto live
// connections. It is best-effort by design: durability comes from the message
// store, not from this path.
package delivery

import (
	"encoding/json"

	"go.uber.org/zap"

	"chatwire/internal/presence"
	"chatwire/internal/storage"
)

// Router fans persisted messages out to the recipient's live connections and
// broadcasts presence transitions. It never retries and never reports
// delivery failures to the sender: a dropped push is indistinguishable from
// the recipient being offline, and the message is still retrievable through
// conversation fetch.
type Router struct {
	logger *zap.SugaredLogger
	reg    *presence.Registry
}

func NewRouter(logger *zap.SugaredLogger, reg *presence.Registry) *Router {
	return &Router{logger: logger, reg: reg}
}

// Route delivers an already-persisted message to every live connection of its
// recipient. Zero connections is not an error.
func (r *Router) Route(m storage.Message) {
	conns := r.reg.Connections(m.RecipientID)
	if len(conns) == 0 {
		r.logger.Debugw("recipient offline, message awaits pull",
			"message_id", m.ID, "recipient_id", m.RecipientID)
		return
	}

	data, err := json.Marshal(MessageEvent{Type: EventMessage, Message: NewMessagePayload(m)})
	if err != nil {
		r.logger.Errorw("marshaling message event", "message_id", m.ID, "error", err)
		return
	}

	delivered := 0
	for _, c := range conns {
		if c.Push(data) {
			delivered++
		} else {
			r.logger.Debugw("live push dropped",
				"message_id", m.ID, "conn_id", c.ID, "recipient_id", m.RecipientID)
		}
	}

	r.logger.Debugw("message routed",
		"message_id", m.ID, "recipient_id", m.RecipientID,
		"connections", len(conns), "delivered", delivered)
}

// PresenceChanged broadcasts the current online list to every connection.
// Wire it to the registry's transition hook.
func (r *Router) PresenceChanged(online []int64) {
	data, err := json.Marshal(PresenceEvent{Type: EventPresence, Online: online})
	if err != nil {
		r.logger.Errorw("marshaling presence event", "error", err)
		return
	}
	r.reg.Broadcast(data)
}
