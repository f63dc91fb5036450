package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/samber/lo"
	"github.com/valyala/fastjson"

	"chatwire/internal/delivery"
	"chatwire/internal/media"
	"chatwire/internal/storage"
)

// sendMessage handles HTTP requests on "/api/messages/send" endpoint.
// The message is persisted first; live delivery is handed to the router and
// its outcome never affects the response.
func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, _ := userIDFromContext(r.Context())

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.sendMessagePool.Get()
	defer h.parsers.sendMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	// retrieving recipient id
	if !v.Exists("recipientId") {
		h.errorJSON(w, http.StatusBadRequest, "Missing field \"recipientId\"")
		return
	}

	recipientID, err := v.Get("recipientId").Int64()
	if err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Field \"recipientId\" must be a 64-bit integer value")
		return
	}

	if recipientID < 1 {
		h.errorJSON(w, http.StatusBadRequest, "Field \"recipientId\" must be a valid user id greater than zero")
		return
	}

	// retrieving content; both fields are optional but not both at once
	if v.Exists("text") && v.Get("text").Type() != fastjson.TypeString {
		h.errorJSON(w, http.StatusBadRequest, "Field \"text\" must be a string")
		return
	}
	if v.Exists("image") && v.Get("image").Type() != fastjson.TypeString {
		h.errorJSON(w, http.StatusBadRequest, "Field \"image\" must be a string")
		return
	}

	text := string(v.GetStringBytes("text"))
	image := string(v.GetStringBytes("image"))

	if text == "" && image == "" {
		h.errorJSON(w, http.StatusBadRequest, "Message must contain text or an image")
		return
	}

	imageURL := ""
	if image != "" {
		imageURL, err = h.blobs.UploadDataURL(r.Context(), image)
		if err != nil {
			if errors.Is(err, media.ErrBadDataURL) || errors.Is(err, media.ErrNotImage) {
				h.errorJSON(w, http.StatusBadRequest, "Field \"image\" must be a base64 data URL holding an image")
				return
			}
			h.internalError(w, err)
			return
		}
	}

	m, err := h.store.CreateMessage(r.Context(), senderID, recipientID, text, imageURL)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrMessageBadRecipient):
			h.errorJSON(w, http.StatusNotFound, "Recipient does not exist")
		case errors.Is(err, storage.ErrMessageEmpty):
			h.errorJSON(w, http.StatusBadRequest, "Message must contain text or an image")
		default:
			h.internalError(w, err)
		}
		return
	}

	h.router.Route(m)

	h.writeJSON(w, http.StatusCreated, delivery.NewMessagePayload(m))
}

// conversation handles HTTP requests on "/api/messages/conversation" endpoint
func (h *handler) conversation(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.conversationPool.Get()
	defer h.parsers.conversationPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	if !v.Exists("peerId") {
		h.errorJSON(w, http.StatusBadRequest, "Missing field \"peerId\"")
		return
	}

	peerID, err := v.Get("peerId").Int64()
	if err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Field \"peerId\" must be a 64-bit integer value")
		return
	}

	if peerID < 1 {
		h.errorJSON(w, http.StatusBadRequest, "Field \"peerId\" must be a valid user id greater than zero")
		return
	}

	messages, err := h.store.Conversation(r.Context(), userID, peerID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.errorJSON(w, http.StatusNotFound, "Peer does not exist")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, lo.Map(messages, func(m storage.Message, _ int) delivery.MessagePayload {
		return delivery.NewMessagePayload(m)
	}))
}
