package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"chatwire/internal/auth"
	"chatwire/internal/delivery"
	"chatwire/internal/presence"
	"chatwire/internal/storage"
)

// Store is the user-directory and message-store surface the handlers need.
// *storage.Store implements it.
type Store interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (storage.User, error)
	CreateGoogleUser(ctx context.Context, email, displayName, subject, profilePic string) (storage.User, error)
	UserByEmail(ctx context.Context, email string) (storage.User, error)
	UserByID(ctx context.Context, id int64) (storage.User, error)
	AttachGoogle(ctx context.Context, userID int64, subject, profilePic string) (storage.User, error)
	UpdateProfilePic(ctx context.Context, userID int64, url string) (storage.User, error)
	Contacts(ctx context.Context, exceptID int64) ([]storage.User, error)
	CreateMessage(ctx context.Context, sender, recipient int64, text, imageURL string) (storage.Message, error)
	Conversation(ctx context.Context, a, b int64) ([]storage.Message, error)
}

// BlobStore stores uploaded images and returns retrievable URLs.
// *media.Uploader implements it.
type BlobStore interface {
	UploadDataURL(ctx context.Context, dataURL string) (string, error)
}

// IdentityVerifier checks federated login credentials.
// *auth.GoogleVerifier implements it.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*auth.GoogleIdentity, error)
}

type parsers struct {
	sendMessagePool  fastjson.ParserPool
	conversationPool fastjson.ParserPool
}

type handler struct {
	logger   *zap.SugaredLogger
	store    Store
	blobs    BlobStore
	google   IdentityVerifier
	hub      *presence.Registry
	router   *delivery.Router
	validate *validator.Validate
	parsers  parsers
	upgrader websocket.Upgrader

	secret       []byte
	sessionTTL   time.Duration
	ticketTTL    time.Duration
	cookieSecure bool
}

func (h *handler) issueSession(w http.ResponseWriter, userID int64) error {
	token, err := auth.SignSession(userID, h.secret, h.sessionTTL)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, token, h.sessionTTL, h.cookieSecure)
	return nil
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Errorf("marshaling response: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

func (h *handler) errorJSON(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}

func (h *handler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error(err)
	h.errorJSON(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
