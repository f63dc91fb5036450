package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"chatwire/internal/delivery"
	"chatwire/internal/presence"
)

// Deps bundles the collaborators handlers need.
type Deps struct {
	Store  Store
	Blobs  BlobStore
	Google IdentityVerifier
	Hub    *presence.Registry
	Router *delivery.Router
}

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	hub           *presence.Registry
	afterShutdown []func()
	h             handler
}

// NewServer returns new Server struct with provided zap.SugaredLogger and dependencies
func NewServer(logger *zap.SugaredLogger, cfg EnvConfig, deps Deps, opts ...Option) (*Server, error) {
	srv := &Server{
		logger: logger,
		hub:    deps.Hub,
		h: handler{
			logger:   logger,
			store:    deps.Store,
			blobs:    deps.Blobs,
			google:   deps.Google,
			hub:      deps.Hub,
			router:   deps.Router,
			validate: validator.New(),
			parsers: parsers{
				sendMessagePool:  fastjson.ParserPool{},
				conversationPool: fastjson.ParserPool{},
			},
			upgrader: websocket.Upgrader{
				ReadBufferSize:  1024,
				WriteBufferSize: 1024,
				// the admission ticket, not the Origin header, is the gate
				CheckOrigin: func(*http.Request) bool { return true },
			},
			secret:       []byte(cfg.JWTSecret),
			sessionTTL:   cfg.SessionTTL,
			ticketTTL:    cfg.TicketTTL,
			cookieSecure: cfg.CookieSecure,
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/api/auth/signup", enforcePOSTJSON(http.HandlerFunc(srv.h.signup)))
	mux.Handle("/api/auth/login", enforcePOSTJSON(http.HandlerFunc(srv.h.login)))
	mux.Handle("/api/auth/google", enforcePOSTJSON(http.HandlerFunc(srv.h.googleLogin)))
	mux.Handle("/api/auth/logout", postOnly(http.HandlerFunc(srv.h.logout)))
	mux.Handle("/api/auth/check", postOnly(srv.h.requireAuth(http.HandlerFunc(srv.h.checkAuth))))
	mux.Handle("/api/auth/update-profile", enforcePOSTJSON(srv.h.requireAuth(http.HandlerFunc(srv.h.updateProfile))))
	mux.Handle("/api/users/contacts", postOnly(srv.h.requireAuth(http.HandlerFunc(srv.h.contacts))))
	mux.Handle("/api/messages/send", enforcePOSTJSON(srv.h.requireAuth(http.HandlerFunc(srv.h.sendMessage))))
	mux.Handle("/api/messages/conversation", enforcePOSTJSON(srv.h.requireAuth(http.HandlerFunc(srv.h.conversation))))
	mux.Handle("/api/ws/ticket", postOnly(srv.h.requireAuth(http.HandlerFunc(srv.h.wsTicket))))
	mux.Handle("/ws", http.HandlerFunc(srv.h.wsConnect))

	httpServer := &http.Server{
		Addr:    cfg.Host + ":" + strconv.FormatUint(uint64(cfg.Port), 10),
		Handler: log(mux, logger.Desugar()),
	}

	srv.httpServer = httpServer

	c := &config{httpServer: httpServer}
	for _, opt := range opts {
		opt.apply(c)
	}
	srv.afterShutdown = c.afterShutdown

	return srv, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	s.logger.Info("Closing live connections")
	s.hub.Shutdown()

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}
