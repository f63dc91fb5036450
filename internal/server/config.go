package server

import (
	"net/http"
	"time"
)

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Server instance
type config struct {
	httpServer    *http.Server
	afterShutdown []func()
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           uint16        `env:"PORT" envDefault:"9000"`
	JWTSecret      string        `env:"JWT_SECRET,required"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	TicketTTL      time.Duration `env:"WS_TICKET_TTL" envDefault:"30s"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	GoogleClientID string        `env:"GOOGLE_CLIENT_ID"`
}

// ReadTimeout sets read timeout for http.Server
func ReadTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.httpServer.ReadTimeout = d
	})
}

// RegisterAfterShutdown registers a function to call after http.Server shutdown
// f will not be called in separated goroutine
func RegisterAfterShutdown(f func()) Option {
	return optionFunc(func(c *config) {
		c.afterShutdown = append(c.afterShutdown, f)
	})
}
