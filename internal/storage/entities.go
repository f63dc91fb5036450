package storage

import "time"

// Auth origins. A local user carries a password hash; a google user carries
// the federated subject id. Linking google to a local account fills both.
const (
	OriginLocal  = "local"
	OriginGoogle = "google"
)

type User struct {
	ID            int64
	Email         string
	DisplayName   string
	PasswordHash  string
	AuthOrigin    string
	GoogleSubject string
	ProfilePic    string
	CreatedAt     time.Time
}

// Message is immutable once created. At least one of Text and ImageURL is
// non-empty; the schema enforces the same rule with a check constraint.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Text        string
	ImageURL    string
	CreatedAt   time.Time
}
