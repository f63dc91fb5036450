package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"chatwire/internal/storage/zapadapter"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrUserNotExist        = errors.New("user does not exist")
	ErrMessageBadRecipient = errors.New("bad recipient id")
	ErrMessageEmpty        = errors.New("message has neither text nor image")
)

const userColumns = "id, email, display_name, password_hash, auth_origin, google_subject, profile_pic, created_at"

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.db.Close()
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash,
		&u.AuthOrigin, &u.GoogleSubject, &u.ProfilePic, &u.CreatedAt)
	return u, err
}

// CreateUser creates a local (password) account and returns it.
func (s *Store) CreateUser(ctx context.Context, email, displayName, passwordHash string) (User, error) {
	s.logger.Debugf("Creating local user (%s)", email)

	sql := `insert into users (email, display_name, password_hash, auth_origin, created_at)
	        values ($1, $2, $3, $4, $5)
	        returning ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, sql, email, displayName, passwordHash, OriginLocal, time.Now()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}

	s.logger.Debugf("Created local user (%s) with id %d", email, u.ID)

	return u, nil
}

// CreateGoogleUser creates a federated account for a first-time Google login.
func (s *Store) CreateGoogleUser(ctx context.Context, email, displayName, subject, profilePic string) (User, error) {
	s.logger.Debugf("Creating google user (%s)", email)

	sql := `insert into users (email, display_name, auth_origin, google_subject, profile_pic, created_at)
	        values ($1, $2, $3, $4, $5, $6)
	        returning ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, sql, email, displayName, OriginGoogle, subject, profilePic, time.Now()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}

	return u, nil
}

// UserByEmail returns the user registered under email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	sql := "select " + userColumns + " from users where email = $1"
	u, err := scanUser(s.db.QueryRow(ctx, sql, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	return u, nil
}

// UserByID returns the user with the given id.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	sql := "select " + userColumns + " from users where id = $1"
	u, err := scanUser(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	return u, nil
}

// AttachGoogle links a federated subject to an existing account and backfills
// the profile picture when the account has none.
func (s *Store) AttachGoogle(ctx context.Context, userID int64, subject, profilePic string) (User, error) {
	s.logger.Debugf("Linking google subject to user (id: %d)", userID)

	sql := `update users
	           set google_subject = $2,
	               auth_origin = $3,
	               profile_pic = case when profile_pic = '' and $4 <> '' then $4 else profile_pic end
	         where id = $1
	        returning ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, sql, userID, subject, OriginGoogle, profilePic))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	return u, nil
}

// UpdateProfilePic stores the new picture URL and returns the updated user.
func (s *Store) UpdateProfilePic(ctx context.Context, userID int64, url string) (User, error) {
	sql := `update users set profile_pic = $2 where id = $1 returning ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, sql, userID, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	return u, nil
}

// Contacts returns every user except the given one, ordered by display name.
func (s *Store) Contacts(ctx context.Context, exceptID int64) ([]User, error) {
	s.logger.Debugf("Retrieving contacts for user (id: %d)", exceptID)

	sql := "select " + userColumns + " from users where id <> $1 order by display_name, id"
	rows, err := s.db.Query(ctx, sql, exceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateMessage persists a message and returns it with id and timestamp set.
func (s *Store) CreateMessage(ctx context.Context, sender, recipient int64, text, imageURL string) (Message, error) {
	s.logger.Debugf("Creating message from user (id: %d) to user (id: %d)", sender, recipient)

	m := Message{SenderID: sender, RecipientID: recipient, Text: text, ImageURL: imageURL}
	sql := `insert into messages (sender_id, recipient_id, text, image_url, created_at)
	        values ($1, $2, $3, $4, $5)
	        returning id, created_at`
	err := s.db.QueryRow(ctx, sql, sender, recipient, text, imageURL, time.Now()).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ForeignKeyViolation:
				if pgErr.ConstraintName == "messages_recipient_id_fkey" {
					return Message{}, ErrMessageBadRecipient
				}
				return Message{}, err
			case pgerrcode.CheckViolation:
				return Message{}, ErrMessageEmpty
			}
		}
		return Message{}, err
	}

	return m, nil
}

// Conversation returns all messages between two users in either direction,
// ordered by creation time.
func (s *Store) Conversation(ctx context.Context, a, b int64) ([]Message, error) {
	s.logger.Debugf("Retrieving conversation between users (%d, %d)", a, b)

	// peer must exist; a missing peer is NotFound, not an empty conversation
	var i int8
	err := s.db.QueryRow(ctx, "select 1 from users where id = $1", b).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotExist
		}
		return nil, err
	}

	sql := `select id, sender_id, recipient_id, text, image_url, created_at
	          from messages
	         where (sender_id = $1 and recipient_id = $2)
	            or (sender_id = $2 and recipient_id = $1)
	         order by created_at, id`
	rows, err := s.db.Query(ctx, sql, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		err = rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Text, &m.ImageURL, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
