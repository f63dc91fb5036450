package server

import (
	"context"
	"sync"
	"time"

	"chatwire/internal/auth"
	"chatwire/internal/storage"
)

type fakeStore struct {
	mu       sync.Mutex
	users    []storage.User
	messages []storage.Message
	nextUser int64
	nextMsg  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextUser: 1, nextMsg: 1}
}

func (f *fakeStore) addUser(u storage.User) storage.User {
	u.ID = f.nextUser
	f.nextUser++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	f.users = append(f.users, u)
	return u
}

func (f *fakeStore) CreateUser(_ context.Context, email, displayName, passwordHash string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return storage.User{}, storage.ErrEmailTaken
		}
	}
	return f.addUser(storage.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		AuthOrigin:   storage.OriginLocal,
	}), nil
}

func (f *fakeStore) CreateGoogleUser(_ context.Context, email, displayName, subject, profilePic string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return storage.User{}, storage.ErrEmailTaken
		}
	}
	return f.addUser(storage.User{
		Email:         email,
		DisplayName:   displayName,
		AuthOrigin:    storage.OriginGoogle,
		GoogleSubject: subject,
		ProfilePic:    profilePic,
	}), nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrUserNotExist
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userByIDLocked(id)
}

func (f *fakeStore) userByIDLocked(id int64) (storage.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrUserNotExist
}

func (f *fakeStore) AttachGoogle(_ context.Context, userID int64, subject, profilePic string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == userID {
			f.users[i].GoogleSubject = subject
			f.users[i].AuthOrigin = storage.OriginGoogle
			if f.users[i].ProfilePic == "" && profilePic != "" {
				f.users[i].ProfilePic = profilePic
			}
			return f.users[i], nil
		}
	}
	return storage.User{}, storage.ErrUserNotExist
}

func (f *fakeStore) UpdateProfilePic(_ context.Context, userID int64, url string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == userID {
			f.users[i].ProfilePic = url
			return f.users[i], nil
		}
	}
	return storage.User{}, storage.ErrUserNotExist
}

func (f *fakeStore) Contacts(_ context.Context, exceptID int64) ([]storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.User
	for _, u := range f.users {
		if u.ID != exceptID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, sender, recipient int64, text, imageURL string) (storage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.userByIDLocked(recipient); err != nil {
		return storage.Message{}, storage.ErrMessageBadRecipient
	}
	if text == "" && imageURL == "" {
		return storage.Message{}, storage.ErrMessageEmpty
	}
	m := storage.Message{
		ID:          f.nextMsg,
		SenderID:    sender,
		RecipientID: recipient,
		Text:        text,
		ImageURL:    imageURL,
		CreatedAt:   time.Now(),
	}
	f.nextMsg++
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeStore) Conversation(_ context.Context, a, b int64) ([]storage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.userByIDLocked(b); err != nil {
		return nil, storage.ErrUserNotExist
	}
	var out []storage.Message
	for _, m := range f.messages {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	uploads []string
	err     error
}

func (f *fakeBlobs) UploadDataURL(_ context.Context, dataURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, dataURL)
	return "https://blobs.example.com/uploaded.png", nil
}

type fakeGoogle struct {
	identity *auth.GoogleIdentity
	err      error
}

func (f *fakeGoogle) Verify(context.Context, string) (*auth.GoogleIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}
