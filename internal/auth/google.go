package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

var ErrBadCredential = errors.New("google credential rejected")

// GoogleIdentity is the subset of a verified Google ID token the rest of the
// application cares about.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates Google ID tokens against a configured OAuth client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify checks the credential's signature and audience and extracts the
// identity claims used for account creation and linking.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, ErrBadCredential
	}

	identity := &GoogleIdentity{
		Subject: payload.Subject,
		Email:   stringClaim(payload, "email"),
		Name:    stringClaim(payload, "name"),
		Picture: stringClaim(payload, "picture"),
	}
	if identity.Subject == "" || identity.Email == "" {
		return nil, ErrBadCredential
	}

	return identity, nil
}

func stringClaim(payload *idtoken.Payload, name string) string {
	s, _ := payload.Claims[name].(string)
	return s
}
