package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestGoogleVerify(t *testing.T) {
	t.Parallel()

	v := &GoogleVerifier{
		clientID: "client-id",
		validate: func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
			require.Equal(t, "credential", token)
			require.Equal(t, "client-id", audience)
			return &idtoken.Payload{
				Subject: "google-subject",
				Claims: map[string]interface{}{
					"email":   "user@example.com",
					"name":    "Some User",
					"picture": "https://example.com/pic.png",
				},
			}, nil
		},
	}

	identity, err := v.Verify(context.Background(), "credential")
	require.NoError(t, err)
	require.Equal(t, "google-subject", identity.Subject)
	require.Equal(t, "user@example.com", identity.Email)
	require.Equal(t, "Some User", identity.Name)
	require.Equal(t, "https://example.com/pic.png", identity.Picture)
}

func TestGoogleVerifyRejected(t *testing.T) {
	t.Parallel()

	v := &GoogleVerifier{
		clientID: "client-id",
		validate: func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("signature mismatch")
		},
	}

	_, err := v.Verify(context.Background(), "credential")
	require.Equal(t, ErrBadCredential, err)
}

func TestGoogleVerifyMissingEmail(t *testing.T) {
	t.Parallel()

	v := &GoogleVerifier{
		clientID: "client-id",
		validate: func(context.Context, string, string) (*idtoken.Payload, error) {
			return &idtoken.Payload{Subject: "google-subject"}, nil
		},
	}

	_, err := v.Verify(context.Background(), "credential")
	require.Equal(t, ErrBadCredential, err)
}
