package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestSessionRoundtrip(t *testing.T) {
	t.Parallel()

	token, err := SignSession(42, testSecret, time.Hour)
	require.NoError(t, err)

	id, err := ParseSession(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestSessionWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := SignSession(42, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseSession(token, []byte("other-secret"))
	require.Equal(t, ErrInvalidToken, err)
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	token, err := SignSession(42, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseSession(token, testSecret)
	require.Equal(t, ErrInvalidToken, err)
}

func TestTicketRoundtrip(t *testing.T) {
	t.Parallel()

	ticket, err := SignTicket(7, testSecret, 30*time.Second)
	require.NoError(t, err)

	id, err := ParseTicket(ticket, testSecret)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

func TestSessionIsNotATicket(t *testing.T) {
	t.Parallel()

	token, err := SignSession(7, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseTicket(token, testSecret)
	require.Equal(t, ErrWrongPurpose, err)
}

func TestTicketIsNotASession(t *testing.T) {
	t.Parallel()

	ticket, err := SignTicket(7, testSecret, 30*time.Second)
	require.NoError(t, err)

	_, err = ParseSession(ticket, testSecret)
	require.Equal(t, ErrWrongPurpose, err)
}

func TestGarbageToken(t *testing.T) {
	t.Parallel()

	_, err := ParseSession("not-a-token", testSecret)
	require.Equal(t, ErrInvalidToken, err)
}
