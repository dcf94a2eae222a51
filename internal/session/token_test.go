package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker("0123456789abcdef0123456789abcdef", time.Hour)

	id, tok, exp, err := tm.New()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "s_"))
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, id, c.SessionID)
}

func TestTokenMaker_Rejects(t *testing.T) {
	tm := NewTokenMaker("0123456789abcdef0123456789abcdef", time.Hour)
	_, tok, _, err := tm.New()
	require.NoError(t, err)

	other := NewTokenMaker("fedcba9876543210fedcba9876543210", time.Hour)
	_, err = other.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenMaker("0123456789abcdef0123456789abcdef", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	_, old, _, err := expired.New()
	require.NoError(t, err)
	_, err = tm.Parse(old)
	require.ErrorIs(t, err, ErrInvalidToken)
}
