package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret")
	tok, err := tokens.Issue("u-1", "ada@example.com")
	require.NoError(t, err)

	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	tok, err := NewTokens("secret").Issue("u-1", "a@b.co")
	require.NoError(t, err)

	_, err = NewTokens("other").Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	tokens := NewTokens("secret")
	issued := time.Now().Add(-48 * time.Hour)
	tokens.now = func() time.Time { return issued }
	tok, err := tokens.Issue("u-1", "a@b.co")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewTokens("secret").Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
