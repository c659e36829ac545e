package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueValidateRoundTrip(t *testing.T) {
	m, err := NewManager("unit-test-secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := m.Issue(Identity{Subject: "user-1", Email: "u@example.com", IsAdmin: true})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	id, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.Subject)
	assert.Equal(t, "u@example.com", id.Email)
	assert.True(t, id.IsAdmin)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m, err := NewManager("unit-test-secret", time.Hour)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Validate(token)
		assert.Error(t, err, "token=%q", token)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	a, err := NewManager("secret-a", time.Hour)
	require.NoError(t, err)
	b, err := NewManager("secret-b", time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue(Identity{Subject: "user-1"})
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := &Manager{secret: []byte("unit-test-secret"), expiration: -time.Minute}

	token, _, err := m.Issue(Identity{Subject: "user-1"})
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestEphemeralSecretStillIssues(t *testing.T) {
	m, err := NewManager("", 0)
	require.NoError(t, err)

	token, _, err := m.Issue(Identity{Subject: "dev"})
	require.NoError(t, err)

	id, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "dev", id.Subject)
	assert.False(t, id.IsAdmin)
}
