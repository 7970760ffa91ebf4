package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndDecode(t *testing.T) {
	token, exp, err := Issue("42", "admin", "booking-test", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, exp, claims.Expiry(), time.Second)
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Minute)))
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("not-a-token")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestClaims_NoExpiryNeverExpires(t *testing.T) {
	var c Claims
	assert.False(t, c.Expired(time.Now().Add(100*365*24*time.Hour)))
}

func TestParse(t *testing.T) {
	token, _, err := Issue("7", "student", "booking-test", "secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		key     string
		issuer  string
		wantErr bool
	}{
		{name: "valid", key: "secret", issuer: "booking-test"},
		{name: "wrong key", key: "other", issuer: "booking-test", wantErr: true},
		{name: "wrong issuer", key: "secret", issuer: "someone-else", wantErr: true},
		{name: "issuer not checked", key: "secret", issuer: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := Parse(token, tt.key, tt.issuer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "7", claims.Subject)
		})
	}
}
