package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret", "test-issuer")

	token, err := manager.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.VerifyAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", "").GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", "").VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", "")

	claims := &JWTClaims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = manager.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	_, err := NewJWTManager("test-secret", "").VerifyAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"empty header", "", "", true},
		{"missing prefix", "abc.def.ghi", "", true},
		{"wrong scheme", "Basic abc.def.ghi", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultIssuer(t *testing.T) {
	token, err := NewJWTManager("test-secret", "").GenerateAccessToken("user-123", "")
	require.NoError(t, err)

	claims, err := NewJWTManager("test-secret", "").VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "localbox-server", claims.Issuer)
}
