package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.test.local"

func testKeyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, pemBytes
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	key, pemBytes := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token := signToken(t, key, jwt.MapClaims{
		"iss":   testIssuer,
		"sub":   "user_2abc",
		"role":  "officer",
		"name":  "Purchase Officer",
		"email": "officer@ampere.local",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user_2abc", claims.Subject)
	require.Equal(t, "officer", claims.Role)
	require.Equal(t, "Purchase Officer", claims.Name)
	require.Equal(t, "officer@ampere.local", claims.Email)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	key, pemBytes := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token := signToken(t, key, jwt.MapClaims{
		"iss": "https://evil.example.com",
		"sub": "user_2abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpired(t *testing.T) {
	key, pemBytes := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token := signToken(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user_2abc",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	key, pemBytes := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token := signToken(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user_2abc",
	})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, pemBytes := testKeyPair(t)
	other, _ := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token := signToken(t, other, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user_2abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsHMACToken(t *testing.T) {
	_, pemBytes := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user_2abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRequiresSubject(t *testing.T) {
	key, pemBytes := testKeyPair(t)
	v, err := NewVerifier(pemBytes, testIssuer)
	require.NoError(t, err)

	token := signToken(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
