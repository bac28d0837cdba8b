package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates RS256 bearer tokens issued by the identity provider.
type Verifier struct {
	key    *rsa.PublicKey
	issuer string
}

// NewVerifier parses the provider public key and returns a Verifier.
func NewVerifier(publicKeyPEM []byte, issuer string) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return &Verifier{key: key, issuer: issuer}, nil
}

// PublicKey exposes the verification key for JWKS publication.
func (v *Verifier) PublicKey() *rsa.PublicKey {
	return v.key
}

// Issuer returns the expected token issuer.
func (v *Verifier) Issuer() string {
	return v.issuer
}

// Verify checks signature, issuer and expiry and extracts application claims.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return v.key, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	claims := Claims{
		Subject: stringClaim(mapClaims, "sub"),
		Role:    stringClaim(mapClaims, "role"),
		Name:    stringClaim(mapClaims, "name"),
		Email:   stringClaim(mapClaims, "email"),
	}
	if claims.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
