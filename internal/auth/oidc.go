package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ampere-erp/ampere-erp/internal/platform/httpx"
)

// OIDC metadata endpoints. Downstream services verify externally-issued
// JWTs against these static, cacheable responses.

// JWK is an RSA public key in JSON Web Key format.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet wraps the published keys.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// DiscoveryDocument holds the OIDC provider metadata fields we publish.
type DiscoveryDocument struct {
	Issuer                           string   `json:"issuer"`
	JWKSURI                          string   `json:"jwks_uri"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
}

// OIDCHandler serves the discovery and JWKS documents.
type OIDCHandler struct {
	issuer string
	keyID  string
	key    *rsa.PublicKey
}

// NewOIDCHandler constructs the handler from the verification key.
func NewOIDCHandler(issuer, keyID string, key *rsa.PublicKey) *OIDCHandler {
	return &OIDCHandler{issuer: issuer, keyID: keyID, key: key}
}

// MountRoutes attaches the well-known endpoints.
func (h *OIDCHandler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/openid-configuration", h.Discovery)
	r.Get("/.well-known/jwks.json", h.JWKS)
}

// Discovery serves the OIDC provider metadata.
func (h *OIDCHandler) Discovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	httpx.JSON(w, http.StatusOK, DiscoveryDocument{
		Issuer:                           h.issuer,
		JWKSURI:                          h.issuer + "/.well-known/jwks.json",
		AuthorizationEndpoint:            h.issuer + "/oauth/authorize",
		TokenEndpoint:                    h.issuer + "/oauth/token",
		ResponseTypesSupported:           []string{"id_token"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
	})
}

// JWKS serves the RSA public key as a JWK set.
func (h *OIDCHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	httpx.JSON(w, http.StatusOK, JWKSet{Keys: []JWK{keyToJWK(h.keyID, h.key)}})
}

func keyToJWK(kid string, key *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}
