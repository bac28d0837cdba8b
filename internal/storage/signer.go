// Package storage implements the upload-URL-then-PUT object flow: callers
// request a short-lived signed URL, then PUT the blob against it. Profile
// and signature images plus generated PDFs live here.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrSignatureInvalid indicates a tampered or foreign signature.
	ErrSignatureInvalid = errors.New("storage: invalid signature")
	// ErrExpired indicates the signed URL is past its expiry.
	ErrExpired = errors.New("storage: url expired")
)

// Signer issues and verifies expiring HMAC-signed object URLs. The
// signature covers method, object key and expiry, so a download URL cannot
// be replayed as an upload.
type Signer struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewSigner constructs Signer. baseURL is the externally reachable prefix,
// e.g. https://api.example.com.
func NewSigner(baseURL string, secret []byte) *Signer {
	return &Signer{baseURL: baseURL, secret: secret, now: time.Now}
}

// SignedURL is a ready-to-use URL with its expiry.
type SignedURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadURL signs a PUT for the object key.
func (s *Signer) UploadURL(key string, ttl time.Duration) SignedURL {
	return s.sign("PUT", key, ttl)
}

// DownloadURL signs a GET for the object key.
func (s *Signer) DownloadURL(key string, ttl time.Duration) SignedURL {
	return s.sign("GET", key, ttl)
}

func (s *Signer) sign(method, key string, ttl time.Duration) SignedURL {
	expires := s.now().Add(ttl).Unix()
	sig := s.signature(method, key, expires)
	u := fmt.Sprintf("%s/objects/%s?expires=%d&sig=%s", s.baseURL, url.PathEscape(key), expires, sig)
	return SignedURL{URL: u, Key: key, ExpiresAt: time.Unix(expires, 0)}
}

// Verify checks a request's method, key, expiry and signature.
func (s *Signer) Verify(method, key, expiresParam, sig string) error {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	want := s.signature(method, key, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > expires {
		return ErrExpired
	}
	return nil
}

func (s *Signer) signature(method, key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
