package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const claimSeparator = "|"

// SignedURLSigner mints and verifies download tokens for export artifacts.
// A token carries the export job ID, the stored file name, and an expiry,
// bound together by an HMAC so none of them can be swapped.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner builds a signer. Non-positive TTLs fall back to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate mints a token for the job's stored file and reports its expiry.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("jobID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	claims := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), relPath}, claimSeparator)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(claims))
	return encoded + "." + s.sign(encoded), expiresAt, nil
}

// Parse verifies a token and returns its claims. With allowExpired set the
// expiry check is skipped; cleanup routines use that to locate stale files.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode download token: %w", err)
	}
	parts := strings.SplitN(string(raw), claimSeparator, 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid token expiry")
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("download token expired")
	}
	return parts[0], parts[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded)) //nolint:errcheck
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
