package security

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSessionToken mints a new guest session token. Only the hash of
// this value ever reaches storage.
func GenerateSessionToken() string {
	return uuid.New().String()
}

// HashSessionToken produces the storage form of a session token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RequesterKey builds the rate-limit key for a join attempt: the network
// address plus a truncated slice of the session-token hash, so one busy NAT
// does not starve every guest behind it while one device cannot dodge the
// limit by reminting tokens alone.
func RequesterKey(ip, tokenHash string) string {
	short := tokenHash
	if len(short) > 8 {
		short = short[:8]
	}
	return ip + "/" + short
}

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a reverse proxy.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateSessionCookie creates a session cookie with proper security flags.
func CreateSessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// ClientIP extracts the client IP from the request, preferring proxy
// headers.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
