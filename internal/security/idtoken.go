package security

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the verified identity carried by a linked-account
// guest's ID token.
type IdentityClaims struct {
	Subject string
	Email   string
	Name    string
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

type jwkSet struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// IDTokenVerifier validates OIDC ID tokens from a single provider using its
// published JWKS. Guests joining with a linked account present one of these
// instead of playing anonymously.
type IDTokenVerifier struct {
	Issuer   string
	JWKSURL  string
	ClientID string
}

// GoogleIDTokenVerifier builds a verifier for Google-issued tokens.
func GoogleIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{
		Issuer:   "https://accounts.google.com",
		JWKSURL:  "https://www.googleapis.com/oauth2/v3/certs",
		ClientID: clientID,
	}
}

// Verify parses and validates an ID token, returning the identity claims.
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (IdentityClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	claims := &idTokenClaims{}

	parsed, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id")
		}
		return v.fetchPublicKey(ctx, kid)
	})
	if err != nil || !parsed.Valid {
		return IdentityClaims{}, errors.New("invalid id token")
	}

	if claims.Issuer != v.Issuer {
		return IdentityClaims{}, errors.New("invalid issuer")
	}
	if v.ClientID != "" && !audienceContains(claims.Audience, v.ClientID) {
		return IdentityClaims{}, errors.New("invalid audience")
	}
	if claims.Subject == "" {
		return IdentityClaims{}, errors.New("missing subject")
	}

	return IdentityClaims{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func audienceContains(audience jwt.ClaimStrings, value string) bool {
	for _, entry := range audience {
		if entry == value {
			return true
		}
	}
	return false
}

func (v *IDTokenVerifier) fetchPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, v.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider keys endpoint returned %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode provider keys: %w", err)
	}

	for _, key := range set.Keys {
		if key.Kid != kid || key.Kty != "RSA" {
			continue
		}
		return rsaKeyFromJWK(key)
	}
	return nil, errors.New("signing key not found")
}

func rsaKeyFromJWK(key jwkKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, fmt.Errorf("bad modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, fmt.Errorf("bad exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
