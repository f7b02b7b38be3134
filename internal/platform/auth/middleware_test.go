package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

const testUserID = "6f1c2b1e-8a7d-4a57-9a55-0d6c1b2f3e41"

func validClaims(sub string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "user@example.com",
	}
}

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func hsVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(JWTConfig{SigningKey: testSigningKey})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

// serve runs req through IdentityMiddleware and returns the identity the
// handler saw, or the middleware's error.
func serve(t *testing.T, v *Verifier, req *http.Request) (Identity, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	var seen Identity
	h := IdentityMiddleware(v, zerolog.Nop())(func(c echo.Context) error {
		seen, _ = IdentityFromContext(c.Request().Context())
		return nil
	})
	return seen, h(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d error, got nil", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestIdentityMiddleware_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(testUserID), testSigningKey))
	req.Header.Set(GuestIDHeader, "0b7f0e0a-2b8c-4f39-9b44-1f0a0d9e7c11")

	id, err := serve(t, hsVerifier(t), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != User(testUserID) {
		t.Errorf("expected user identity to win over guest header, got %v", id)
	}
}

func TestIdentityMiddleware_ClaimsInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(testUserID), testSigningKey))
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())

	var email string
	h := IdentityMiddleware(hsVerifier(t), zerolog.Nop())(func(c echo.Context) error {
		if cl := ClaimsFromContext(c.Request().Context()); cl != nil {
			email = cl.Email
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "user@example.com" {
		t.Errorf("expected email claim, got %q", email)
	}
}

func TestIdentityMiddleware_Rejections(t *testing.T) {
	expired := validClaims(testUserID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + createTestToken(t, expired, testSigningKey)},
		{"wrong key", "Bearer " + createTestToken(t, validClaims(testUserID), []byte("other"))},
		{"non-uuid subject", "Bearer " + createTestToken(t, validClaims("user-123"), testSigningKey)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			_, err := serve(t, hsVerifier(t), req)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestIdentityMiddleware_Guest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(GuestIDHeader, "0B7F0E0A-2B8C-4F39-9B44-1F0A0D9E7C11")
	id, err := serve(t, hsVerifier(t), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != Guest("0b7f0e0a-2b8c-4f39-9b44-1f0a0d9e7c11") {
		t.Errorf("expected canonical guest identity, got %v", id)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(GuestIDHeader, "../../etc")
	_, err = serve(t, hsVerifier(t), req)
	expectStatus(t, err, http.StatusBadRequest)
}

func TestIdentityMiddleware_Anonymous(t *testing.T) {
	id, err := serve(t, hsVerifier(t), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !id.IsZero() {
		t.Errorf("expected anonymous, got %v", id)
	}
}

func TestIdentityMiddleware_NilVerifierRejectsTokens(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(testUserID), testSigningKey))
	_, err := serve(t, nil, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestRequireGuards(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	tests := []struct {
		name     string
		id       Identity
		identity int
		user     int
	}{
		{"anonymous", Identity{}, http.StatusUnauthorized, http.StatusUnauthorized},
		{"guest", Guest("g1"), 0, http.StatusUnauthorized},
		{"user", User("u1"), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if !tt.id.IsZero() {
				req = req.WithContext(WithIdentity(req.Context(), tt.id))
			}

			err := RequireIdentity()(ok)(e.NewContext(req, httptest.NewRecorder()))
			if tt.identity == 0 && err != nil {
				t.Errorf("RequireIdentity: unexpected error %v", err)
			} else if tt.identity != 0 {
				expectStatus(t, err, tt.identity)
			}

			err = RequireUser()(ok)(e.NewContext(req, httptest.NewRecorder()))
			if tt.user == 0 && err != nil {
				t.Errorf("RequireUser: unexpected error %v", err)
			} else if tt.user != 0 {
				expectStatus(t, err, tt.user)
			}
		})
	}
}

func TestNewVerifier_NeedsKeySource(t *testing.T) {
	if _, err := NewVerifier(JWTConfig{}); err == nil {
		t.Error("expected error without a key source")
	}
}

func TestVerifier_JWKS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := map[string]any{"keys": []map[string]string{{
		"kty": "RSA",
		"kid": "k1",
		"n":   base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
	}}}

	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"jwks_uri": srvURL + "/jwks"})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	v, err := NewVerifier(JWTConfig{Issuer: srv.URL, Audience: "authenticated"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	claims := validClaims(testUserID)
	claims.Issuer = srv.URL
	claims.Audience = jwt.ClaimStrings{"authenticated"}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := v.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Subject != testUserID {
		t.Errorf("expected subject %s, got %s", testUserID, got.Subject)
	}

	// HS256 token must not pass an RS256 verifier.
	if _, err := v.Verify(createTestToken(t, claims, testSigningKey)); err == nil {
		t.Error("expected HS256 token to be rejected")
	}

	unknownKid := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	unknownKid.Header["kid"] = "k2"
	signed, _ = unknownKid.SignedString(priv)
	if _, err := v.Verify(signed); err == nil {
		t.Error("expected unknown kid to be rejected")
	}
}
