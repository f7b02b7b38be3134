package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Claims are the token claims the service reads. Email and role follow
// the Supabase access token layout.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 verification with a shared secret.
	SigningKey []byte
}

// Verifier checks bearer tokens.
type Verifier struct {
	keyfunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

// NewVerifier builds a Verifier from cfg. With no signing key it verifies
// RS256 tokens against JWKSURL, discovering it from the issuer when unset.
func NewVerifier(cfg JWTConfig) (*Verifier, error) {
	v := &Verifier{}
	if cfg.Issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.opts = append(v.opts, jwt.WithAudience(cfg.Audience))
	}

	if len(cfg.SigningKey) > 0 {
		key := cfg.SigningKey
		v.keyfunc = func(*jwt.Token) (interface{}, error) { return key, nil }
		v.opts = append(v.opts, jwt.WithValidMethods([]string{"HS256"}))
		return v, nil
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		if cfg.Issuer == "" {
			return nil, fmt.Errorf("either a signing key, a JWKS URL or an issuer is required")
		}
		var err error
		if jwksURL, err = discoverJWKSURL(cfg.Issuer); err != nil {
			return nil, err
		}
	}
	v.keyfunc = NewJWKSCache(jwksURL, defaultJWKSCacheTTL).Keyfunc
	v.opts = append(v.opts, jwt.WithValidMethods([]string{"RS256"}))
	return v, nil
}

// Verify parses and validates a raw token. The subject must be a UUID.
// A nil Verifier rejects every token.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	if v == nil {
		return nil, errors.New("user sign-in is not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keyfunc, v.opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject is not a user id: %w", err)
	}
	claims.Subject = sub.String()
	return claims, nil
}

// IdentityMiddleware resolves who the request acts for. A bearer token
// must verify and yields a user identity. Without one, a valid
// X-Guest-ID yields a guest identity. Requests with neither pass through
// anonymous; RequireIdentity and RequireUser gate the routes that care.
func IdentityMiddleware(v *Verifier, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}

			req := c.Request()
			ctx := req.Context()

			if authHeader := req.Header.Get("Authorization"); authHeader != "" {
				scheme, tokenStr, ok := strings.Cut(authHeader, " ")
				if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
				}
				claims, err := v.Verify(strings.TrimSpace(tokenStr))
				if err != nil {
					logger.Debug().Err(err).Msg("bearer token rejected")
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				ctx = WithIdentity(ctx, User(claims.Subject))
				ctx = contextWithClaims(ctx, claims)
				c.SetRequest(req.WithContext(ctx))
				return next(c)
			}

			if guestID := req.Header.Get(GuestIDHeader); guestID != "" {
				id, err := uuid.Parse(guestID)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid guest id")
				}
				c.SetRequest(req.WithContext(WithIdentity(ctx, Guest(id.String()))))
			}
			return next(c)
		}
	}
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFromContext(c.Request().Context()); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "sign in or start a guest session")
			}
			return next(c)
		}
	}
}

// RequireUser rejects guests and anonymous requests.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromContext(c.Request().Context())
			if !ok || !id.IsUser() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}
