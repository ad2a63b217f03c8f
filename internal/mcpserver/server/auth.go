package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const (
	ctxUserID        ctxKey = "uid"
	ctxCorrelationID ctxKey = "correlationId"
)

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")
)

// Authenticator resolves the caller of an MCP request.
// Supports two modes:
// 1. Production: Bearer token, HS256 signed with the shared secret
// 2. Development: X-Debug-Sub header (ONLY when devMode=true and no token is sent)
type Authenticator struct {
	secret  []byte
	devMode bool
}

// NewAuthenticator creates an authenticator for the given HS256 secret
func NewAuthenticator(secret string, devMode bool) *Authenticator {
	if devMode {
		log.Warn().Msg("SECURITY WARNING: DevMode enabled - X-Debug-Sub header will bypass JWT authentication")
	}
	return &Authenticator{secret: []byte(secret), devMode: devMode}
}

// Subject returns the authenticated user ID for r
func (a *Authenticator) Subject(r *http.Request) (string, error) {
	tok := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		tok = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	if tok == "" {
		if a.devMode {
			if sub := r.Header.Get("X-Debug-Sub"); sub != "" {
				log.Debug().Str("sub", sub).Msg("using X-Debug-Sub header (dev mode)")
				return sub, nil
			}
		}
		return "", ErrMissingToken
	}

	if len(a.secret) == 0 {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !t.Valid {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the
// subject in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := a.Subject(r)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("authentication failed")
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			writeResponse(w, http.StatusUnauthorized, newError(nil, InvalidRequest, "unauthorized", nil))
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, sub)
		logger := log.Ctx(ctx).With().Str("userId", sub).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}

// UserID returns the authenticated subject stored by Middleware
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(ctxUserID).(string); ok {
		return uid
	}
	return ""
}

// CorrelationMiddleware reads X-Correlation-ID (or generates one), echoes it
// back and attaches a request logger carrying it
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = newID()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := context.WithValue(r.Context(), ctxCorrelationID, correlationID)
		logger := log.With().Str("correlationId", correlationID).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}

// CorrelationID returns the request correlation ID, if any
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxCorrelationID).(string); ok {
		return id
	}
	return ""
}
