package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
)

// Claims defines the JWT claims structure. The session id rides in the ID
// (jti) registered claim; the token is only as alive as the session row it
// points at.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionID returns the server-side session id the token references.
func (c *Claims) SessionID() string {
	return c.ID
}

type contextKey string

// userClaimsKey is the context key for user claims.
const userClaimsKey = contextKey("userClaims")

// Manager issues and validates session tokens. The signing key and the
// session store are injected so no process-wide state is involved.
type Manager struct {
	key      []byte
	sessions services.SessionServiceProvider
}

// NewManager creates a token Manager.
func NewManager(secret string, sessions services.SessionServiceProvider) *Manager {
	return &Manager{key: []byte(secret), sessions: sessions}
}

// GenerateToken creates a signed JWT bound to the given session. The token
// expires together with the session.
func (m *Manager) GenerateToken(user models.User, session models.Session) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// ValidateToken parses and validates a JWT string.
func (m *Manager) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Middleware gates protected routes. A request passes only when it carries a
// valid token and the referenced server-side session still exists, so
// logout and expiry are effective immediately.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			// 1. Try to get the token from the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, "Bearer ")
				if len(parts) == 2 {
					tokenStr = parts[1]
				}
			}

			// 2. If not in header, fall back to the cookie
			if tokenStr == "" {
				cookie, err := r.Cookie("token")
				if err != nil {
					http.Error(w, "Missing auth token", http.StatusUnauthorized)
					return
				}
				tokenStr = cookie.Value
			}

			if tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			claims, err := m.ValidateToken(tokenStr)
			if err != nil {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			// The token may still be within its lifetime while the session
			// was cleared by logout.
			if _, err := m.sessions.Validate(claims.SessionID()); err != nil {
				http.Error(w, "Session expired or revoked", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts the authenticated claims placed by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*Claims)
	return claims, ok
}
