package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
)

// Authenticator validates bearer tokens and places the caller's identity in
// the request context. Token issuance (signup, login) lives in a separate
// identity service; this core only verifies.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator with the given HMAC secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Claims are the JWT claims this service understands.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// parseToken validates the signature and expiry and extracts the identity.
func (a *Authenticator) parseToken(raw string) (*domain.User, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.New("invalid subject")
	}

	role := domain.Role(claims.Role)
	if role != domain.RoleCustomer && role != domain.RoleAdmin {
		return nil, errors.New("unknown role")
	}

	return &domain.User{ID: userID, Role: role}, nil
}

// Authenticate requires a valid bearer token and stores the user in context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" {
			unauthorized(w, "authentication required")
			return
		}

		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, "invalid authorization header")
			return
		}

		user, err := a.parseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.NewContextWithUser(r.Context(), user)))
	})
}

// RequireAdmin rejects authenticated callers without the admin role. Chain
// after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := domain.UserFromContext(r.Context())
		if user == nil {
			unauthorized(w, "authentication required")
			return
		}
		if !user.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GenerateToken signs a token for the given identity. Used by tests and
// operational tooling; production tokens come from the identity service
// sharing the same secret.
func (a *Authenticator) GenerateToken(userID uuid.UUID, role domain.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, message)
}

// writeJSONError emits the API error envelope without importing the handler
// package.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
