package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcewen/vanir/internal/domain"
)

const testSecret = "test-secret-at-least-32-bytes-long"

func runAuth(t *testing.T, auth *Authenticator, header string) (*httptest.ResponseRecorder, *domain.User) {
	t.Helper()

	var captured *domain.User
	handler := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = domain.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, captured
}

func TestAuthenticate(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	t.Run("valid token puts the user in context", func(t *testing.T) {
		userID := uuid.New()
		token, err := auth.GenerateToken(userID, domain.RoleCustomer, time.Hour)
		require.NoError(t, err)

		w, user := runAuth(t, auth, "Bearer "+token)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, domain.RoleCustomer, user.Role)
	})

	t.Run("missing header", func(t *testing.T) {
		w, user := runAuth(t, auth, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, user)
	})

	t.Run("malformed header", func(t *testing.T) {
		w, _ := runAuth(t, auth, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthenticator("another-secret-that-does-not-match")
		token, err := other.GenerateToken(uuid.New(), domain.RoleCustomer, time.Hour)
		require.NoError(t, err)

		w, _ := runAuth(t, auth, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := auth.GenerateToken(uuid.New(), domain.RoleCustomer, -time.Minute)
		require.NoError(t, err)

		w, _ := runAuth(t, auth, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := auth.GenerateToken(uuid.New(), domain.Role("superuser"), time.Hour)
		require.NoError(t, err)

		w, _ := runAuth(t, auth, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	run := func(user *domain.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		if user != nil {
			req = req.WithContext(domain.NewContextWithUser(req.Context(), user))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, run(&domain.User{ID: uuid.New(), Role: domain.RoleAdmin}).Code)
	assert.Equal(t, http.StatusForbidden, run(&domain.User{ID: uuid.New(), Role: domain.RoleCustomer}).Code)
	assert.Equal(t, http.StatusUnauthorized, run(nil).Code)
}
