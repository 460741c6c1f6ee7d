package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskfolio/taskfolio-be/internal/database"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
)

func setup(t *testing.T) (*sql.DB, *services.SessionService, *Manager) {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	sessions := services.NewSessionService(db, time.Hour)
	return db, sessions, NewManager("test-secret", sessions)
}

func establishedUser(t *testing.T, db *sql.DB, sessions *services.SessionService) (models.User, models.Session) {
	t.Helper()
	userSvc := services.NewUserService(db, services.NewEventService(db))
	user, err := userSvc.Register(services.RegisterParams{
		Username:        "testuser",
		FirstName:       "Test",
		LastName:        "User",
		Email:           "test@example.com",
		Password:        "securepassword",
		ConfirmPassword: "securepassword",
		MobileNumber:    "5551234567",
	})
	require.NoError(t, err)

	session, err := sessions.Establish(user)
	require.NoError(t, err)
	return user, session
}

func TestGenerateAndValidateToken(t *testing.T) {
	db, sessions, mgr := setup(t)
	user, session := establishedUser(t, db, sessions)

	token, err := mgr.GenerateToken(user, session)
	require.NoError(t, err)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, session.ID, claims.SessionID())
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, _, mgr := setup(t)

	_, err := mgr.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	db, sessions, mgr := setup(t)
	user, session := establishedUser(t, db, sessions)

	other := NewManager("different-secret", sessions)
	token, err := other.GenerateToken(user, session)
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	db, sessions, mgr := setup(t)
	user, session := establishedUser(t, db, sessions)

	token, err := mgr.GenerateToken(user, session)
	require.NoError(t, err)

	var sawClaims *Claims
	protected := mgr.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		sawClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID, sawClaims.UserID)
	})

	t.Run("valid cookie token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token survives validation but not logout", func(t *testing.T) {
		require.NoError(t, sessions.Clear(session.ID))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
