package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskfolio/taskfolio-be/internal/models"
)

// SessionServiceProvider defines the interface for session services.
type SessionServiceProvider interface {
	Establish(user models.User) (models.Session, error)
	Validate(sessionID string) (models.Session, error)
	Clear(sessionID string) error
	PurgeExpired() (int64, error)
}

// SessionService manages server-side session records. Tokens handed to
// clients only reference a session by its opaque id; the record here is the
// source of truth, so clearing it logs the user out everywhere the token is
// presented.
type SessionService struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionService creates a new SessionService.
func NewSessionService(db *sql.DB, ttl time.Duration) *SessionService {
	return &SessionService{db: db, ttl: ttl}
}

// Establish creates a new session for the given user.
func (s *SessionService) Establish(user models.User) (models.Session, error) {
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}

	stmt, err := s.db.Prepare("INSERT INTO sessions (id, user_id, username, created_at, expires_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return models.Session{}, err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(session.ID, session.UserID, session.Username, session.CreatedAt, session.ExpiresAt); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

// Validate looks up a session by id and checks it has not expired. Expired
// sessions are removed as a side effect.
func (s *SessionService) Validate(sessionID string) (models.Session, error) {
	var session models.Session
	row := s.db.QueryRow("SELECT id, user_id, username, created_at, expires_at FROM sessions WHERE id = ?", sessionID)
	err := row.Scan(&session.ID, &session.UserID, &session.Username, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, fmt.Errorf("%w: no such session", ErrAuth)
		}
		return models.Session{}, err
	}
	if session.Expired() {
		_ = s.Clear(session.ID)
		return models.Session{}, fmt.Errorf("%w: session expired", ErrAuth)
	}
	return session, nil
}

// Clear removes a session, returning the holder to anonymous. Clearing an
// already-absent session is not an error.
func (s *SessionService) Clear(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

// PurgeExpired deletes all expired sessions and reports how many were
// removed.
func (s *SessionService) PurgeExpired() (int64, error) {
	res, err := s.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
