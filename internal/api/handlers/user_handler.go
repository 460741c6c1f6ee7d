package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/taskfolio/taskfolio-be/internal/auth"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
)

// UserHandler handles HTTP requests for signup, login and the current user.
type UserHandler struct {
	users    services.UserServiceProvider
	sessions services.SessionServiceProvider
	events   services.EventServiceProvider
	tokens   *auth.Manager
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, sessions services.SessionServiceProvider, events services.EventServiceProvider, tokens *auth.Manager) *UserHandler {
	return &UserHandler{users: users, sessions: sessions, events: events, tokens: tokens}
}

// SignupPayload defines the structure for registration requests.
type SignupPayload struct {
	Username        string `json:"username"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	MobileNumber    string `json:"mobileNumber"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles new user registration and logs the user in on success.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(services.RegisterParams{
		Username:        payload.Username,
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		MobileNumber:    payload.MobileNumber,
	})
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		respondError(w, err)
		return
	}

	h.establishSession(w, user, http.StatusCreated)
}

// Login handles user authentication, session establishment and token
// generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		respondError(w, err)
		return
	}

	h.events.CreateEvent("user.login", "info", "Logged in.", &user.ID)
	h.establishSession(w, user, http.StatusOK)
}

// Logout clears the server-side session referenced by the caller's token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Clear(claims.SessionID()); err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to clear session")
		respondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
	w.WriteHeader(http.StatusNoContent)
}

// GetMe retrieves the currently authenticated user.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	user, err := h.users.GetUserByID(claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("User from token not found in DB")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// establishSession creates a session row, issues the matching token and sets
// it as an HttpOnly cookie.
func (h *UserHandler) establishSession(w http.ResponseWriter, user models.User, status int) {
	session, err := h.sessions.Establish(user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to establish session")
		respondError(w, err)
		return
	}

	token, err := h.tokens.GenerateToken(user, session)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate token")
		respondError(w, err)
		return
	}

	// Set Secure flag based on environment.
	isProd := os.Getenv("APP_ENV") == "production"

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   isProd,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	respondJSON(w, status, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
