package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taskfolio/taskfolio-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(params RegisterParams) (models.User, error)
	Authenticate(username, password string) (models.User, error)
	GetUserByID(id int64) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
}

// RegisterParams carries the validated signup form fields.
type RegisterParams struct {
	Username        string
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	MobileNumber    string
}

// UserService provides business logic for user management.
type UserService struct {
	db       *sql.DB
	eventSvc EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, eventSvc EventServiceProvider) *UserService {
	return &UserService{db: db, eventSvc: eventSvc}
}

// dummyHash is compared against when a login names an unknown user, so the
// response time does not reveal whether the username exists.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("taskfolio-dummy"), bcrypt.DefaultCost)
	return h
}()

// Register validates the signup fields, hashes the password and persists the
// new user. Uniqueness of username and email is ultimately enforced by the
// database constraints, so concurrent registrations cannot both succeed.
func (s *UserService) Register(params RegisterParams) (models.User, error) {
	required := map[string]string{
		"username":      params.Username,
		"first name":    params.FirstName,
		"last name":     params.LastName,
		"email":         params.Email,
		"password":      params.Password,
		"mobile number": params.MobileNumber,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return models.User{}, fmt.Errorf("%w: %s is required", ErrValidation, field)
		}
	}
	if params.Password != params.ConfirmPassword {
		return models.User{}, fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	if _, err := s.GetUserByEmail(params.Email); err == nil {
		return models.User{}, fmt.Errorf("%w: email already in use", ErrConflict)
	}
	if _, err := s.GetUserByUsername(params.Username); err == nil {
		return models.User{}, fmt.Errorf("%w: username already taken", ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO users (username, first_name, last_name, email, password_hash, mobile_number)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(params.Username, params.FirstName, params.LastName, params.Email, string(hashedPassword), params.MobileNumber)
	if err != nil {
		// The lookups above race with concurrent registrations; the UNIQUE
		// constraints are the authoritative check.
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: username or email already in use", ErrConflict)
		}
		return models.User{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	s.eventSvc.CreateEvent("user.signup", "info", fmt.Sprintf("User '%s' signed up.", params.Username), &id)
	return s.GetUserByID(id)
}

// Authenticate verifies a user's credentials and returns the matching user.
// Any failure yields ErrInvalidCredentials.
func (s *UserService) Authenticate(username, password string) (models.User, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil {
		// Burn a hash comparison anyway to keep the timing close to the
		// wrong-password path.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return models.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID. The password hash is not
// loaded.
func (s *UserService) GetUserByID(id int64) (models.User, error) {
	var user models.User
	row := s.db.QueryRow(`
		SELECT id, username, first_name, last_name, email, mobile_number, created_at
		FROM users WHERE id = ?`, id)
	err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &user.MobileNumber, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByUsername retrieves a single user by username, including the
// password hash for credential checks.
func (s *UserService) GetUserByUsername(username string) (models.User, error) {
	return s.getUserBy("username", username)
}

// GetUserByEmail retrieves a single user by email, including the password
// hash.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	return s.getUserBy("email", email)
}

func (s *UserService) getUserBy(column, value string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow(`
		SELECT id, username, first_name, last_name, email, password_hash, mobile_number, created_at
		FROM users WHERE `+column+` = ?`, value)
	err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.MobileNumber, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%w: user with %s %q", ErrNotFound, column, value)
		}
		return models.User{}, err
	}
	return user, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
