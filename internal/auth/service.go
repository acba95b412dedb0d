package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bot-inventory/internal/cache"
	"bot-inventory/internal/repo"
)

const (
	sessionPrefix     = "session:"
	defaultSessionTTL = 7 * 24 * time.Hour
)

var (
	// ErrMissingFields is returned by Signup and Login when a required field is blank.
	ErrMissingFields = errors.New("name, email and password are required")
	// ErrEmailTaken means another account already uses the email.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for a missing, unknown or expired session token.
	ErrUnauthorized = errors.New("invalid or expired token")
)

// UserStore is the subset of the repository auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*repo.User, error)
	GetUserByEmail(ctx context.Context, email string) (*repo.User, error)
	GetUserByID(ctx context.Context, id string) (*repo.User, error)
}

// Config tunes sessions and hashing.
type Config struct {
	SessionTTL time.Duration
	BcryptCost int
}

// Session is what a token resolves to.
type Session struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages accounts and opaque session tokens kept in Redis.
type Service struct {
	users  UserStore
	redis  *cache.Redis
	ttl    time.Duration
	cost   int
	logger *slog.Logger
}

// NewService builds the service. A zero SessionTTL means seven days and a zero
// BcryptCost means bcrypt.DefaultCost.
func NewService(users UserStore, redis *cache.Redis, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:  users,
		redis:  redis,
		ttl:    cfg.SessionTTL,
		cost:   cfg.BcryptCost,
		logger: logger.With("component", "auth"),
	}
}

// Signup creates an account and opens a session for it.
func (s *Service) Signup(ctx context.Context, name, email, password string) (string, *repo.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return "", nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, name, email, string(hash))
	if errors.Is(err, repo.ErrDuplicate) {
		return "", nil, ErrEmailTaken
	}
	if err != nil {
		return "", nil, err
	}

	token, err := s.issue(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("user signed up", "user_id", user.ID)
	return token, user, nil
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (string, *repo.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrMissingFields
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issue(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate resolves a token to its user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	var sess Session
	found, err := s.redis.GetJSON(ctx, sessionPrefix+token, &sess)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !found || sess.UserID == "" {
		return "", ErrUnauthorized
	}
	return sess.UserID, nil
}

// Logout drops the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.redis.Delete(ctx, sessionPrefix+strings.TrimSpace(token))
}

// User loads the account behind an id.
func (s *Service) User(ctx context.Context, userID string) (*repo.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *Service) issue(ctx context.Context, userID string) (string, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	sess := Session{UserID: userID, CreatedAt: time.Now().UTC()}
	if err := s.redis.SetJSON(ctx, sessionPrefix+token, sess, s.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
