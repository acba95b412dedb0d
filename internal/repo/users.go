package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an account owning an inventory.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateUser inserts a user. A taken email yields ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	created := r.timestamp()
	_, err := r.exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, created,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

// GetUserByEmail looks a user up by exact email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.queryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email))
}

// GetUserByID looks a user up by id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	return r.scanUser(r.queryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (r *Repository) scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u       User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		return nil, notFound(err)
	}
	u.CreatedAt = fromNanos(created)
	return &u, nil
}
