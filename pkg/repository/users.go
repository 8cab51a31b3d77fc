package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

type UsersRepository struct {
	db *sql.DB
}

func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func (r *UsersRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (id, email, name, major, grad_year, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`

	user.Email = strings.ToLower(user.Email)
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.Major, user.GradYear, user.PasswordHash).
		Scan(&user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (r *UsersRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, hash); err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	return nil
}

func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
		SELECT id, email, name, major, grad_year, password_hash, created_at
		FROM users
		WHERE email = $1
	`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).
		Scan(&user.ID, &user.Email, &user.Name, &user.Major, &user.GradYear, &user.PasswordHash, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching user by email: %w", err)
	}

	return &user, nil
}
