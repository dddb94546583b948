package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/parleychat/parley-backend/internal/models"
)

// PostgresAccounts stores authentication records in PostgreSQL. Uniqueness
// is enforced by the users table constraint rather than a read-then-write.
type PostgresAccounts struct {
	db *sql.DB
}

func NewPostgresAccounts(db *sql.DB) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

func (a *PostgresAccounts) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, secret, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Username, user.Password, user.Secret, user.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (a *PostgresAccounts) FindUser(ctx context.Context, username string) (models.User, bool, error) {
	var user models.User
	err := a.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, secret, created_at
		FROM users WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.Password, &user.Secret, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}
