package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"floritechat/internal/app/db"
)

// PGStore is the PostgreSQL implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
	cost int
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, cost: bcrypt.DefaultCost}
}

func (s *PGStore) Register(ctx context.Context, username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, avatar)
		 VALUES ($1, $2, $3)
		 RETURNING id::text`,
		username, string(hash), DefaultAvatar,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

func (s *PGStore) Verify(ctx context.Context, username, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, username, password_hash, avatar, created_at, last_login_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &hash, &u.Avatar, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := time.Now()
	if _, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1::uuid`, u.ID, now); err != nil {
		return User{}, fmt.Errorf("record login: %w", err)
	}
	u.LastLoginAt = &now

	return u, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, username, avatar, created_at, last_login_at
		 FROM users WHERE id = $1::uuid`,
		id,
	).Scan(&u.ID, &u.Username, &u.Avatar, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
