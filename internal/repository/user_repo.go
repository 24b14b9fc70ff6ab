package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"petromanage/internal/model"
)

const uniqueViolation = "23505"

const selectUserColumns = `SELECT id, name, email, password_hash, role, otp, otp_generated_at, created_at, updated_at FROM users`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUserColumns+` WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id, created_at, updated_at`,
		nullString(u.Name), u.Email, nullString(u.PasswordHash), nullString(u.Role), now).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.User{}, model.ErrEmailAlreadyInUse
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update locks the row for email, hands a copy to fn and writes back whatever
// fn left in it. An error from fn rolls the transaction back untouched.
func (r *UserRepository) Update(ctx context.Context, email string, fn func(*model.User) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin user update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := scanUser(tx.QueryRow(ctx, selectUserColumns+` WHERE email = $1 FOR UPDATE`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	if err := fn(&u); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE users
		 SET name = $2, password_hash = $3, role = $4, otp = $5, otp_generated_at = $6, updated_at = $7
		 WHERE id = $1`,
		u.ID, nullString(u.Name), nullString(u.PasswordHash), nullString(u.Role),
		nullString(u.Otp), u.OtpGeneratedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit user update: %w", err)
	}
	return nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, selectUserColumns+` WHERE role = $1 ORDER BY id`, strings.TrimSpace(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u                     model.User
		name, hash, role, otp *string
	)
	if err := row.Scan(&u.ID, &name, &u.Email, &hash, &role, &otp, &u.OtpGeneratedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	u.Name = deref(name)
	u.PasswordHash = deref(hash)
	u.Role = deref(role)
	u.Otp = deref(otp)
	return u, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
