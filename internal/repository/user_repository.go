package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maputo/user-service/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a username or email is already taken.
	ErrDuplicate = errors.New("user already exists")
)

// UserRepository defines persistence access for user records.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	DeleteByID(ctx context.Context, id int64) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, user_id, first_name, last_name, username, password_hash, email,
        profile_image_url, last_login_date, last_login_date_display, join_date,
        role, authorities, is_active, is_not_blocked`

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Save inserts users without an ID and updates the rest.
func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	if user.ID == 0 {
		return r.insert(ctx, user)
	}
	return r.update(ctx, user)
}

func (r *userRepository) insert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (user_id, first_name, last_name, username, password_hash, email,
            profile_image_url, last_login_date, last_login_date_display, join_date,
            role, authorities, is_active, is_not_blocked)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		user.UserID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.ProfileImageURL,
		user.LastLoginDate,
		user.LastLoginDateDisplay,
		user.JoinDate,
		string(user.Role),
		user.Authorities,
		user.Active,
		user.NotBlocked,
	).Scan(&user.ID)
	return mapWriteError(err)
}

func (r *userRepository) update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET user_id=$1, first_name=$2, last_name=$3, username=$4, password_hash=$5,
            email=$6, profile_image_url=$7, last_login_date=$8, last_login_date_display=$9,
            join_date=$10, role=$11, authorities=$12, is_active=$13, is_not_blocked=$14
        WHERE id=$15`

	cmd, err := r.pool.Exec(ctx, query,
		user.UserID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.ProfileImageURL,
		user.LastLoginDate,
		user.LastLoginDateDisplay,
		user.JoinDate,
		string(user.Role),
		user.Authorities,
		user.Active,
		user.NotBlocked,
		user.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) DeleteByID(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.UserID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.ProfileImageURL,
		&user.LastLoginDate,
		&user.LastLoginDateDisplay,
		&user.JoinDate,
		&role,
		&user.Authorities,
		&user.Active,
		&user.NotBlocked,
	); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("save user: %w", err)
}
