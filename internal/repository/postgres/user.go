package postgres

import (
	"context"
	"database/sql"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, password_hash, name, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	now := time.Now()
	u.CreatedOn = now
	u.UpdatedOn = now
	return r.db.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.Name, u.CreatedOn, u.UpdatedOn).Scan(&u.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, password_hash, name, confirmed_on, created_on, updated_on FROM users WHERE id = $1`
	var confirmedOn sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &confirmedOn, &u.CreatedOn, &u.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if confirmedOn.Valid {
		u.ConfirmedOn = &confirmedOn.Time
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, password_hash, name, confirmed_on, created_on, updated_on FROM users WHERE LOWER(email) = LOWER($1)`
	var confirmedOn sql.NullTime
	err := r.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &confirmedOn, &u.CreatedOn, &u.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if confirmedOn.Valid {
		u.ConfirmedOn = &confirmedOn.Time
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET email=$1, name=$2, password_hash=$3, updated_on=$4 WHERE id=$5`
	u.UpdatedOn = time.Now()
	_, err := r.db.ExecContext(ctx, query, u.Email, u.Name, u.PasswordHash, u.UpdatedOn, u.ID)
	return err
}

func (r *userRepository) MarkConfirmed(ctx context.Context, id int32) error {
	query := `UPDATE users SET confirmed_on = NOW(), updated_on = NOW() WHERE id = $1 AND confirmed_on IS NULL`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
