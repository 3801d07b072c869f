package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindBySubject looks up a user by provider subject id.
func (r *PostgresRepository) FindBySubject(ctx context.Context, subjectID string) (User, error) {
	const query = `
		SELECT id, subject_id, name, email, picture_url, created_at, updated_at
		FROM users
		WHERE subject_id = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	return row.toUser(), nil
}

// InsertIfAbsent relies on the unique index on subject_id; a conflicting insert
// writes nothing and the existing row is returned.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, user User) (User, bool, error) {
	const query = `
		INSERT INTO users (id, subject_id, name, email, picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.SubjectID,
		user.Name,
		user.Email,
		user.PictureURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return User{}, false, fmt.Errorf("insert user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return User{}, false, fmt.Errorf("insert user: %w", err)
	}
	if affected == 1 {
		return user, true, nil
	}

	existing, err := r.FindBySubject(ctx, user.SubjectID)
	if err != nil {
		return User{}, false, err
	}
	return existing, false, nil
}

// UpdateProfile refreshes the provider-supplied fields of an existing user.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, subjectID, name, email, pictureURL string, updatedAt time.Time) (User, error) {
	const query = `
		UPDATE users
		SET name = $2, email = $3, picture_url = $4, updated_at = $5
		WHERE subject_id = $1
		RETURNING id, subject_id, name, email, picture_url, created_at, updated_at
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, subjectID, name, email, pictureURL, updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}

	return row.toUser(), nil
}

// userRow is a database row representation of User.
type userRow struct {
	ID         uuid.UUID `db:"id"`
	SubjectID  string    `db:"subject_id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	PictureURL string    `db:"picture_url"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *userRow) toUser() User {
	return User{
		ID:         r.ID,
		SubjectID:  r.SubjectID,
		Name:       r.Name,
		Email:      r.Email,
		PictureURL: r.PictureURL,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
