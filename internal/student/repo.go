package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Student is the identity record. It is never hard-deleted; a data reset
// clears dependents only.
type Student struct {
	ID                 string     `json:"id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	OverallTarget      int        `json:"overall_target_attendance"`
	SubscriptionActive bool       `json:"subscription_active"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Repository persists student identities in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, full_name, email, password_hash, overall_target_attendance, subscription_active, subscription_expiry, created_at`

// Create inserts a new student row.
func (r *Repository) Create(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, full_name, email, password_hash, overall_target_attendance)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, st.ID, st.FullName, st.Email, st.PasswordHash, st.OverallTarget)
	if err := row.Scan(&st.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Student{}, ErrEmailTaken
		}
		return Student{}, err
	}
	return st, nil
}

// GetByEmail returns the student with the given email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email)
}

// GetByID returns the student with the given id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

// UpdateProfile rewrites the editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id, fullName string, overallTarget int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE students SET full_name = $2, overall_target_attendance = $3 WHERE id = $1
	`, id, fullName, overallTarget)
	return err
}

// ActivateSubscription flips the entitlement flag and records the expiry.
func (r *Repository) ActivateSubscription(ctx context.Context, id string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET subscription_active = TRUE, subscription_expiry = $2 WHERE id = $1
	`, id, expiry)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("student not found")
	}
	return nil
}

// ResetData deletes the student's subjects; attendance records go with them
// via the schema cascade. The identity row stays.
func (r *Repository) ResetData(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE student_id = $1`, id)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, studentID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (student_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, studentID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

// RefreshTokenValid reports whether the token is known, unrevoked and unexpired.
func (r *Repository) RefreshTokenValid(ctx context.Context, token string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT NOT revoked AND expires_at > NOW() FROM refresh_tokens WHERE token = $1
	`, token).Scan(&ok)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*Student, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var st Student
	if err := row.Scan(&st.ID, &st.FullName, &st.Email, &st.PasswordHash, &st.OverallTarget, &st.SubscriptionActive, &st.SubscriptionExpiry, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
