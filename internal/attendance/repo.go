package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAlreadyMarked signals that attendance for the subject was already
	// recorded for the requested day.
	ErrAlreadyMarked = errors.New("attendance already marked for today")
	// ErrSubjectNotFound covers both missing subjects and subjects owned by
	// another student; ownership is never leaked to the caller.
	ErrSubjectNotFound = errors.New("subject not found")
)

// Subject is a course tracked by one student.
type Subject struct {
	ID               string    `json:"id"`
	StudentID        string    `json:"-"`
	Name             string    `json:"name"`
	TotalClasses     int       `json:"total_classes"`
	AttendedClasses  int       `json:"attended_classes"`
	TargetAttendance int       `json:"target_attendance"`
	CreatedAt        time.Time `json:"created_at"`
}

// Record is one dated attendance event, at most one per subject per day.
type Record struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists subjects and attendance records in Postgres. Every
// query is scoped by the owning student id; row ownership is an application
// invariant here, not an optimization.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateSubject inserts a subject owned by the student.
func (r *Repository) CreateSubject(ctx context.Context, s Subject) (Subject, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, student_id, name, total_classes, attended_classes, target_attendance)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, s.ID, s.StudentID, s.Name, s.TotalClasses, s.AttendedClasses, s.TargetAttendance)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Subject{}, err
	}
	return s, nil
}

// UpdateSubject rewrites the editable fields of an owned subject.
func (r *Repository) UpdateSubject(ctx context.Context, s Subject) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subjects
		SET name = $3, total_classes = $4, attended_classes = $5, target_attendance = $6
		WHERE id = $1 AND student_id = $2
	`, s.ID, s.StudentID, s.Name, s.TotalClasses, s.AttendedClasses, s.TargetAttendance)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteSubject removes an owned subject; records cascade at the schema level.
func (r *Repository) DeleteSubject(ctx context.Context, studentID, subjectID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM subjects WHERE id = $1 AND student_id = $2
	`, subjectID, studentID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListSubjects returns the student's subjects ordered by name.
func (r *Repository) ListSubjects(ctx context.Context, studentID string) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, name, total_classes, attended_classes, target_attendance, created_at
		FROM subjects
		WHERE student_id = $1
		ORDER BY name
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Name, &s.TotalClasses, &s.AttendedClasses, &s.TargetAttendance, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// RecordsSince returns the student's records on or after the given day,
// oldest first.
func (r *Repository) RecordsSince(ctx context.Context, studentID string, since time.Time) ([]Record, error) {
	return r.queryRecords(ctx, `
		SELECT ar.id, ar.subject_id, ar.date, ar.status, ar.created_at
		FROM attendance_records ar
		JOIN subjects s ON s.id = ar.subject_id
		WHERE s.student_id = $1 AND ar.date >= $2
		ORDER BY ar.date
	`, studentID, dateArg(since))
}

// RecordsForMonth returns the student's records within one calendar month.
func (r *Repository) RecordsForMonth(ctx context.Context, studentID string, year int, month time.Month) ([]Record, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return r.queryRecords(ctx, `
		SELECT ar.id, ar.subject_id, ar.date, ar.status, ar.created_at
		FROM attendance_records ar
		JOIN subjects s ON s.id = ar.subject_id
		WHERE s.student_id = $1 AND ar.date >= $2 AND ar.date < $3
		ORDER BY ar.date
	`, studentID, dateArg(start), dateArg(end))
}

// Mark records one attendance event atomically: the ownership check, the
// insert and the counter increments happen in a single transaction, so two
// near-simultaneous calls for the same (subject, day) yield exactly one
// success and one ErrAlreadyMarked. The duplicate check is the unique index
// on (subject_id, date), not a client-side read.
func (r *Repository) Mark(ctx context.Context, studentID, subjectID string, status Status, day time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT student_id FROM subjects WHERE id = $1 FOR UPDATE`, subjectID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubjectNotFound
	}
	if err != nil {
		return err
	}
	if owner != studentID {
		return ErrSubjectNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_records (id, subject_id, date, status)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), subjectID, dateArg(day), string(status))
	if isUniqueViolation(err) {
		return ErrAlreadyMarked
	}
	if err != nil {
		return err
	}

	attended := 0
	if status == StatusPresent {
		attended = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE subjects
		SET total_classes = total_classes + 1, attended_classes = attended_classes + $2
		WHERE id = $1
	`, subjectID, attended); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.Date, &status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// dateArg formats a time at day granularity for DATE columns.
func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}
