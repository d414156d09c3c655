package attendance

import (
	"context"
	"errors"
	"time"
)

const trendWindowDays = 7

// defaultTargetAttendance applies when the input leaves the target unset;
// matches the schema default for rows inserted outside the API.
const defaultTargetAttendance = 75

// SubjectInput carries user-supplied subject fields.
type SubjectInput struct {
	Name             string `json:"name" binding:"required"`
	TotalClasses     int    `json:"total_classes"`
	AttendedClasses  int    `json:"attended_classes"`
	TargetAttendance int    `json:"target_attendance"`
}

// SubjectView is a subject plus its derived compliance. Compliance is nil
// when no classes have been held yet so the client renders "N/A".
type SubjectView struct {
	Subject
	Compliance  *int   `json:"compliance"`
	BelowTarget bool   `json:"below_target"`
	TodayStatus Status `json:"today_status,omitempty"`
}

// Dashboard is the single payload behind the main screen: overall stats,
// trend and per-subject state, all derived fresh from the raw rows.
type Dashboard struct {
	Stats    OverallStats  `json:"stats"`
	Trend    []TrendPoint  `json:"trend"`
	Subjects []SubjectView `json:"subjects"`
}

// repository is the persistence surface the service needs.
type repository interface {
	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	UpdateSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, studentID, subjectID string) error
	ListSubjects(ctx context.Context, studentID string) ([]Subject, error)
	RecordsSince(ctx context.Context, studentID string, since time.Time) ([]Record, error)
	RecordsForMonth(ctx context.Context, studentID string, year int, month time.Month) ([]Record, error)
	Mark(ctx context.Context, studentID, subjectID string, status Status, day time.Time) error
}

// Service coordinates subject management, marking and aggregation.
type Service struct {
	repo repository
}

// NewService creates a service backed by a repository.
func NewService(repo repository) *Service {
	return &Service{repo: repo}
}

// CreateSubject validates and stores a new subject for the student.
func (s *Service) CreateSubject(ctx context.Context, studentID string, in SubjectInput) (Subject, error) {
	if err := validateSubject(in); err != nil {
		return Subject{}, err
	}
	return s.repo.CreateSubject(ctx, subjectFromInput("", studentID, in))
}

// UpdateSubject validates and rewrites an owned subject.
func (s *Service) UpdateSubject(ctx context.Context, studentID, subjectID string, in SubjectInput) error {
	if err := validateSubject(in); err != nil {
		return err
	}
	return s.repo.UpdateSubject(ctx, subjectFromInput(subjectID, studentID, in))
}

// DeleteSubject removes an owned subject and, by cascade, its records.
func (s *Service) DeleteSubject(ctx context.Context, studentID, subjectID string) error {
	return s.repo.DeleteSubject(ctx, studentID, subjectID)
}

// ListSubjects returns the student's subjects with derived compliance.
func (s *Service) ListSubjects(ctx context.Context, studentID string) ([]SubjectView, error) {
	subjects, err := s.repo.ListSubjects(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return subjectViews(subjects, nil), nil
}

// Mark records today's attendance for one subject. Only present and absent
// may be marked interactively; leave is reserved for imported data.
func (s *Service) Mark(ctx context.Context, studentID, subjectID string, status Status, day time.Time) error {
	if subjectID == "" {
		return errors.New("subject id required")
	}
	if status != StatusPresent && status != StatusAbsent {
		return errors.New("status must be present or absent")
	}
	return s.repo.Mark(ctx, studentID, subjectID, status, day)
}

// Dashboard assembles the full dashboard payload for the student as of now.
func (s *Service) Dashboard(ctx context.Context, studentID string, now time.Time) (Dashboard, error) {
	subjects, err := s.repo.ListSubjects(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}
	since := now.AddDate(0, 0, -30)
	records, err := s.repo.RecordsSince(ctx, studentID, since)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Stats:    Overall(subjects),
		Trend:    Trend(records, trendWindowDays, now),
		Subjects: subjectViews(subjects, TodayMarking(records, now)),
	}, nil
}

// MonthRecords returns the student's records for one calendar month.
func (s *Service) MonthRecords(ctx context.Context, studentID string, year int, month time.Month) ([]Record, error) {
	if month < time.January || month > time.December {
		return nil, errors.New("invalid month")
	}
	return s.repo.RecordsForMonth(ctx, studentID, year, month)
}

func subjectViews(subjects []Subject, today map[string]Status) []SubjectView {
	views := make([]SubjectView, 0, len(subjects))
	for _, sub := range subjects {
		v := SubjectView{Subject: sub, BelowTarget: BelowTarget(sub)}
		if pct, ok := Compliance(sub); ok {
			p := pct
			v.Compliance = &p
		}
		if st, ok := today[sub.ID]; ok {
			v.TodayStatus = st
		}
		views = append(views, v)
	}
	return views
}

// subjectFromInput maps validated input onto a subject row. A zero target
// means the field was omitted and falls back to the default; without the
// fallback the subject could never be flagged below target.
func subjectFromInput(subjectID, studentID string, in SubjectInput) Subject {
	target := in.TargetAttendance
	if target == 0 {
		target = defaultTargetAttendance
	}
	return Subject{
		ID:               subjectID,
		StudentID:        studentID,
		Name:             in.Name,
		TotalClasses:     in.TotalClasses,
		AttendedClasses:  in.AttendedClasses,
		TargetAttendance: target,
	}
}

func validateSubject(in SubjectInput) error {
	if in.Name == "" {
		return errors.New("subject name required")
	}
	if in.TotalClasses < 0 || in.AttendedClasses < 0 {
		return errors.New("class counts must not be negative")
	}
	if in.AttendedClasses > in.TotalClasses {
		return errors.New("attended classes cannot exceed total classes")
	}
	if in.TargetAttendance < 0 || in.TargetAttendance > 100 {
		return errors.New("target attendance must be between 0 and 100")
	}
	return nil
}
