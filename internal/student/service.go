package student

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTarget is the overall attendance target assigned at sign-up.
const DefaultTarget = 75

var (
	// ErrEmailTaken signals a duplicate sign-up.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// repository is the persistence surface the service needs.
type repository interface {
	Create(ctx context.Context, st Student) (Student, error)
	GetByEmail(ctx context.Context, email string) (*Student, error)
	GetByID(ctx context.Context, id string) (*Student, error)
	UpdateProfile(ctx context.Context, id, fullName string, overallTarget int) error
	ResetData(ctx context.Context, id string) error
}

// Service handles sign-up, sign-in, profile management and the payment wall.
type Service struct {
	repo repository
}

// NewService creates a service backed by a repository.
func NewService(repo repository) *Service {
	return &Service{repo: repo}
}

// SignUp registers a new student with a hashed password.
func (s *Service) SignUp(ctx context.Context, fullName, email, password string) (Student, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return Student{}, errors.New("name and email required")
	}
	if len(password) < 8 {
		return Student{}, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Student{}, err
	}
	return s.repo.Create(ctx, Student{
		FullName:      fullName,
		Email:         email,
		PasswordHash:  string(hash),
		OverallTarget: DefaultTarget,
	})
}

// SignIn checks email and password, returning the student on success.
func (s *Service) SignIn(ctx context.Context, email, password string) (Student, error) {
	st, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)) != nil {
		return Student{}, ErrInvalidCredentials
	}
	return *st, nil
}

// Entitled is the single source of truth for the payment wall: strictly the
// subscription flag. The expiry timestamp is informational and not enforced.
func Entitled(st Student) bool {
	return st.SubscriptionActive
}

// Profile returns the student's own record.
func (s *Service) Profile(ctx context.Context, id string) (Student, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, errors.New("student not found")
	}
	return *st, nil
}

// UpdateProfile rewrites the student's display name and overall target.
func (s *Service) UpdateProfile(ctx context.Context, id, fullName string, overallTarget int) error {
	if fullName == "" {
		return errors.New("name required")
	}
	if overallTarget < 0 || overallTarget > 100 {
		return errors.New("target attendance must be between 0 and 100")
	}
	return s.repo.UpdateProfile(ctx, id, fullName, overallTarget)
}

// Reset deletes the student's subjects and attendance history, keeping the
// identity and its entitlement intact.
func (s *Service) Reset(ctx context.Context, id string) error {
	return s.repo.ResetData(ctx, id)
}
