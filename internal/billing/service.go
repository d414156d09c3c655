package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"attendtrack/internal/mail"
	"attendtrack/internal/queue"
	"attendtrack/internal/razorpay"
	"attendtrack/internal/student"
)

// subscriptionMonths is the entitlement period granted per payment,
// calendar-month arithmetic.
const subscriptionMonths = 6

// ReconciliationError means the payment succeeded but the entitlement update
// did not: the student has paid and is not entitled. It must reach operators
// distinctly, never folded into a generic failure.
type ReconciliationError struct {
	StudentID  string
	PaymentRef string
	Err        error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payment %s for student %s succeeded but entitlement update failed: %v", e.PaymentRef, e.StudentID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// entitlements is the student-store surface the flow needs.
type entitlements interface {
	GetByID(ctx context.Context, id string) (*student.Student, error)
	ActivateSubscription(ctx context.Context, id string, expiry time.Time) error
}

// orders creates payment orders with the external processor.
type orders interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error)
}

// Service drives order creation and payment finalization.
type Service struct {
	students entitlements
	orders   orders
	jobs     queue.Queue
	amount   int64
	currency string
	now      func() time.Time
}

// NewService creates the billing service. amount is in currency subunits.
func NewService(students entitlements, orders orders, jobs queue.Queue, amount int64, currency string) *Service {
	return &Service{
		students: students,
		orders:   orders,
		jobs:     jobs,
		amount:   amount,
		currency: currency,
		now:      time.Now,
	}
}

// CreateOrder opens a fixed-amount order for the one-time fee.
func (s *Service) CreateOrder(ctx context.Context, studentID string) (*razorpay.Order, error) {
	return s.orders.CreateOrder(ctx, s.amount, s.currency, "receipt_"+studentID)
}

// Finalize flips the entitlement after a confirmed payment and queues a
// best-effort receipt. A receipt failure never reverses the entitlement; an
// entitlement failure after payment is a ReconciliationError.
func (s *Service) Finalize(ctx context.Context, studentID, paymentRef string) (time.Time, error) {
	if paymentRef == "" {
		return time.Time{}, errors.New("payment reference required")
	}

	st, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return time.Time{}, &ReconciliationError{StudentID: studentID, PaymentRef: paymentRef, Err: err}
	}
	if st == nil {
		return time.Time{}, &ReconciliationError{StudentID: studentID, PaymentRef: paymentRef, Err: errors.New("student not found")}
	}

	now := s.now()
	expiry := now.AddDate(0, subscriptionMonths, 0)
	if err := s.students.ActivateSubscription(ctx, studentID, expiry); err != nil {
		return time.Time{}, &ReconciliationError{StudentID: studentID, PaymentRef: paymentRef, Err: err}
	}

	s.queueReceipt(ctx, *st, paymentRef, now)
	return expiry, nil
}

func (s *Service) queueReceipt(ctx context.Context, st student.Student, paymentRef string, when time.Time) {
	job := mail.Receipt{
		Email:     st.Email,
		Name:      st.FullName,
		PaymentID: paymentRef,
		Amount:    formatAmount(s.amount, s.currency),
		Date:      when.Format("2 January 2006"),
	}
	body, err := json.Marshal(job)
	if err != nil {
		log.Printf("receipt encode failed for payment %s: %v", paymentRef, err)
		return
	}
	if err := s.jobs.Publish(ctx, queue.Message{Type: queue.TypeReceipt, Body: body}); err != nil {
		// Best-effort only; the entitlement stands.
		log.Printf("receipt enqueue failed for payment %s: %v", paymentRef, err)
	}
}

func formatAmount(subunits int64, currency string) string {
	whole := subunits / 100
	frac := subunits % 100
	if currency == "INR" {
		return fmt.Sprintf("₹%d.%02d", whole, frac)
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, currency)
}
