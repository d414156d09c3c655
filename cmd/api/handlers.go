package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/billing"
	"attendtrack/internal/config"
	"attendtrack/internal/student"
)

// studentStore is the slice of the student repository the handlers touch
// directly; satisfied by *student.Repository.
type studentStore interface {
	GetByID(ctx context.Context, id string) (*student.Student, error)
	SaveRefreshToken(ctx context.Context, studentID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) error
	RefreshTokenValid(ctx context.Context, token string) (bool, error)
}

// attendanceService is the attendance surface the handlers call; satisfied
// by *attendance.Service.
type attendanceService interface {
	CreateSubject(ctx context.Context, studentID string, in attendance.SubjectInput) (attendance.Subject, error)
	UpdateSubject(ctx context.Context, studentID, subjectID string, in attendance.SubjectInput) error
	DeleteSubject(ctx context.Context, studentID, subjectID string) error
	ListSubjects(ctx context.Context, studentID string) ([]attendance.SubjectView, error)
	Mark(ctx context.Context, studentID, subjectID string, status attendance.Status, day time.Time) error
	Dashboard(ctx context.Context, studentID string, now time.Time) (attendance.Dashboard, error)
	MonthRecords(ctx context.Context, studentID string, year int, month time.Month) ([]attendance.Record, error)
}

type api struct {
	cfg         config.App
	studentRepo studentStore
	students    *student.Service
	att         attendanceService
	billing     *billing.Service
}

type credentials struct {
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *api) signup(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := a.students.SignUp(c.Request.Context(), req.FullName, req.Email, req.Password)
	if errors.Is(err, student.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"code": "email_taken", "error": "Account already exists. Please sign in instead."})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.issueSession(c, st, http.StatusCreated)
}

func (a *api) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := a.students.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, student.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign in failed"})
		return
	}
	a.issueSession(c, st, http.StatusOK)
}

func (a *api) issueSession(c *gin.Context, st student.Student, status int) {
	tokens, err := auth.Issue(st.ID, a.cfg.JWTIssuer, a.cfg.JWTSigningKey, a.cfg.AccessTTL, a.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := a.studentRepo.SaveRefreshToken(c.Request.Context(), st.ID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		log.Printf("refresh token save failed: %v", err)
	}

	c.JSON(status, gin.H{
		"student":       st,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (a *api) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.Parse(req.RefreshToken, a.cfg.JWTSigningKey, a.cfg.JWTIssuer)
	if err != nil || claims.Kind != auth.TokenRefresh {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "session_expired", "error": "invalid or expired session"})
		return
	}
	valid, err := a.studentRepo.RefreshTokenValid(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "session_expired", "error": "invalid or expired session"})
		return
	}

	tokens, err := auth.Issue(claims.Subject, a.cfg.JWTIssuer, a.cfg.JWTSigningKey, a.cfg.AccessTTL, a.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	// Rotation: the presented token dies with this exchange.
	if err := a.studentRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		log.Printf("refresh token revoke failed: %v", err)
	}
	if err := a.studentRepo.SaveRefreshToken(c.Request.Context(), claims.Subject, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		log.Printf("refresh token save failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (a *api) logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.studentRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		log.Printf("refresh token revoke failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

// requireEntitlement is the payment wall. It resolves the session student and
// rejects unentitled requests with 402 before any dashboard handler runs, so
// no protected data query is ever issued for an unpaid account.
func (a *api) requireEntitlement() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := a.studentRepo.GetByID(c.Request.Context(), auth.StudentID(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "entitlement check failed"})
			return
		}
		if st == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "session_expired", "error": "invalid or expired session"})
			return
		}
		if !student.Entitled(*st) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"code": "payment_required", "error": "complete the one-time payment to unlock the dashboard"})
			return
		}
		c.Next()
	}
}

func (a *api) profile(c *gin.Context) {
	st, err := a.students.Profile(c.Request.Context(), auth.StudentID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": st})
}

func (a *api) updateProfile(c *gin.Context) {
	var req struct {
		FullName      string `json:"full_name" binding:"required"`
		OverallTarget int    `json:"overall_target_attendance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.students.UpdateProfile(c.Request.Context(), auth.StudentID(c), req.FullName, req.OverallTarget); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (a *api) resetData(c *gin.Context) {
	if err := a.students.Reset(c.Request.Context(), auth.StudentID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "data reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (a *api) createOrder(c *gin.Context) {
	studentID := auth.StudentID(c)
	st, err := a.studentRepo.GetByID(c.Request.Context(), studentID)
	if err != nil || st == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order creation failed"})
		return
	}
	if student.Entitled(*st) {
		c.JSON(http.StatusConflict, gin.H{"code": "already_active", "error": "subscription is already active"})
		return
	}

	order, err := a.billing.CreateOrder(c.Request.Context(), studentID)
	if err != nil {
		log.Printf("order creation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor unavailable, please retry"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (a *api) finalizePayment(c *gin.Context) {
	var req struct {
		PaymentID string `json:"payment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expiry, err := a.billing.Finalize(c.Request.Context(), auth.StudentID(c), req.PaymentID)
	var recErr *billing.ReconciliationError
	if errors.As(err, &recErr) {
		log.Printf("RECONCILIATION: %v", recErr)
		reconciliationFailures.Inc()
		c.JSON(http.StatusBadGateway, gin.H{
			"code":       "payment_reconciliation",
			"error":      "Payment succeeded but activation failed. Please contact support with your payment id; retrying will not charge you again.",
			"payment_id": recErr.PaymentRef,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paymentsFinalized.Inc()
	c.JSON(http.StatusOK, gin.H{"subscription_active": true, "subscription_expiry": expiry})
}

func (a *api) dashboard(c *gin.Context) {
	dash, err := a.att.Dashboard(c.Request.Context(), auth.StudentID(c), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dashboard fetch failed"})
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (a *api) listSubjects(c *gin.Context) {
	subjects, err := a.att.ListSubjects(c.Request.Context(), auth.StudentID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subject fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (a *api) createSubject(c *gin.Context) {
	var req attendance.SubjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := a.att.CreateSubject(c.Request.Context(), auth.StudentID(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subject": sub})
}

func (a *api) updateSubject(c *gin.Context) {
	var req attendance.SubjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := a.att.UpdateSubject(c.Request.Context(), auth.StudentID(c), c.Param("id"), req)
	if errors.Is(err, attendance.ErrSubjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (a *api) deleteSubject(c *gin.Context) {
	err := a.att.DeleteSubject(c.Request.Context(), auth.StudentID(c), c.Param("id"))
	if errors.Is(err, attendance.ErrSubjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subject delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (a *api) markAttendance(c *gin.Context) {
	var req struct {
		Status attendance.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := a.att.Mark(c.Request.Context(), auth.StudentID(c), c.Param("id"), req.Status, time.Now().UTC())
	switch {
	case errors.Is(err, attendance.ErrAlreadyMarked):
		duplicateMarkings.Inc()
		c.JSON(http.StatusConflict, gin.H{"code": "already_marked", "error": "You have already marked attendance for this subject today."})
		return
	case errors.Is(err, attendance.ErrSubjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	markingsTotal.WithLabelValues(string(req.Status)).Inc()
	c.JSON(http.StatusOK, gin.H{"status": "marked"})
}

func (a *api) calendar(c *gin.Context) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if v := c.Query("year"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			year = parsed
		}
	}
	if v := c.Query("month"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			month = parsed
		}
	}

	records, err := a.att.MonthRecords(c.Request.Context(), auth.StudentID(c), year, time.Month(month))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
