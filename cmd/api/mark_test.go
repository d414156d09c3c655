package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/config"
)

// fakeAttendance records Mark calls and returns a scripted error.
type fakeAttendance struct {
	markErr    error
	markCalls  []string
	lastStatus attendance.Status
}

func (f *fakeAttendance) CreateSubject(context.Context, string, attendance.SubjectInput) (attendance.Subject, error) {
	return attendance.Subject{}, nil
}
func (f *fakeAttendance) UpdateSubject(context.Context, string, string, attendance.SubjectInput) error {
	return nil
}
func (f *fakeAttendance) DeleteSubject(context.Context, string, string) error { return nil }
func (f *fakeAttendance) ListSubjects(context.Context, string) ([]attendance.SubjectView, error) {
	return nil, nil
}
func (f *fakeAttendance) Dashboard(context.Context, string, time.Time) (attendance.Dashboard, error) {
	return attendance.Dashboard{}, nil
}
func (f *fakeAttendance) MonthRecords(context.Context, string, int, time.Month) ([]attendance.Record, error) {
	return nil, nil
}

func (f *fakeAttendance) Mark(_ context.Context, _ string, subjectID string, status attendance.Status, _ time.Time) error {
	f.markCalls = append(f.markCalls, subjectID)
	f.lastStatus = status
	return f.markErr
}

func newMarkRouter(t *testing.T, att attendanceService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.App{JWTIssuer: "attendtrack", JWTSigningKey: "test-key"}
	a := &api{cfg: cfg, att: att}
	r := gin.New()
	r.POST("/v1/subjects/:id/mark", auth.RequireSession(cfg.JWTSigningKey, cfg.JWTIssuer), a.markAttendance)
	return r
}

func postMark(t *testing.T, r *gin.Engine, status string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/subjects/sub-1/mark", strings.NewReader(`{"status":"`+status+`"}`))
	req.Header.Set("Authorization", bearerFor(t, "stu-1"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMarkAttendanceHandler(t *testing.T) {
	att := &fakeAttendance{}
	r := newMarkRouter(t, att)

	w := postMark(t, r, "present")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(att.markCalls) != 1 || att.markCalls[0] != "sub-1" {
		t.Errorf("mark calls = %v, want one for sub-1", att.markCalls)
	}
	if att.lastStatus != attendance.StatusPresent {
		t.Errorf("status passed through = %q, want present", att.lastStatus)
	}
}

func TestMarkAttendanceDuplicateConflict(t *testing.T) {
	att := &fakeAttendance{markErr: attendance.ErrAlreadyMarked}
	r := newMarkRouter(t, att)

	w := postMark(t, r, "present")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "already_marked" {
		t.Errorf("code = %q, want already_marked", body.Code)
	}
}

func TestMarkAttendanceUnknownSubject(t *testing.T) {
	att := &fakeAttendance{markErr: attendance.ErrSubjectNotFound}
	r := newMarkRouter(t, att)

	if w := postMark(t, r, "present"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
