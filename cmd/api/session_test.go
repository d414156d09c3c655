package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/auth"
	"attendtrack/internal/config"
)

func newRefreshRouter(t *testing.T, store studentStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.App{
		JWTIssuer:     "attendtrack",
		JWTSigningKey: "test-key",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
	a := &api{cfg: cfg, studentRepo: store}
	r := gin.New()
	r.POST("/v1/auth/refresh", a.refresh)
	return r
}

func postRefresh(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", strings.NewReader(`{"refresh_token":"`+token+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRefreshRotatesToken(t *testing.T) {
	// A longer TTL than the router's config so the reissued token can
	// never collide with this one byte for byte.
	pair, err := auth.Issue("stu-1", "attendtrack", "test-key", time.Minute, 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStudentStore{}
	r := newRefreshRouter(t, store)

	w := postRefresh(r, pair.RefreshToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		t.Error("expected a fresh token pair in the response")
	}
	if body.RefreshToken == pair.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	if len(store.revoked) != 1 || store.revoked[0] != pair.RefreshToken {
		t.Errorf("revoked = %v, want the presented token", store.revoked)
	}
	if len(store.saved) != 1 || store.saved[0] != body.RefreshToken {
		t.Errorf("saved = %v, want the new refresh token", store.saved)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	pair, err := auth.Issue("stu-1", "attendtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStudentStore{}
	r := newRefreshRouter(t, store)

	w := postRefresh(r, pair.AccessToken)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for an access token in the exchange", w.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "session_expired" {
		t.Errorf("code = %q, want session_expired", body.Code)
	}
	if len(store.revoked) != 0 || len(store.saved) != 0 {
		t.Error("token store touched for a rejected exchange")
	}
}

func TestRefreshSurvivesTokenStoreError(t *testing.T) {
	pair, err := auth.Issue("stu-1", "attendtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStudentStore{saveErr: errors.New("connection reset")}
	r := newRefreshRouter(t, store)

	// Persistence of the rotated token is best effort; the client still
	// gets its pair and the failure is logged server-side.
	w := postRefresh(r, pair.RefreshToken)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite the store error", w.Code)
	}
}
