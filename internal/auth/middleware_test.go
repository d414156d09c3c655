package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newSessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireSession("test-key", "attendtrack"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"student_id": StudentID(c)})
	})
	return r
}

func getWithToken(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireSessionAcceptsAccessToken(t *testing.T) {
	pair, err := Issue("stu-1", "attendtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	w := getWithToken(newSessionRouter(), pair.AccessToken)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireSessionRejectsRefreshToken(t *testing.T) {
	pair, err := Issue("stu-1", "attendtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	// The refresh token is signed with the same key but is only good for
	// the token exchange, never as a bearer session token.
	w := getWithToken(newSessionRouter(), pair.RefreshToken)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for a refresh token used as bearer", w.Code)
	}
}
