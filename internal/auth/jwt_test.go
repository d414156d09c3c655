package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("stu-1", "attendtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := Parse(pair.AccessToken, "test-key", "attendtrack")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "stu-1" {
		t.Errorf("subject = %q, want stu-1", claims.Subject)
	}
	if claims.Role != "student" {
		t.Errorf("role = %q, want student", claims.Role)
	}
	if claims.Kind != TokenAccess {
		t.Errorf("kind = %q, want %q", claims.Kind, TokenAccess)
	}

	refresh, err := Parse(pair.RefreshToken, "test-key", "attendtrack")
	if err != nil {
		t.Fatalf("refresh token parse error = %v", err)
	}
	if refresh.Kind != TokenRefresh {
		t.Errorf("refresh kind = %q, want %q", refresh.Kind, TokenRefresh)
	}
}

func TestParseRejects(t *testing.T) {
	pair, err := Issue("stu-1", "attendtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Parse(pair.AccessToken, "wrong-key", "attendtrack"); err == nil {
		t.Error("expected error for wrong signing key")
	}
	if _, err := Parse(pair.AccessToken, "test-key", "someone-else"); err == nil {
		t.Error("expected error for issuer mismatch")
	}
	if _, err := Parse("not-a-token", "test-key", "attendtrack"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("stu-1", "attendtrack", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "attendtrack"); err == nil {
		t.Error("expected error for expired token")
	}
}
