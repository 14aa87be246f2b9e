package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lmshub/toolhub/internal/app/features/logout"
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"go.uber.org/zap"
)

func initSessions(t *testing.T) {
	t.Helper()
	if err := auth.InitSessionStore("test-session-key-for-testing-only", "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	initSessions(t)
	handler := logout.NewHandler(zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	rec := httptest.NewRecorder()

	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNoContent)
	}

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge: got %d, want -1 (delete)", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestServeLogout_UnauthenticatedIsNoOp(t *testing.T) {
	initSessions(t)
	handler := logout.NewHandler(zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	rec := httptest.NewRecorder()

	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNoContent)
	}
}
