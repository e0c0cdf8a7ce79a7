package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/hikcam/generichttp"
	"github.com/nasa-jpl/hikcam/server/middleware/locker"
)

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func TestLockRejectsProtectedRoutes(t *testing.T) {
	rt := table{
		{Method: http.MethodPost, Path: "/start"}: func(w http.ResponseWriter, r *http.Request) {},
	}
	l := locker.New()
	locker.Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)

	do := func(method, path, body string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w.Code
	}
	if code := do(http.MethodPost, "/start", ""); code != http.StatusOK {
		t.Errorf("expected 200 while unlocked, got %d", code)
	}
	if code := do(http.MethodPost, "/lock", `{"bool":true}`); code != http.StatusOK {
		t.Fatalf("expected 200 locking, got %d", code)
	}
	if !l.Locked() {
		t.Fatal("expected the locker to be locked")
	}
	if code := do(http.MethodPost, "/start", ""); code != http.StatusLocked {
		t.Errorf("expected 423 while locked, got %d", code)
	}
	if code := do(http.MethodGet, "/endpoints", ""); code != http.StatusOK {
		t.Errorf("expected the endpoint list to stay reachable, got %d", code)
	}
	if code := do(http.MethodPost, "/lock", `{"bool":false}`); code != http.StatusOK || l.Locked() {
		t.Errorf("expected unlock through the lock route, got %d", code)
	}
}

func TestLockBadBody(t *testing.T) {
	w := httptest.NewRecorder()
	locker.New().HTTPSet(w, httptest.NewRequest(http.MethodPost, "/lock", strings.NewReader("yes")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 got %d", w.Code)
	}
}
