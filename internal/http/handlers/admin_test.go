package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/preston-bernstein/fightpicks/internal/poller"
	"github.com/preston-bernstein/fightpicks/internal/testutil"
)

type stubSweeper struct {
	evicted int
	open    int
	calls   int
}

func (s *stubSweeper) Sweep() int {
	s.calls++
	return s.evicted
}

func (s *stubSweeper) Len() int { return s.open }

func adminRequest(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAdminRequiresToken(t *testing.T) {
	h := NewAdminHandler(&testutil.StubPoller{}, &stubSweeper{}, "secret", nil)
	guarded := h.RequireToken(http.HandlerFunc(h.RefreshCatalog))

	for _, token := range []string{"", "wrong", "secret-but-longer"} {
		rr := testutil.ServeRequest(guarded, adminRequest("/admin/catalog/refresh", token))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	}

	empty := NewAdminHandler(nil, nil, "", nil)
	rr := testutil.ServeRequest(empty.RequireToken(http.HandlerFunc(empty.RefreshCatalog)), adminRequest("/admin/catalog/refresh", ""))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAdminRefreshCatalog(t *testing.T) {
	p := &testutil.StubPoller{StatusVal: poller.Status{Events: 4}}
	h := NewAdminHandler(p, nil, "secret", nil)

	rr := testutil.ServeRequest(h.RequireToken(http.HandlerFunc(h.RefreshCatalog)), adminRequest("/admin/catalog/refresh", "secret"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var body map[string]any
	testutil.DecodeJSON(t, rr, &body)
	if body["status"] != "ok" || body["events"] != float64(4) {
		t.Fatalf("unexpected body %+v", body)
	}
	if p.RefreshCalls != 1 {
		t.Fatalf("expected one refresh, got %d", p.RefreshCalls)
	}
}

func TestAdminRefreshCatalogFailure(t *testing.T) {
	p := &testutil.StubPoller{RefreshErr: errors.New("upstream down")}
	h := NewAdminHandler(p, nil, "secret", nil)

	rr := testutil.ServeRequest(http.HandlerFunc(h.RefreshCatalog), adminRequest("/admin/catalog/refresh", "secret"))
	testutil.AssertStatus(t, rr, http.StatusBadGateway)
}

func TestAdminRefreshWithoutRefresher(t *testing.T) {
	h := NewAdminHandler(nil, nil, "secret", nil)
	rr := testutil.ServeRequest(http.HandlerFunc(h.RefreshCatalog), adminRequest("/admin/catalog/refresh", "secret"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

	rr = testutil.ServeRequest(http.HandlerFunc(h.SweepPages), adminRequest("/admin/pages/sweep", "secret"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}

func TestAdminSweepPages(t *testing.T) {
	s := &stubSweeper{evicted: 2, open: 1}
	h := NewAdminHandler(nil, s, "secret", nil)

	rr := testutil.ServeRequest(h.RequireToken(http.HandlerFunc(h.SweepPages)), adminRequest("/admin/pages/sweep", "secret"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var body map[string]any
	testutil.DecodeJSON(t, rr, &body)
	if body["evicted"] != float64(2) || body["open"] != float64(1) {
		t.Fatalf("unexpected body %+v", body)
	}
	if s.calls != 1 {
		t.Fatalf("expected one sweep, got %d", s.calls)
	}
}

func TestAdminTokenFromEnv(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "abc")
	if got := AdminTokenFromEnv(); got != "abc" {
		t.Fatalf("expected token from env, got %q", got)
	}
}

var _ CatalogRefresher = (*testutil.StubPoller)(nil)
