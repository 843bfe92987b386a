package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/config"
	domainevents "github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/testutil"
)

func fixtureConfig() config.Config {
	return config.Config{
		Port:    "0",
		Backend: config.BackendConfig{Driver: driverMemory},
		Catalog: config.CatalogConfig{Interval: 5 * time.Millisecond},
	}
}

func waitForCatalog(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		// Status is recorded after the catalog write.
		if srv.poller.Status().IsReady() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for catalog refresh")
}

func TestServerServesHealthAndEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, _ := testutil.NewRecorderWithShutdown()
	srv := newServerWithBackend(fixtureConfig(), nil, testutil.NewFixtureStore(), rec)
	srv.poller.Start(ctx)
	defer func() { _ = srv.poller.Stop(context.Background()) }()
	waitForCatalog(t, srv)

	router := srv.Handler()

	healthRec := testutil.Serve(router, http.MethodGet, "/health", nil)
	testutil.AssertStatus(t, healthRec, http.StatusOK)

	readyRec := testutil.Serve(router, http.MethodGet, "/ready", nil)
	testutil.AssertStatus(t, readyRec, http.StatusOK)

	eventsRec := testutil.Serve(router, http.MethodGet, "/events", nil)
	testutil.AssertStatus(t, eventsRec, http.StatusOK)

	var body struct {
		Events []domainevents.Event `json:"events"`
	}
	testutil.DecodeJSON(t, eventsRec, &body)
	if len(body.Events) != 2 {
		t.Fatalf("expected 2 fixture events, got %d", len(body.Events))
	}
	if body.Events[0].ID != testutil.FixtureEventID {
		t.Fatalf("unexpected first event %s", body.Events[0].ID)
	}
}

func TestServerRequiresSignInForPages(t *testing.T) {
	srv := newServerWithBackend(fixtureConfig(), nil, testutil.NewFixtureStore(), nil)
	rr := testutil.Serve(srv.Handler(), http.MethodPost, "/pages", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestServerOpensPageForSignedInUser(t *testing.T) {
	store := testutil.NewFixtureStore()
	token, _ := testutil.SignIn(store, "fan@example.com")
	srv := newServerWithBackend(fixtureConfig(), nil, store, nil)

	req := testutil.AuthedRequest(t, http.MethodPost, "/pages", token, map[string]string{"event_id": testutil.FixtureEventID})
	rr := testutil.ServeRequest(srv.Handler(), req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	if srv.pages.Len() != 1 {
		t.Fatalf("expected one open page, got %d", srv.pages.Len())
	}
}

func TestNewConstructsServer(t *testing.T) {
	cfg := config.Config{
		Port:    "0",
		Backend: config.BackendConfig{Driver: driverMemory},
		Metrics: config.MetricsConfig{Enabled: false},
	}
	srv, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv == nil || srv.Handler() == nil {
		t.Fatalf("expected server with handler")
	}
	if srv.closeBackend == nil {
		t.Fatalf("expected backend close func")
	}
}

func TestNewReturnsBackendError(t *testing.T) {
	cfg := config.Config{
		Port:    "0",
		Backend: config.BackendConfig{Driver: driverPostgrest},
	}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for postgrest without a base url")
	}
}

func TestAdminRoutesMountedWithToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	srv := newServerWithBackend(fixtureConfig(), nil, testutil.NewFixtureStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/refresh", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr := testutil.ServeRequest(srv.Handler(), req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	if _, ok := srv.catalog.Events(); !ok {
		t.Fatalf("expected refresh to populate the catalog")
	}
}

func TestAdminRoutesAbsentWithoutToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")
	srv := newServerWithBackend(fixtureConfig(), nil, testutil.NewFixtureStore(), nil)
	rr := testutil.Serve(srv.Handler(), http.MethodPost, "/admin/catalog/refresh", nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestGracefulShutdownCallsStopAndShutdown(t *testing.T) {
	p := &testutil.StubPoller{}
	httpSrv := &testutil.StubHTTPServer{}

	srv := newServerWithDeps(config.Config{}, nil, httpSrv, p)
	srv.gracefulShutdown()

	if p.StopCalls != 1 {
		t.Fatalf("expected poller Stop to be called once, got %d", p.StopCalls)
	}
	if httpSrv.ShutdownCalls != 1 {
		t.Fatalf("expected server Shutdown to be called once, got %d", httpSrv.ShutdownCalls)
	}
}

func TestGracefulShutdownClosesPagesAndBackend(t *testing.T) {
	store := testutil.NewFixtureStore()
	_, user := testutil.SignIn(store, "fan@example.com")
	srv := newServerWithBackend(fixtureConfig(), nil, store, nil)
	srv.httpServer = &testutil.StubHTTPServer{}

	if _, err := srv.pages.Open(context.Background(), auth.User{ID: user.ID}, testutil.FixtureEventID); err != nil {
		t.Fatalf("open page: %v", err)
	}
	closed := false
	srv.closeBackend = func() { closed = true }

	srv.gracefulShutdown()

	if srv.pages.Len() != 0 {
		t.Fatalf("expected pages closed on shutdown, got %d", srv.pages.Len())
	}
	if !closed {
		t.Fatalf("expected backend closed on shutdown")
	}
}

func TestGracefulShutdownTimesOutLongRunningShutdown(t *testing.T) {
	p := &testutil.StubPoller{}
	blocking := &testutil.BlockingHTTPServer{
		StubHTTPServer: testutil.StubHTTPServer{AddrVal: ":0", HandlerVal: http.NewServeMux()},
		Unblock:        make(chan struct{}),
	}

	original := shutdownTimeout
	shutdownTimeout = 5 * time.Millisecond
	defer func() { shutdownTimeout = original }()

	srv := newServerWithDeps(config.Config{}, nil, blocking, p)

	start := time.Now()
	srv.gracefulShutdown()
	elapsed := time.Since(start)

	if blocking.ShutdownCalls != 1 {
		t.Fatalf("expected server Shutdown to be called once, got %d", blocking.ShutdownCalls)
	}
	if p.StopCalls != 1 {
		t.Fatalf("expected poller Stop to be called once, got %d", p.StopCalls)
	}
	if elapsed > 200*time.Millisecond {
		t.Fatalf("shutdown took too long: %s", elapsed)
	}
}

func TestGracefulShutdownContinuesWhenPollerStopErrors(t *testing.T) {
	p := &testutil.StubPoller{Err: errors.New("stop failure")}
	httpSrv := &testutil.StubHTTPServer{}

	srv := newServerWithDeps(config.Config{}, nil, httpSrv, p)
	srv.gracefulShutdown()

	if p.StopCalls != 1 {
		t.Fatalf("expected poller Stop to be called once, got %d", p.StopCalls)
	}
	if httpSrv.ShutdownCalls != 1 {
		t.Fatalf("expected server Shutdown to be called once, got %d", httpSrv.ShutdownCalls)
	}
}

func TestServerStartHandlesListenErrorAndStops(t *testing.T) {
	srv := newServerWithDeps(config.Config{}, nil, testutil.FailingHTTPServer(), &testutil.StubPoller{})

	var wg sync.WaitGroup
	wg.Add(1)
	stopCalled := make(chan struct{})
	stop := func() {
		close(stopCalled)
		wg.Done()
	}

	srv.startServer(stop)

	select {
	case <-stopCalled:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected stop to be called on listen failure")
	}

	wg.Wait()
}

func TestRunCancelsAndStopsComponents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	plr := &testutil.StubPoller{}
	httpSrv := testutil.ClosedHTTPServer()

	srv := newServerWithDeps(config.Config{}, nil, httpSrv, plr)

	done := make(chan struct{})
	go func() {
		srv.Run(ctx, cancel)
		close(done)
	}()

	// Let Start be invoked.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("run did not return after cancel")
	}

	if plr.StartCalls != 1 {
		t.Fatalf("expected poller Start called once, got %d", plr.StartCalls)
	}
	if plr.StopCalls != 1 {
		t.Fatalf("expected poller Stop called once, got %d", plr.StopCalls)
	}
	if httpSrv.ShutdownCalls != 1 {
		t.Fatalf("expected server Shutdown called once, got %d", httpSrv.ShutdownCalls)
	}
}
