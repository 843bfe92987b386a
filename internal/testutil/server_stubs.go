package testutil

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/poller"
)

// ErrListen is what a failing StubHTTPServer returns from ListenAndServe.
var ErrListen = errors.New("listen failure")

// StubPoller records lifecycle calls made by the server and admin handlers.
type StubPoller struct {
	StartCalls   int
	StopCalls    int
	RefreshCalls int
	Err          error
	RefreshErr   error
	StatusVal    poller.Status
}

// ReadyPoller returns a stub whose status reports a fresh successful cycle.
func ReadyPoller(at time.Time) *StubPoller {
	return &StubPoller{StatusVal: poller.Status{LastAttempt: at, LastSuccess: at}}
}

func (p *StubPoller) Start(context.Context) { p.StartCalls++ }

func (p *StubPoller) Stop(context.Context) error {
	p.StopCalls++
	return p.Err
}

func (p *StubPoller) Refresh(context.Context) error {
	p.RefreshCalls++
	return p.RefreshErr
}

func (p *StubPoller) Status() poller.Status { return p.StatusVal }

// StubHTTPServer stands in for the listener. ListenErr is returned as is, so
// http.ErrServerClosed simulates a clean close and ErrListen a bind failure.
type StubHTTPServer struct {
	AddrVal       string
	HandlerVal    http.Handler
	ListenCalls   int
	ShutdownCalls int
	ListenErr     error
	ShutdownErr   error
}

// FailingHTTPServer returns a stub whose ListenAndServe fails immediately.
func FailingHTTPServer() *StubHTTPServer {
	return &StubHTTPServer{AddrVal: ":0", ListenErr: ErrListen}
}

// ClosedHTTPServer returns a stub that behaves like a server closed by Shutdown.
func ClosedHTTPServer() *StubHTTPServer {
	return &StubHTTPServer{AddrVal: ":0", ListenErr: http.ErrServerClosed}
}

func (s *StubHTTPServer) ListenAndServe() error {
	s.ListenCalls++
	return s.ListenErr
}

func (s *StubHTTPServer) Shutdown(context.Context) error {
	s.ShutdownCalls++
	return s.ShutdownErr
}

func (s *StubHTTPServer) Addr() string { return s.AddrVal }

func (s *StubHTTPServer) Handler() http.Handler {
	if s.HandlerVal == nil {
		return http.NotFoundHandler()
	}
	return s.HandlerVal
}

// BlockingHTTPServer holds Shutdown until Unblock is closed or ctx ends.
type BlockingHTTPServer struct {
	StubHTTPServer
	Unblock chan struct{}
}

func (b *BlockingHTTPServer) Shutdown(ctx context.Context) error {
	b.ShutdownCalls++
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.Unblock:
		return nil
	}
}
