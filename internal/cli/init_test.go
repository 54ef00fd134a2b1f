package cli

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"budget/internal/log"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	shutdowns int
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	s.shutdowns++
	close(s.stop)
	return nil
}

func TestServeUntilDone_ShutsDownOnCancel(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ServeUntilDone(ctx, srv, time.Second, log.New(log.DefaultConfig())) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ServeUntilDone() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeUntilDone did not return")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestServeUntilDone_ReturnsListenError(t *testing.T) {
	boom := errors.New("address in use")
	srv := &fakeServer{listenErr: boom}

	err := ServeUntilDone(context.Background(), srv, time.Second, log.New(log.DefaultConfig()))
	if !errors.Is(err, boom) {
		t.Fatalf("ServeUntilDone() = %v, want %v", err, boom)
	}
	if srv.shutdowns != 0 {
		t.Errorf("shutdowns = %d, want 0", srv.shutdowns)
	}
}
