// Package supervisor runs named goroutines under one cancellable scope.
//
// Serve mode uses it for the ingest server, the status tap, the config
// watcher, and the maintenance scheduler. A failing component logs its exit
// and cancels the scope so shutdown stays coordinated.
package supervisor

import (
	"context"
	"errors"
	"sync"

	"hooknotify/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    logx.Logger

	mu       sync.Mutex
	firstErr error
}

func New(ctx context.Context, log logx.Logger) *Supervisor {
	if ctx == nil {
		ctx = context.Background()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	sctx, cancel := context.WithCancel(ctx)
	return &Supervisor{ctx: sctx, cancel: cancel, log: log}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Go starts fn under the supervisor's context. A non-nil, non-cancellation
// error is remembered (first wins) and cancels the whole scope.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := fn(s.ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			s.log.Debug("component stopped", logx.String("comp", name))
			return
		}
		s.log.Error("component failed", logx.String("comp", name), logx.Err(err))
		s.mu.Lock()
		if s.firstErr == nil {
			s.firstErr = err
		}
		s.mu.Unlock()
		s.cancel()
	}()
}

// Cancel stops the scope without waiting.
func (s *Supervisor) Cancel() { s.cancel() }

// Wait blocks until every component exited or ctx runs out, returning the
// first component failure if any.
func (s *Supervisor) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}
