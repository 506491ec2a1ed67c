package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/mailbox"
)

// ErrSessionClosed is returned for requests still pending when the worker's
// response stream ends.
var ErrSessionClosed = errors.New("worker session closed")

type waiter struct {
	fn       protocol.Function
	partials *mailbox.Mailbox[protocol.Response]
	done     chan protocol.Response
}

// Session is the caller side of a worker. It assigns request ids, and each
// find or search supersedes the previous one: the older request is aborted
// and its outcome discarded.
type Session struct {
	in chan<- protocol.Request

	mu      sync.Mutex
	next    int64
	latest  int64
	waiters map[int64]*waiter
	closed  bool
}

// NewSession correlates requests sent on in with responses read from out.
// It reads out until it is closed.
func NewSession(in chan<- protocol.Request, out <-chan protocol.Response) *Session {
	s := &Session{in: in, waiters: make(map[int64]*waiter)}
	go s.dispatch(out)
	return s
}

// FindCard looks up a card by exact name. The value is nil when no card has it.
func (s *Session) FindCard(ctx context.Context, name string) (any, error) {
	resp, err := s.Do(ctx, protocol.Request{Function: protocol.FindCard, Name: name}, nil)
	return resp.Value, err
}

// SearchCards runs a search.
func (s *Session) SearchCards(ctx context.Context, req protocol.Request) (any, error) {
	req.Function = protocol.SearchCards
	resp, err := s.Do(ctx, req, nil)
	return resp.Value, err
}

// LoadDB runs a load cycle, reporting progress to onPartial.
func (s *Session) LoadDB(ctx context.Context, onPartial func(protocol.Response)) (any, error) {
	resp, err := s.Do(ctx, protocol.Request{Function: protocol.LoadDB}, onPartial)
	return resp.Value, err
}

// Do sends req with a fresh id and waits for its terminal response. Partial
// responses are passed to onPartial while a load is pending. The error wraps
// domain.ErrAborted when the request was aborted or superseded, and carries
// the worker's message for error responses.
func (s *Session) Do(ctx context.Context, req protocol.Request, onPartial func(protocol.Response)) (protocol.Response, error) {
	w := &waiter{
		fn:       req.Function,
		partials: mailbox.New[protocol.Response](),
		done:     make(chan protocol.Response, 1),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return protocol.Response{}, ErrSessionClosed
	}
	s.next++
	req.ID = s.next
	var superseded int64
	if supersedes(req.Function) {
		if _, pending := s.waiters[s.latest]; pending {
			superseded = s.latest
		}
		s.latest = req.ID
	}
	s.waiters[req.ID] = w
	s.mu.Unlock()

	if superseded != 0 {
		if err := s.send(ctx, protocol.Request{Function: protocol.Abort, ID: superseded}); err != nil {
			s.forget(req.ID)
			return protocol.Response{}, err
		}
	}
	if err := s.send(ctx, req); err != nil {
		s.forget(req.ID)
		return protocol.Response{}, err
	}

	deliver := func() {
		for _, p := range w.partials.Take() {
			if onPartial != nil {
				onPartial(p)
			}
		}
	}
	for {
		select {
		case <-w.partials.Ready():
			deliver()
		case resp := <-w.done:
			// Partials are pushed before the terminal response is handed over.
			deliver()
			return s.outcome(req, resp)
		case <-ctx.Done():
			s.forget(req.ID)
			select {
			case s.in <- protocol.Request{Function: protocol.Abort, ID: req.ID}:
			default:
			}
			return protocol.Response{}, fmt.Errorf("%w: %w", domain.ErrAborted, ctx.Err())
		}
	}
}

func (s *Session) outcome(req protocol.Request, resp protocol.Response) (protocol.Response, error) {
	if supersedes(req.Function) {
		s.mu.Lock()
		current := s.latest == req.ID
		s.mu.Unlock()
		if !current {
			return protocol.Response{}, fmt.Errorf("%w: superseded", domain.ErrAborted)
		}
	}
	switch resp.Type {
	case protocol.TypeAbort:
		return resp, domain.ErrAborted
	case protocol.TypeError:
		if resp.Error == ErrSessionClosed.Error() {
			return resp, ErrSessionClosed
		}
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func (s *Session) send(ctx context.Context, req protocol.Request) error {
	select {
	case s.in <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrAborted, ctx.Err())
	}
}

func (s *Session) forget(id int64) {
	s.mu.Lock()
	delete(s.waiters, id)
	s.mu.Unlock()
}

func (s *Session) dispatch(out <-chan protocol.Response) {
	for resp := range out {
		s.mu.Lock()
		if resp.Type == protocol.TypePartial {
			for _, w := range s.waiters {
				if w.fn == protocol.LoadDB {
					w.partials.Push(resp)
				}
			}
			s.mu.Unlock()
			continue
		}
		w, ok := s.waiters[resp.ID]
		delete(s.waiters, resp.ID)
		s.mu.Unlock()
		if ok {
			w.done <- resp
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, w := range s.waiters {
		w.done <- protocol.Failed(id, ErrSessionClosed)
		delete(s.waiters, id)
	}
}

func supersedes(fn protocol.Function) bool {
	return fn == protocol.FindCard || fn == protocol.SearchCards
}
