package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
)

type callResult struct {
	value any
	err   error
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

func TestSession_SearchSupersedesPrevious(t *testing.T) {
	in := make(chan protocol.Request)
	out := make(chan protocol.Response)
	s := NewSession(in, out)

	first := make(chan callResult, 1)
	go func() {
		v, err := s.SearchCards(context.Background(), protocol.Request{Query: "goblin"})
		first <- callResult{v, err}
	}()
	req1 := recv(t, in)
	assert.Equal(t, protocol.SearchCards, req1.Function)

	second := make(chan callResult, 1)
	go func() {
		v, err := s.SearchCards(context.Background(), protocol.Request{Query: "goblin king"})
		second <- callResult{v, err}
	}()
	assert.Equal(t, protocol.Request{Function: protocol.Abort, ID: req1.ID}, recv(t, in))
	req2 := recv(t, in)
	assert.Equal(t, "goblin king", req2.Query)

	// The worker finished the first search before seeing the abort; the
	// outcome is still discarded.
	out <- protocol.Result(req1.ID, "stale")
	out <- protocol.Result(req2.ID, "fresh")

	r1 := recv(t, first)
	assert.ErrorIs(t, r1.err, domain.ErrAborted)
	r2 := recv(t, second)
	require.NoError(t, r2.err)
	assert.Equal(t, "fresh", r2.value)
	close(out)
}

func TestSession_LoadReportsPartials(t *testing.T) {
	in := make(chan protocol.Request)
	out := make(chan protocol.Response)
	s := NewSession(in, out)

	var partials []protocol.Response
	done := make(chan callResult, 1)
	go func() {
		v, err := s.LoadDB(context.Background(), func(p protocol.Response) { partials = append(partials, p) })
		done <- callResult{v, err}
	}()
	req := recv(t, in)
	out <- protocol.Partial(protocol.PhaseNetwork, 1, 2)
	out <- protocol.Partial(protocol.PhaseNetwork, 2, 2)
	out <- protocol.Result(req.ID, protocol.LoadValue{Cards: 10})

	res := recv(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, protocol.LoadValue{Cards: 10}, res.value)
	assert.Len(t, partials, 2)
	close(out)
}

func TestSession_SlowPartialConsumerMissesNothing(t *testing.T) {
	in := make(chan protocol.Request)
	out := make(chan protocol.Response)
	s := NewSession(in, out)

	const total = 300
	var partials []protocol.Response
	done := make(chan callResult, 1)
	go func() {
		v, err := s.LoadDB(context.Background(), func(p protocol.Response) {
			time.Sleep(50 * time.Microsecond)
			partials = append(partials, p)
		})
		done <- callResult{v, err}
	}()
	req := recv(t, in)
	for i := 1; i <= total; i++ {
		out <- protocol.Partial(protocol.PhaseDB, i, total)
	}
	out <- protocol.Result(req.ID, protocol.LoadValue{Chunks: total})

	res := recv(t, done)
	require.NoError(t, res.err)
	require.Len(t, partials, total)
	for i, p := range partials {
		assert.Equal(t, i+1, p.Current)
	}
	close(out)
}

func TestSession_ErrorAndAbortOutcomes(t *testing.T) {
	in := make(chan protocol.Request)
	out := make(chan protocol.Response)
	s := NewSession(in, out)

	done := make(chan callResult, 1)
	go func() {
		v, err := s.FindCard(context.Background(), "Bolt")
		done <- callResult{v, err}
	}()
	req := recv(t, in)
	out <- protocol.Failed(req.ID, domain.ErrUnknownFunction)
	res := recv(t, done)
	assert.EqualError(t, res.err, domain.ErrUnknownFunction.Error())

	go func() {
		_, err := s.Do(context.Background(), protocol.Request{Function: protocol.LoadDB}, nil)
		done <- callResult{err: err}
	}()
	req = recv(t, in)
	out <- protocol.Aborted(req.ID)
	assert.ErrorIs(t, recv(t, done).err, domain.ErrAborted)
	close(out)
}

func TestSession_ContextCancelSendsAbort(t *testing.T) {
	in := make(chan protocol.Request, 4)
	out := make(chan protocol.Response)
	s := NewSession(in, out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.FindCard(ctx, "Bolt")
		done <- err
	}()
	req := recv(t, in)
	cancel()

	assert.ErrorIs(t, recv(t, done), domain.ErrAborted)
	assert.Equal(t, protocol.Request{Function: protocol.Abort, ID: req.ID}, recv(t, in))
	close(out)
}

func TestSession_ClosedStreamFailsPending(t *testing.T) {
	in := make(chan protocol.Request, 1)
	out := make(chan protocol.Response)
	s := NewSession(in, out)

	done := make(chan error, 1)
	go func() {
		_, err := s.FindCard(context.Background(), "Bolt")
		done <- err
	}()
	recv(t, in)
	close(out)

	assert.ErrorIs(t, recv(t, done), ErrSessionClosed)

	require.Eventually(t, func() bool {
		_, err := s.FindCard(context.Background(), "Bolt")
		return err == ErrSessionClosed
	}, time.Second, 10*time.Millisecond)
}

func TestSession_WithWorker(t *testing.T) {
	in := make(chan protocol.Request)
	out := make(chan protocol.Response)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = New(loadedCatalog(10), &fakeLoader{}).Run(ctx, in, out) }()
	s := NewSession(in, out)

	v, err := s.SearchCards(ctx, protocol.Request{Query: "goblin", Take: 3})
	require.NoError(t, err)
	value := v.(protocol.SearchValue)
	assert.Equal(t, 10, value.Total)
	assert.Len(t, value.Results, 3)

	v, err = s.FindCard(ctx, "Goblin 004")
	require.NoError(t, err)
	assert.NotNil(t, v)
}
