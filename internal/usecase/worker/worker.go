// Package worker executes catalog requests for one client, one at a time,
// with cooperative cancellation by request id.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/domain/search/order"
	"github.com/kailas-cloud/cardex/internal/domain/search/request"
	"github.com/kailas-cloud/cardex/internal/metrics"
	"github.com/kailas-cloud/cardex/internal/usecase/catalog"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
)

// DefaultAbortMemory is how many aborts for unknown ids are remembered.
const DefaultAbortMemory = 1024

// Option configures a Worker.
type Option func(*Worker)

// WithAbortMemory bounds the remembered aborts for ids not yet seen.
func WithAbortMemory(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.abortMemory = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// Worker serves the request protocol against a shared catalog and loader.
type Worker struct {
	catalog     Catalog
	loader      Loader
	abortMemory int
	logger      *zap.Logger
}

// New creates a Worker.
func New(cat Catalog, ld Loader, opts ...Option) *Worker {
	w := &Worker{
		catalog:     cat,
		loader:      ld,
		abortMemory: DefaultAbortMemory,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run serves requests from in until in is closed and nothing is pending, or
// ctx is done. Every request id gets exactly one terminal response on out.
// Run does not close out.
//
// Requests run one at a time in arrival order. While a search or load is
// running the inbox is drained at each yield point: aborts take effect
// immediately, other requests are queued. find and search requests that
// arrive before the catalog is loaded are parked until it is.
func (w *Worker) Run(ctx context.Context, in <-chan protocol.Request, out chan<- protocol.Response) error {
	metrics.WorkerSessions.Inc()
	defer metrics.WorkerSessions.Dec()

	l := &loop{
		Worker:  w,
		ctx:     ctx,
		in:      in,
		out:     out,
		aborted: newIDSet(w.abortMemory),
	}
	return l.run()
}

type operation struct {
	id     int64
	cancel context.CancelFunc
}

// loop is the state of one Run call. It is only touched by Run's goroutine.
type loop struct {
	*Worker
	ctx      context.Context
	in       <-chan protocol.Request
	out      chan<- protocol.Response
	inClosed bool

	queue   []protocol.Request
	parked  []protocol.Request
	aborted *idSet
	current *operation
}

func (l *loop) run() error {
	for {
		if len(l.parked) > 0 && l.loaded() {
			l.queue = append(l.parked, l.queue...)
			l.parked = nil
		}
		if len(l.queue) > 0 {
			req := l.queue[0]
			l.queue = l.queue[1:]
			if err := l.execute(req); err != nil {
				return err
			}
			continue
		}
		if l.inClosed && len(l.parked) == 0 {
			return nil
		}

		var ready <-chan struct{}
		if len(l.parked) > 0 {
			ready = l.catalog.Ready()
		}
		in := l.in
		if l.inClosed {
			in = nil
		}
		select {
		case <-l.ctx.Done():
			return l.ctx.Err()
		case <-ready:
		case req, ok := <-in:
			if !ok {
				l.inClosed = true
				continue
			}
			l.accept(req)
		}
	}
}

func (l *loop) loaded() bool {
	select {
	case <-l.catalog.Ready():
		return true
	default:
		return false
	}
}

func (l *loop) accept(req protocol.Request) {
	if req.Function == protocol.Abort {
		l.abort(req.ID)
		return
	}
	l.queue = append(l.queue, req)
}

// yield drains the inbox without blocking.
func (l *loop) yield() {
	for !l.inClosed {
		select {
		case req, ok := <-l.in:
			if !ok {
				l.inClosed = true
				return
			}
			l.accept(req)
		default:
			return
		}
	}
}

func (l *loop) abort(id int64) {
	if l.current != nil && l.current.id == id {
		l.current.cancel()
		return
	}
	if l.dropPending(&l.queue, id) || l.dropPending(&l.parked, id) {
		_ = l.emit(protocol.Aborted(id))
		return
	}
	l.aborted.add(id)
}

func (l *loop) dropPending(list *[]protocol.Request, id int64) bool {
	i := slices.IndexFunc(*list, func(r protocol.Request) bool { return r.ID == id })
	if i < 0 {
		return false
	}
	*list = slices.Delete(*list, i, i+1)
	return true
}

func (l *loop) execute(req protocol.Request) error {
	if l.aborted.take(req.ID) {
		return l.emit(protocol.Aborted(req.ID))
	}
	if (req.Function == protocol.FindCard || req.Function == protocol.SearchCards) && !l.loaded() {
		l.parked = append(l.parked, req)
		return nil
	}

	ctx, cancel := context.WithCancel(l.ctx)
	l.current = &operation{id: req.ID, cancel: cancel}
	resp := l.dispatch(ctx, req)
	l.current = nil
	if ctx.Err() != nil && l.ctx.Err() == nil {
		resp = protocol.Aborted(req.ID)
	}
	cancel()
	return l.emit(resp)
}

func (l *loop) dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Function {
	case protocol.FindCard:
		c, err := l.catalog.FindByName(ctx, req.Name)
		if errors.Is(err, domain.ErrCardNotFound) {
			return protocol.Result(req.ID, nil)
		}
		if err != nil {
			return l.failure(req, err)
		}
		return protocol.Result(req.ID, c)

	case protocol.SearchCards:
		r, err := request.New(req.Query, req.Skip, req.Take, order.Key(req.Sort), order.Direction(req.Order))
		if err != nil {
			return l.failure(req, err)
		}
		page, err := l.catalog.Search(ctx, r, catalog.WithYield(l.yield))
		if err != nil {
			return l.failure(req, err)
		}
		return protocol.Result(req.ID, protocol.SearchValue{
			Total: page.Total(), Skip: r.Skip(), Take: r.Take(), Results: page.Cards(),
		})

	case protocol.LoadDB:
		report, err := l.loader.Load(ctx, func(ev loader.Event) {
			_ = l.emit(protocol.Partial(ev.Phase, ev.Current, ev.Total))
			l.yield()
		})
		if err != nil {
			return l.failure(req, err)
		}
		return protocol.Result(req.ID, protocol.LoadValue{
			Cards: report.Cards, Chunks: report.Chunks, Offline: report.Offline,
		})

	default:
		return l.failure(req, fmt.Errorf("%w: %q", domain.ErrUnknownFunction, req.Function))
	}
}

func (l *loop) failure(req protocol.Request, err error) protocol.Response {
	if errors.Is(err, domain.ErrAborted) {
		return protocol.Aborted(req.ID)
	}
	l.logger.Debug("Request failed",
		zap.Int64("id", req.ID), zap.String("function", string(req.Function)), zap.Error(err))
	return protocol.Failed(req.ID, err)
}

func (l *loop) emit(resp protocol.Response) error {
	select {
	case l.out <- resp:
		return nil
	case <-l.ctx.Done():
		return l.ctx.Err()
	}
}
