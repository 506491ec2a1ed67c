// Package chi exposes the catalog over HTTP: REST endpoints and a websocket
// speaking the worker protocol.
package chi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/domain/search/order"
	"github.com/kailas-cloud/cardex/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/cardex/internal/usecase/health"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
)

const maxSuggestLimit = 100

// Limits bounds request handling.
type Limits struct {
	// SuggestLimit is the default number of suggestions.
	SuggestLimit int
	// LoadWait is how long a REST request waits for the first catalog load
	// before failing with catalog_not_loaded.
	LoadWait time.Duration
	// InboxSize buffers websocket messages between the socket and the worker.
	InboxSize int
	// MaxMessageSize caps one inbound websocket message.
	MaxMessageSize int64
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{SuggestLimit: 10, LoadWait: 5 * time.Second, InboxSize: 64, MaxMessageSize: 64 << 10}
}

// Server handles the HTTP API.
type Server struct {
	catalog       Catalog
	loader        Loader
	health        HealthChecker
	newWorker     func() Worker
	logger        *zap.Logger
	limits        Limits
	upgrader      websocket.Upgrader
	errorHandlers []errorHandler

	// closing is cancelled by CloseSessions and ends every websocket session.
	closing       context.Context
	closeSessions context.CancelFunc
}

// NewServer creates an HTTP API server. newWorker is called once per
// websocket connection.
func NewServer(
	cat Catalog,
	ld Loader,
	health HealthChecker,
	newWorker func() Worker,
	logger *zap.Logger,
) *Server {
	closing, closeSessions := context.WithCancel(context.Background())
	return &Server{
		catalog:   cat,
		loader:    ld,
		health:    health,
		newWorker: newWorker,
		logger:    logger,
		limits:    DefaultLimits(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     allowWSOrigin,
		},
		errorHandlers: defaultErrorHandlers(),
		closing:       closing,
		closeSessions: closeSessions,
	}
}

// CloseSessions ends all open websocket sessions. http.Server.Shutdown does
// not track hijacked connections, so register it with RegisterOnShutdown.
func (s *Server) CloseSessions() {
	s.closeSessions()
}

// WithLimits overrides the non-zero limits.
func (s *Server) WithLimits(l Limits) *Server {
	if l.SuggestLimit > 0 {
		s.limits.SuggestLimit = l.SuggestLimit
	}
	if l.LoadWait > 0 {
		s.limits.LoadWait = l.LoadWait
	}
	if l.InboxSize > 0 {
		s.limits.InboxSize = l.InboxSize
	}
	if l.MaxMessageSize > 0 {
		s.limits.MaxMessageSize = l.MaxMessageSize
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r gochi.Router) {
		r.Get("/cards", s.SearchCards)
		r.Get("/cards/{name}", s.GetCard)
		r.Get("/suggest", s.Suggest)
		r.Post("/catalog/load", s.LoadCatalog)
		r.Get("/ws", s.Worker)
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Catalog CatalogStats                    `json:"catalog"`
}

// CatalogStats describes the live catalog.
type CatalogStats struct {
	Loaded   bool       `json:"loaded"`
	Cards    int        `json:"cards"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	stats := s.catalog.Stats()

	resp := HealthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Catalog: CatalogStats{Loaded: stats.Loaded, Cards: stats.Cards},
	}
	if stats.Loaded {
		resp.Catalog.LoadedAt = &stats.LoadedAt
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// GetCard handles GET /v1/cards/{name}.
func (s *Server) GetCard(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(gochi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid card name")
		return
	}
	if err := s.awaitCatalog(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	c, err := s.catalog.FindByName(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SearchCards handles GET /v1/cards. A client that disconnects aborts the scan.
func (s *Server) SearchCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, err := intParam(q, "skip")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	take, err := intParam(q, "take")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	req, err := request.New(q.Get("q"), skip, take, order.Key(q.Get("sort")), order.Direction(q.Get("order")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.awaitCatalog(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	page, err := s.catalog.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SearchValue{
		Total: page.Total(), Skip: req.Skip(), Take: req.Take(), Results: page.Cards(),
	})
}

// SuggestResponse is the body of GET /v1/suggest.
type SuggestResponse struct {
	Names []string `json:"names"`
}

// Suggest handles GET /v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	if limit <= 0 {
		limit = s.limits.SuggestLimit
	}
	limit = min(limit, maxSuggestLimit)
	if err := s.awaitCatalog(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	names, err := s.catalog.Suggest(r.Context(), q.Get("prefix"), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Names: names})
}

// LoadResponse is the body of POST /v1/catalog/load.
type LoadResponse struct {
	Offline    bool   `json:"offline"`
	Fetched    int    `json:"fetched"`
	Cached     int    `json:"cached"`
	Deleted    int    `json:"deleted"`
	Failed     int    `json:"failed"`
	Chunks     int    `json:"chunks"`
	Cards      int    `json:"cards"`
	Rejected   int    `json:"rejected"`
	Duplicates int    `json:"duplicates"`
	DurationMs int64  `json:"duration_ms"`
	Warning    string `json:"warning,omitempty"`
}

// LoadCatalog handles POST /v1/catalog/load.
func (s *Server) LoadCatalog(w http.ResponseWriter, r *http.Request) {
	report, err := s.loader.Load(r.Context(), nil)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loadResponse(report))
}

func loadResponse(r loader.Report) LoadResponse {
	resp := LoadResponse{
		Offline:    r.Offline,
		Fetched:    r.Fetched,
		Cached:     r.Cached,
		Deleted:    r.Deleted,
		Failed:     len(r.Failed),
		Chunks:     r.Chunks,
		Cards:      r.Cards,
		Rejected:   r.Rejected,
		Duplicates: r.Duplicates,
		DurationMs: r.Duration.Milliseconds(),
	}
	if w := r.Warning(); w != nil {
		resp.Warning = w.Error()
	}
	return resp
}

// awaitCatalog waits up to LoadWait for the first load. ErrNotLoaded is
// returned when the wait times out while the client is still connected.
func (s *Server) awaitCatalog(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.limits.LoadWait)
	defer cancel()
	if err := s.catalog.Wait(waitCtx); err != nil {
		if ctx.Err() == nil {
			return domain.ErrNotLoaded
		}
		return err
	}
	return nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
