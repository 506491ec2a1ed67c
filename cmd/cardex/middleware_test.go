package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/domain/search/query"
)

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := jsonRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cards", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["code"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestWideEventMiddleware_LogsRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(zap.New(core)))
	r.Get("/v1/cards/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cards/Goblin%20King", http.NoBody))

	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/v1/cards/{name}", fields["route"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
}

func TestDialect(t *testing.T) {
	assert.Equal(t, query.Legacy, dialect("legacy"))
	assert.Equal(t, query.Standard, dialect("standard"))
	assert.Equal(t, query.Standard, dialect(""))
}

func TestPrintPage(t *testing.T) {
	var buf bytes.Buffer
	page := protocol.SearchValue{
		Total: 12,
		Results: []*card.Card{
			{Name: "Goblin Guide", ManaCost: "{R}", Type: "Creature - Goblin"},
			{Name: "Goblin King", ManaCost: "{1}{R}{R}", Type: "Creature - Goblin"},
		},
	}
	require.NoError(t, printPage(&buf, page, 10))

	out := buf.String()
	assert.Contains(t, out, "11  Goblin Guide")
	assert.Contains(t, out, "12  Goblin King")
	assert.Contains(t, out, "2 of 12 matches")
}
