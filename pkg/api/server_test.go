package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybroker/broker/pkg/classify"
	"github.com/relaybroker/broker/pkg/config"
	"github.com/relaybroker/broker/pkg/dispatch"
	"github.com/relaybroker/broker/pkg/learning"
	"github.com/relaybroker/broker/pkg/outcome"
	"github.com/relaybroker/broker/pkg/persona"
	"github.com/relaybroker/broker/pkg/policy"
	"github.com/relaybroker/broker/pkg/reasoner"
	"github.com/relaybroker/broker/pkg/transport"
)

type noopReasoner struct{}

func (noopReasoner) Execute(ctx context.Context, prompt string, opts reasoner.Options, sink reasoner.ProgressSink) (reasoner.Result, error) {
	return reasoner.Result{Success: true}, nil
}

type fakeReloader struct {
	stats config.Stats
	err   error
}

func (f fakeReloader) Reload(ctx context.Context) (config.Stats, error) {
	return f.stats, f.err
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	dir := t.TempDir()
	store, err := learning.Open(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	policies := policy.NewRegistry(nil, 300)
	personas := persona.NewRegistry(map[string]config.PersonaConfig{"default": {}}, config.MappingsConfig{})
	classifier := classify.NewClassifier(policies, personas)
	analyzer := outcome.NewAnalyzer(store)
	pipeline := dispatch.New(classifier, personas, store, analyzer, noopReasoner{}, transport.NewFakeOutbound(), config.Defaults{})

	return Deps{
		ConfigStats: func() config.Stats { return config.Stats{Personas: 1, Mappings: 0, Policies: 0} },
		Store:       store,
		Pipeline:    pipeline,
		Policies:    policies,
		Personas:    personas,
	}
}

func TestHealthEndpointReportsStats(t *testing.T) {
	deps := testDeps(t)
	router := NewServer(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"personas":1`)
}

func TestDebugQueueEndpointReportsPoolHealth(t *testing.T) {
	deps := testDeps(t)
	router := NewServer(deps)

	req := httptest.NewRequest(http.MethodGet, "/debug/queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDebugReloadWithoutReloaderReturnsNotImplemented(t *testing.T) {
	deps := testDeps(t)
	router := NewServer(deps)

	req := httptest.NewRequest(http.MethodPost, "/debug/reload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDebugReloadSucceeds(t *testing.T) {
	deps := testDeps(t)
	deps.Reloader = fakeReloader{stats: config.Stats{Personas: 2, Mappings: 3, Policies: 1}}
	router := NewServer(deps)

	req := httptest.NewRequest(http.MethodPost, "/debug/reload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"personas":2`)
}

func TestDebugRoutingResolvesPersona(t *testing.T) {
	deps := testDeps(t)
	router := NewServer(deps)

	req := httptest.NewRequest(http.MethodGet, "/debug/routing?is_group=false", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"match_kind":"direct_message"`)
}

func TestDebugReloadFailurePropagatesError(t *testing.T) {
	deps := testDeps(t)
	deps.Reloader = fakeReloader{err: errors.New("config dir vanished")}
	router := NewServer(deps)

	req := httptest.NewRequest(http.MethodPost, "/debug/reload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
