package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineRunsStagesInOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	stage := func(name string) Stage {
		return Stage{Name: name, Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, name)
				next.ServeHTTP(w, r)
			})
		}}
	}

	p := NewPipeline(stage("recovery"), stage("logging"), stage("auth_filter"))
	h := p.Then(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		trace = append(trace, "proxy")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"recovery", "logging", "auth_filter", "proxy"}, trace)
	assert.Equal(t, []string{"recovery", "logging", "auth_filter"}, p.Names())
}

func TestPipelineStageCanShortCircuit(t *testing.T) {
	t.Parallel()

	reached := false
	deny := Stage{Name: "deny", Middleware: func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}}

	h := NewPipeline(deny).Then(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}
