package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphloader/internal/loader"
	"graphloader/internal/logging"
)

func TestLoaderScope(t *testing.T) {
	var sawScope bool
	handler := LoaderScope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawScope = loader.ScopeFrom(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))
	assert.True(t, sawScope, "handler must see a loader registry in context")
}

func TestLoaderScopeIsPerRequest(t *testing.T) {
	var registries []*loader.Registry
	handler := LoaderScope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registry, _ := loader.ScopeFrom(r.Context())
		registries = append(registries, registry)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))

	require.Len(t, registries, 2)
	assert.NotSame(t, registries[0], registries[1], "each request gets its own registry")
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when absent", func(t *testing.T) {
		var ctxID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = logging.RequestID(r.Context())
		}))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		echoed := recorder.Header().Get(RequestIDHeader)
		require.NotEmpty(t, echoed)
		assert.Equal(t, echoed, ctxID)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err, "generated ids are UUIDs")
	})

	t.Run("propagates a client-sent id", func(t *testing.T) {
		var ctxID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = logging.RequestID(r.Context())
		}))

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set(RequestIDHeader, "client-supplied")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, "client-supplied", ctxID)
		assert.Equal(t, "client-supplied", recorder.Header().Get(RequestIDHeader))
	})
}

func TestLoggingCapturesStatus(t *testing.T) {
	logger := logging.New(logging.Config{Level: "error", Format: "text"})
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { order = append(order, "handler") }),
		tag("outer"), tag("inner"),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestMetricsNilPassthrough(t *testing.T) {
	called := false
	handler := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
