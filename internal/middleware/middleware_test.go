package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"storefront/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		handler http.HandlerFunc
		want    []string
	}{
		{
			name:   "explicit status",
			method: "POST",
			path:   "/cart/lines",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte("created"))
			},
			want: []string{"method=POST", "path=/cart/lines", "status=201", "bytes=7"},
		},
		{
			name:   "implicit 200",
			method: "GET",
			path:   "/cart",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{}"))
			},
			want: []string{"method=GET", "status=200", "bytes=2"},
		},
		{
			name:    "nothing written",
			method:  "POST",
			path:    "/cart/refresh",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    []string{"status=200", "bytes=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			Logging(logger)(tt.handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			for _, check := range tt.want {
				require.Contains(t, buf.String(), check)
			}
		})
	}
}

func TestLoggingRouteAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /cart/lines/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("removed"))
	})

	Logging(logger)(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/cart/lines/abc", nil))

	for _, check := range []string{`route="DELETE /cart/lines/{id}"`, "bytes=7", "level=INFO"} {
		require.Contains(t, buf.String(), check)
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
	}{
		{name: "health at debug", path: "/health", status: http.StatusOK, wantLevel: "level=DEBUG"},
		{name: "healthz at debug", path: "/healthz", status: http.StatusOK, wantLevel: "level=DEBUG"},
		{name: "server error", path: "/cart", status: http.StatusBadGateway, wantLevel: "level=ERROR"},
		{name: "client error", path: "/cart", status: http.StatusConflict, wantLevel: "level=INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			require.Contains(t, buf.String(), tt.wantLevel)
		})
	}
}

func TestLoggingIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Chain(RequestID(), Logging(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Contains(t, buf.String(), "request_id=req-abc")
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, buf.String(), "panic recovered")
	require.Contains(t, buf.String(), "test panic")

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestRecoveryAfterHeaderWritten(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/late", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Zero(t, w.Body.Len())
}

func TestRecoveryPassesThrough(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/cart", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+">")
				next.ServeHTTP(w, r)
				order = append(order, "<"+name)
			})
		}
	}

	handler := Chain(tag("outer"), tag("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	require.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, order)
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	w := httptest.NewRecorder()
	rw := wrap(w)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusNotFound)
	rw.Write([]byte("abc"))

	require.Equal(t, http.StatusCreated, rw.status)
	require.Equal(t, http.StatusCreated, w.Code)
	require.EqualValues(t, 3, rw.written)
}

func TestWrap_ReusesWrapper(t *testing.T) {
	rw := wrap(httptest.NewRecorder())
	require.Same(t, rw, wrap(rw))
}

func TestResponseWriterFlush(t *testing.T) {
	w := httptest.NewRecorder()
	rw := wrap(w)

	rw.Flush()
	require.True(t, w.Flushed)
	require.NoError(t, http.NewResponseController(rw).Flush(), "ResponseController should flush through the wrapper")
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	// Generated when absent
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/cart", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, w.Header().Get(RequestIDHeader))

	// Propagated when present
	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, "req-123", seen)
	require.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotEmpty(t, seen)
	require.LessOrEqual(t, len(seen), maxRequestIDLength)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/{handle}/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Metrics(m)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/collections/shirts/products", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/collections/hats/products", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	// Both product requests share one route series; the miss lands on "unmatched".
	n, err := testutil.GatherAndCount(reg, "storefront_http_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMetricsMiddlewareNilMetrics(t *testing.T) {
	handler := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}
