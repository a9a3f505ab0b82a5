package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/studyscribe/server/metrics"
	"github.com/teilomillet/studyscribe/server/middleware"
)

func TestPrometheusMetrics(t *testing.T) {
	m := metrics.NewMetrics()

	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedCode   int
		expectedPath   string
		expectedStatus string
	}{
		{
			name: "success request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			expectedCode:   http.StatusOK,
			expectedPath:   "/",
			expectedStatus: "200",
		},
		{
			name: "error request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedCode:   http.StatusInternalServerError,
			expectedPath:   "/",
			expectedStatus: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.PrometheusMetrics(m)(tt.handler)
			server := httptest.NewServer(handler)
			defer server.Close()

			resp, err := http.Get(server.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)

			requestCount := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(tt.expectedPath, tt.expectedStatus))
			assert.Equal(t, float64(1), requestCount)

			// Active requests are back to zero once the request completes
			assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveRequests))

			if tt.expectedCode >= 500 {
				errorCount := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("server_error"))
				assert.Equal(t, float64(1), errorCount)
			}
		})
	}
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.NewMetrics()
	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/items/1", "/items/2", "/nowhere"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "studyscribe_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			counts[endpointLabel(metric)+" "+statusLabel(metric)] += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), counts["/items/{id} 200"])
	assert.Equal(t, float64(1), counts["unmatched 404"])
}

func endpointLabel(m *dto.Metric) string { return label(m, "endpoint") }
func statusLabel(m *dto.Metric) string   { return label(m, "status") }

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
