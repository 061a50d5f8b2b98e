package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIngest(t *testing.T) {
	before := testutil.ToFloat64(ingestTotal.WithLabelValues("accepted"))
	ObserveIngest("accepted")
	if got := testutil.ToFloat64(ingestTotal.WithLabelValues("accepted")); got != before+1 {
		t.Errorf("Expected ingestTotal{accepted} to be %f, got %f", before+1, got)
	}
}

func TestObserveRunAttempt(t *testing.T) {
	before := testutil.ToFloat64(runAttemptsTotal.WithLabelValues("article-body", "failure"))
	ObserveRunAttempt("article-body", false)
	if got := testutil.ToFloat64(runAttemptsTotal.WithLabelValues("article-body", "failure")); got != before+1 {
		t.Errorf("Expected runAttemptsTotal{article-body,failure} to be %f, got %f", before+1, got)
	}
}

func TestObserveLLMCallSkipsZeroCost(t *testing.T) {
	before := testutil.ToFloat64(llmCostUSDTotal.WithLabelValues("unknown-model"))
	ObserveLLMCall("unknown-model", 100*time.Millisecond, 0)
	if got := testutil.ToFloat64(llmCostUSDTotal.WithLabelValues("unknown-model")); got != before {
		t.Errorf("Expected zero-cost call to leave llmCostUSDTotal at %f, got %f", before, got)
	}
}

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	nfBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))

	for _, path := range []string{"/test", "/notfound"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); got != okBefore+1 {
		t.Errorf("Expected httpRequestsTotal for GET /test to grow by 1, got %f (was %f)", got, okBefore)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404")); got != nfBefore+1 {
		t.Errorf("Expected httpRequestsTotal for GET /notfound to grow by 1, got %f (was %f)", got, nfBefore)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("Expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}
