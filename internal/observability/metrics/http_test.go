package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesObservedRequests(t *testing.T) {
	ObserveHTTPRequest("/tasks/{id}", "GET", 200, 20*time.Millisecond)
	ObserveHTTPRequest("/tasks/{id}", "GET", 500, 5*time.Millisecond)
	ObserveEvent("task.created", nil)
	ObserveEvent("task.created", errors.New("boom"))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	text := string(body)

	for _, want := range []string{
		`taskdeck_http_requests_total{code="200",handler="/tasks/{id}",method="GET"}`,
		`taskdeck_http_request_errors_total{handler="/tasks/{id}",method="GET"}`,
		`taskdeck_http_request_duration_seconds_bucket{handler="/tasks/{id}",method="GET",le="0.05"}`,
		`taskdeck_events_published_total{outcome="error",type="task.created"}`,
		`go_goroutines`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
