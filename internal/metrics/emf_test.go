package metrics

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestNew_AutoDimension(t *testing.T) {
	initOnce.Do(func() {})
	functionName = "process-lambda"
	t.Cleanup(func() { functionName = "" })

	r := New(Namespace)
	if r.namespace != Namespace {
		t.Errorf("namespace = %s, want %s", r.namespace, Namespace)
	}
	if r.dimensions["FunctionName"] != "process-lambda" {
		t.Errorf("FunctionName dimension = %q", r.dimensions["FunctionName"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	initOnce.Do(func() {})
	functionName = ""
	buf := captureOutput(t)

	New(Namespace).
		Dimension("Kind", "image").
		Metric("MediaProcessingMs", 1234.5, UnitMilliseconds).
		Count("MediaProcessed").
		Property("mediaId", "42").
		Flush()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("EMF output is not JSON: %v\n%s", err, buf.String())
	}
	awsMap, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive")
	}
	cwm := awsMap["CloudWatchMetrics"].([]any)[0].(map[string]any)
	if cwm["Namespace"] != Namespace {
		t.Errorf("Namespace = %v", cwm["Namespace"])
	}
	dims := cwm["Dimensions"].([]any)[0].([]any)
	if len(dims) != 1 || dims[0] != "Kind" {
		t.Errorf("Dimensions = %v, want [Kind]", dims)
	}
	defs := cwm["Metrics"].([]any)
	if len(defs) != 2 || defs[0].(map[string]any)["Name"] != "MediaProcessed" {
		t.Errorf("Metrics = %v, want sorted names", defs)
	}
	if doc["MediaProcessingMs"] != 1234.5 || doc["MediaProcessed"] != 1.0 {
		t.Errorf("values = %v / %v", doc["MediaProcessingMs"], doc["MediaProcessed"])
	}
	if doc["Kind"] != "image" || doc["mediaId"] != "42" {
		t.Errorf("dimension/property = %v / %v", doc["Kind"], doc["mediaId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := captureOutput(t)
	New(Namespace).Dimension("Kind", "image").Flush()
	if buf.Len() != 0 {
		t.Errorf("empty recorder wrote %q", buf.String())
	}
}

func TestMediaHelpers(t *testing.T) {
	initOnce.Do(func() {})
	functionName = ""
	buf := captureOutput(t)

	MediaProcessed("video", "1", 20*time.Millisecond, 2048)
	MediaFailed("unknown", "", 5*time.Millisecond)
	Batch(3, 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d EMF lines, want 3:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{`"MediaProcessed":1`, `"MediaFailed":1`, `"BatchFailures":1`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestHTTPMetrics(t *testing.T) {
	h := NewHTTP()
	h.Observe("/api/media/{id}", "GET", 200, 15*time.Millisecond)
	h.Observe("", "GET", 404, time.Millisecond)

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`media_http_requests_total{method="GET",route="/api/media/{id}",status="200"} 1`,
		`media_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`media_http_request_duration_seconds_count{method="GET",route="/api/media/{id}"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}

	var nilHTTP *HTTP
	nilHTTP.Observe("/x", "GET", 200, 0)
}
