package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("MEDIA_TEST_ENV_OR_DEFAULT", "set")
	if got := EnvOrDefault("MEDIA_TEST_ENV_OR_DEFAULT", "fallback"); got != "set" {
		t.Errorf("EnvOrDefault() = %q, want set", got)
	}
	if got := EnvOrDefault("MEDIA_TEST_ENV_UNSET_XYZ", "fallback"); got != "fallback" {
		t.Errorf("EnvOrDefault() = %q, want fallback", got)
	}
}

func TestStartupLoggerLog(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })

	NewStartupLogger("process-lambda").
		S3Bucket("media", "media-bucket").
		Queue("jobs", "https://sqs.example/jobs").
		Secret("db", "arn:aws:secretsmanager:example").
		Feature("partialBatch", true).
		Config("parallelism", "2").
		InitDuration(150 * time.Millisecond).
		Log()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("startup event is not JSON: %v\n%s", err, buf.String())
	}
	if entry["message"] != "Startup complete" {
		t.Errorf("message = %v", entry["message"])
	}
	proc, _ := entry["process"].(map[string]any)
	if proc["name"] != "process-lambda" {
		t.Errorf("process.name = %v, want process-lambda", proc["name"])
	}
	res, _ := entry["resources"].(map[string]any)
	buckets, _ := res["s3Buckets"].(map[string]any)
	if buckets["media"] != "media-bucket" {
		t.Errorf("resources.s3Buckets.media = %v", buckets["media"])
	}
	if _, ok := res["databases"]; ok {
		t.Error("empty resource group should be omitted")
	}
	features, _ := entry["features"].(map[string]any)
	if features["partialBatch"] != true {
		t.Errorf("features.partialBatch = %v", features["partialBatch"])
	}
}
