package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eklitzke/bitcoin-tools/pkg/config"
	"github.com/eklitzke/bitcoin-tools/pkg/output"
)

func newTestReport(warnings int) *output.Report {
	return &output.Report{
		Summary: output.Summary{
			FilesParsed:    1,
			TablesBuilt:    2,
			TotalWarnings:  warnings,
			LinesProcessed: 100,
		},
		Files: []output.FileReport{
			{
				Source:     "debug-20240101-120000.log",
				TimerTicks: 10,
				Tables:     []output.TableSummary{{Event: "dbcache", Rows: 10, Columns: []string{"key"}}},
			},
		},
		Metadata: output.Metadata{
			Sources:     []string{"debug-20240101-120000.log"},
			GeneratedAt: time.Now(),
			Duration:    time.Second,
		},
	}
}

func TestClient_Send_Success(t *testing.T) {
	var receivedBody []byte
	var receivedContentType, receivedAuth, receivedAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedAgent = r.Header.Get("User-Agent")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestReport(0), SendOptions{URL: server.URL})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}
	if receivedAgent != "ibdlog-webhook" {
		t.Errorf("expected User-Agent ibdlog-webhook, got %s", receivedAgent)
	}
	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %s", receivedAuth)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("failed to parse received payload: %v", err)
	}
	for _, key := range []string{"summary", "files", "metadata"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload missing %q field", key)
		}
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestReport(0), SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}
	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestReport(0), SendOptions{URL: server.URL})

	if resp.Success() {
		t.Error("expected failure, got success")
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestReport(0), SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() || resp.Error == nil {
		t.Errorf("expected timeout failure, got %+v", resp)
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	resp := NewClient().Send(context.Background(), newTestReport(0), SendOptions{URL: "://invalid-url"})
	if resp.Success() || resp.Error == nil {
		t.Error("expected failure for invalid URL")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestShouldFire(t *testing.T) {
	tests := []struct {
		trigger     config.WebhookTrigger
		hasWarnings bool
		want        bool
	}{
		{config.WebhookTriggerAlways, false, true},
		{config.WebhookTriggerAlways, true, true},
		{config.WebhookTriggerNever, true, false},
		{config.WebhookTriggerOnWarnings, true, true},
		{config.WebhookTriggerOnWarnings, false, false},
		{"", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := ShouldFire(tt.trigger, tt.hasWarnings); got != tt.want {
			t.Errorf("ShouldFire(%q, %v) = %v, want %v", tt.trigger, tt.hasWarnings, got, tt.want)
		}
	}
}

func TestClient_Notify(t *testing.T) {
	var hits atomic.Int32
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	core, logs := observer.New(zap.InfoLevel)
	client := NewClient(WithLogger(zap.New(core)))

	hooks := []config.WebhookConfig{
		{Name: "always", URL: ok.URL, Trigger: config.WebhookTriggerAlways},
		{Name: "warnings", URL: ok.URL, Trigger: config.WebhookTriggerOnWarnings},
		{Name: "never", URL: ok.URL, Trigger: config.WebhookTriggerNever},
		{Name: "broken", URL: broken.URL, Trigger: config.WebhookTriggerAlways},
	}

	if sent := client.Notify(context.Background(), hooks, newTestReport(0)); sent != 1 {
		t.Errorf("Notify() without warnings sent %d, want 1", sent)
	}
	if sent := client.Notify(context.Background(), hooks, newTestReport(3)); sent != 2 {
		t.Errorf("Notify() with warnings sent %d, want 2", sent)
	}
	if hits.Load() != 3 {
		t.Errorf("server received %d requests, want 3", hits.Load())
	}
	if failed := logs.FilterMessage("webhook failed").Len(); failed != 2 {
		t.Errorf("logged %d failures, want 2", failed)
	}
}
