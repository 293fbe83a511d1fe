package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/obsidianstack/sentinel/pkg/types"
)

func captureServer(t *testing.T, status int) (*httptest.Server, <-chan []byte) {
	t.Helper()
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, bodies
}

func TestHTTPWebhookSender_Slack(t *testing.T) {
	srv, bodies := captureServer(t, http.StatusOK)
	s := NewHTTPWebhookSender(time.Second)

	a := testAlert(types.SeverityHigh, types.ChannelWebhook)
	if err := s.Post(context.Background(), srv.URL, webhookPayload("slack", a)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	body := <-bodies
	if got := gjson.GetBytes(body, "text").String(); got != "*[HIGH]* Error rate is 6.00% (threshold: 5%)" {
		t.Errorf("text = %q", got)
	}
}

func TestHTTPWebhookSender_Teams(t *testing.T) {
	srv, bodies := captureServer(t, http.StatusOK)
	s := NewHTTPWebhookSender(time.Second)

	a := testAlert(types.SeverityCritical, types.ChannelWebhook)
	if err := s.Post(context.Background(), srv.URL, webhookPayload("teams", a)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	body := <-bodies
	if got := gjson.GetBytes(body, "@type").String(); got != "MessageCard" {
		t.Errorf("@type = %q", got)
	}
	if got := gjson.GetBytes(body, "themeColor").String(); got != "FF4F6A" {
		t.Errorf("themeColor = %q", got)
	}
	if got := gjson.GetBytes(body, "summary").String(); got != "High Error Rate" {
		t.Errorf("summary = %q", got)
	}
}

func TestHTTPWebhookSender_GenericCarriesAlert(t *testing.T) {
	srv, bodies := captureServer(t, http.StatusOK)
	s := NewHTTPWebhookSender(time.Second)

	a := testAlert(types.SeverityMedium, types.ChannelWebhook)
	if err := s.Post(context.Background(), srv.URL, webhookPayload("http", a)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	body := <-bodies
	if got := gjson.GetBytes(body, "alert.rule_id").String(); got != "high_error_rate" {
		t.Errorf("alert.rule_id = %q", got)
	}
	if got := gjson.GetBytes(body, "alert.severity").String(); got != "medium" {
		t.Errorf("alert.severity = %q", got)
	}
}

func TestHTTPWebhookSender_ErrorStatus(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadGateway)
	s := NewHTTPWebhookSender(time.Second)

	if err := s.Post(context.Background(), srv.URL, map[string]string{"a": "b"}); err == nil {
		t.Error("expected error for HTTP 502")
	}
}
