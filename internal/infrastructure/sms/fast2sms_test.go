package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

func TestFast2SMS_Send_Success(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"authorization": q.Get("authorization"),
			"route":         q.Get("route"),
			"message":       q.Get("message"),
			"numbers":       q.Get("numbers"),
			"flash":         q.Get("flash"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"return":true,"request_id":"abc","message":["SMS sent successfully."]}`))
	}))
	defer srv.Close()

	s := NewFast2SMS("key-1", srv.URL, zerolog.Nop())
	if err := s.Send(context.Background(), "9876543210", "Power outage in Rampur."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"authorization": "key-1",
		"route":         "dlt",
		"message":       "Power outage in Rampur.",
		"numbers":       "9876543210",
		"flash":         "0",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("param %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestFast2SMS_Send_GatewayRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"return":false,"status_code":412,"message":"Invalid Authentication"}`))
	}))
	defer srv.Close()

	err := NewFast2SMS("bad", srv.URL, zerolog.Nop()).Send(context.Background(), "9876543210", "x")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestFast2SMS_Send_Undecodable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	err := NewFast2SMS("key", srv.URL, zerolog.Nop()).Send(context.Background(), "9876543210", "x")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestNew_WithoutKeyLogsOnly(t *testing.T) {
	s := New("", "", zerolog.Nop())
	if _, ok := s.(*LogSender); !ok {
		t.Fatalf("expected LogSender, got %T", s)
	}
	if err := s.Send(context.Background(), "9876543210", "x"); err != nil {
		t.Errorf("log sender must not fail, got %v", err)
	}
}
