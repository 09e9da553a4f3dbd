package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nimbusward/tokengate/internal/errors"
)

func TestGetDecodesJSONAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("missing api key header, got %q", got)
		}
		w.Write([]byte(`{"name":"ok","count":3}`))
	}))
	defer srv.Close()

	client, err := New(Config{Service: "test", BaseURL: srv.URL, Headers: map[string]string{"X-API-Key": "secret"}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := client.Get(context.Background(), "/thing", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Name != "ok" || out.Count != 3 {
		t.Fatalf("decoded %+v", out)
	}
}

func TestNon2xxMapsToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"forbidden","message":"api key expired"}`))
	}))
	defer srv.Close()

	client, err := New(Config{Service: "claims", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.Get(context.Background(), "/claims", nil)
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Service != "claims" {
		t.Fatalf("service = %q", apiErr.Service)
	}
	if apiErr.ErrorType != "forbidden" {
		t.Fatalf("error type = %q", apiErr.ErrorType)
	}
	if apiErr.Message != "api key expired" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := New(Config{Service: "test", BaseURL: srv.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Get(context.Background(), "/", nil); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("4xx retried: %d calls", n)
	}
}

func TestServerErrorsRetryUntilSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := New(Config{Service: "test", BaseURL: srv.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Get(context.Background(), "/", nil); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		w.Write([]byte(`{"id":"rec-1"}`))
	}))
	defer srv.Close()

	client, err := New(Config{Service: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]string{"address": "addr1"}
	if err := client.Post(context.Background(), "/claims", body, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if out.ID != "rec-1" {
		t.Fatalf("decoded %+v", out)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{Service: "test"}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
