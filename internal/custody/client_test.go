package custody

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, secret string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api-secret")
	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	return path
}

func TestClientSendsCredentialHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "key-1" {
			t.Errorf("api key header %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			t.Errorf("authorization header %q", got)
		}
		w.Write([]byte(`[{"address":"addr1"}]`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{
		BaseURL:       srv.URL,
		APIKey:        "key-1",
		APISecretPath: writeSecret(t, "s3cret\n"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	addrs, err := client.GetAddresses(context.Background(), "vault-1", "ADA")
	if err != nil {
		t.Fatalf("get addresses: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "addr1" {
		t.Fatalf("addresses %v", addrs)
	}
}

func TestClientSecretIsOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.GetAddresses(context.Background(), "vault-1", "ADA"); err != nil {
		t.Fatalf("get addresses: %v", err)
	}
}

func TestClientUnreadableSecretFails(t *testing.T) {
	_, err := NewClient(ClientConfig{
		BaseURL:       "https://custody.example",
		APIKey:        "key-1",
		APISecretPath: filepath.Join(t.TempDir(), "absent"),
	})
	if err == nil {
		t.Fatal("expected error for unreadable secret file")
	}
}
