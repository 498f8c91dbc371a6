package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newProvider(t *testing.T, tokenStatus int, tokenBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") == "" {
			t.Error("token request missing apikey header")
		}
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		io.WriteString(w, tokenBody)
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") == "" {
			t.Error("userinfo request missing apikey header")
		}
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			t.Errorf("userinfo Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"sub-123","email":"alice@example.com"}`)
	})
	return httptest.NewServer(mux)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticate_Success(t *testing.T) {
	srv := newProvider(t, http.StatusOK,
		`{"access_token":"provider-token","token_type":"bearer"}`)
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "anon-key", discard())
	id, err := gw.Authenticate(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Subject != "sub-123" {
		t.Errorf("Subject = %q, want %q", id.Subject, "sub-123")
	}
	if id.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", id.Email, "alice@example.com")
	}
}

func TestAuthenticate_RejectedCredentials(t *testing.T) {
	srv := newProvider(t, http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "anon-key", discard())
	_, err := gw.Authenticate(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_ProviderError(t *testing.T) {
	srv := newProvider(t, http.StatusInternalServerError, `{"error":"server_error"}`)
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "anon-key", discard())
	_, err := gw.Authenticate(context.Background(), "alice@example.com", "secret")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Authenticate() error = %v, want ErrUnavailable", err)
	}
}

func TestAuthenticate_ProviderUnreachable(t *testing.T) {
	gw := NewHTTPGateway("http://127.0.0.1:1", "anon-key", discard())
	_, err := gw.Authenticate(context.Background(), "alice@example.com", "secret")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Authenticate() error = %v, want ErrUnavailable", err)
	}
}
