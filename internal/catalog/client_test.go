package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/models"
)

func TestClientLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ops@example.com" {
			t.Errorf("email = %q", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "acc",
			"refresh_token": "ref",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "amazon", server.Client(), zerolog.Nop())
	creds, err := client.Login(context.Background(), "ops@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if creds.AccessToken != "acc" || creds.RefreshToken != "ref" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestClientLoginUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"status": "Unauthorized"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "amazon", server.Client(), zerolog.Nop())
	_, err := client.Login(context.Background(), "ops@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login error = %v, want ErrInvalidCredentials", err)
	}
}

func TestClientAuthFailureClassification(t *testing.T) {
	for _, message := range []string{
		"Signature verification failed.",
		"The token has expired",
		"Token not provided",
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "invalid_token",
				"message": message,
			})
		}))

		client := NewClient(server.URL, "amazon", server.Client(), zerolog.Nop())
		_, err := client.Brands(context.Background(), "stale")
		server.Close()

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Brands error = %v, want *APIError", err)
		}
		if !apiErr.AuthFailure() {
			t.Errorf("message %q not classified as auth failure", message)
		}
	}
}

func TestClientNonAuthAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "internal",
			"message": "database unavailable",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "amazon", server.Client(), zerolog.Nop())
	_, err := client.Brands(context.Background(), "token")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Brands error = %v, want *APIError", err)
	}
	if apiErr.AuthFailure() {
		t.Error("server error wrongly classified as auth failure")
	}
}

func TestClientUpsertAndCreate(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("Authorization")
		switch r.Method {
		case http.MethodPut:
			json.NewEncoder(w).Encode(map[string]any{"to_create": []string{"B0NEW"}})
		case http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "amazon", server.Client(), zerolog.Nop())
	records := []models.ProductRecord{{Identifier: "B0NEW"}, {Identifier: "B0OLD"}}

	toCreate, err := client.Upsert(context.Background(), "tok", records)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(toCreate) != 1 || toCreate[0] != "B0NEW" {
		t.Errorf("toCreate = %v", toCreate)
	}
	if gotToken != "Bearer tok" {
		t.Errorf("Authorization = %q", gotToken)
	}

	if err := client.Create(context.Background(), "tok", records[:1]); err != nil {
		t.Fatalf("Create: %v", err)
	}
}
