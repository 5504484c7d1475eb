package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boticalabs/botica-backend/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.MailConfig{
		APIKey:    "sg-test-key",
		BaseURL:   baseURL,
		FromEmail: "no-reply@botica.example",
		FromName:  "Botica",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestSendSuccess(t *testing.T) {
	var captured sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sg-test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Send(context.Background(), Message{
		To:       "cliente@example.com",
		ToName:   "Cliente",
		Subject:  "Tu pedido #1042",
		TextBody: "Gracias por tu compra.",
		HTMLBody: "<p>Gracias por tu compra.</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if captured.From.Email != "no-reply@botica.example" {
		t.Fatalf("unexpected from %q", captured.From.Email)
	}
	if len(captured.Personalizations) != 1 || len(captured.Personalizations[0].To) != 1 {
		t.Fatalf("unexpected personalizations %+v", captured.Personalizations)
	}
	if captured.Personalizations[0].To[0].Email != "cliente@example.com" {
		t.Fatalf("unexpected recipient %+v", captured.Personalizations[0].To[0])
	}
	if len(captured.Content) != 2 || captured.Content[0].Type != "text/plain" || captured.Content[1].Type != "text/html" {
		t.Fatalf("unexpected content order %+v", captured.Content)
	}
}

func TestSendUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid key"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Send(context.Background(), Message{
		To:       "cliente@example.com",
		Subject:  "Tu pedido",
		TextBody: "hola",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSendValidation(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	cases := []struct {
		name string
		msg  Message
	}{
		{"missing recipient", Message{Subject: "s", TextBody: "b"}},
		{"missing subject", Message{To: "a@b.c", TextBody: "b"}},
		{"missing body", Message{To: "a@b.c", Subject: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := client.Send(context.Background(), tc.msg); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(context.Background(), config.MailConfig{FromEmail: "x@y.z"}, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient(context.Background(), config.MailConfig{APIKey: "k"}, nil); err == nil {
		t.Fatal("expected error for missing from address")
	}
}
