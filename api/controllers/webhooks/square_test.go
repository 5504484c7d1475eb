package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	squarewebhook "github.com/boticalabs/botica-backend/internal/webhooks/square"
)

const (
	testSigningSecret   = "whsec_test"
	testNotificationURL = "https://api.example.com/api/v1/webhooks/square"
)

type stubWebhookService struct {
	events []*squarewebhook.SquareWebhookEvent
	err    error
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type stubGuard struct {
	processed bool
	marked    []string
	deleted   []string
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	s.marked = append(s.marked, eventID)
	return s.processed, nil
}

func (s *stubGuard) Delete(ctx context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

type stubClient struct{}

func (stubClient) SigningSecret() string { return testSigningSecret }

func signPayload(payload string) string {
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte(testNotificationURL))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(payload, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set(squareSignatureHeader, signature)
	}
	return req
}

const paymentUpdatedPayload = `{
	"event_id": "evt-1",
	"type": "payment.updated",
	"data": {
		"type": "payment",
		"id": "sq-pay-1",
		"object": {
			"payment": {"id": "sq-pay-1", "status": "COMPLETED"}
		}
	}
}`

func TestSquareWebhookDispatchesSignedEvent(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{}
	handler := SquareWebhook(svc, stubClient{}, guard, testNotificationURL, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(paymentUpdatedPayload, signPayload(paymentUpdatedPayload)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.events) != 1 || svc.events[0].EventID != "evt-1" {
		t.Fatalf("expected event dispatched, got %+v", svc.events)
	}
	if len(guard.marked) != 1 || guard.marked[0] != "evt-1" {
		t.Fatalf("expected idempotency mark for evt-1, got %v", guard.marked)
	}
}

func TestSquareWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := SquareWebhook(svc, stubClient{}, &stubGuard{}, testNotificationURL, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(paymentUpdatedPayload, "not-a-signature"))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("service must not be called")
	}
}

func TestSquareWebhookRejectsMissingSignature(t *testing.T) {
	handler := SquareWebhook(&stubWebhookService{}, stubClient{}, &stubGuard{}, testNotificationURL, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(paymentUpdatedPayload, ""))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSquareWebhookSkipsReplayedEvent(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{processed: true}
	handler := SquareWebhook(svc, stubClient{}, guard, testNotificationURL, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(paymentUpdatedPayload, signPayload(paymentUpdatedPayload)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("replayed event must not reach the service")
	}
}

func TestSquareWebhookReleasesGuardOnHandlerFailure(t *testing.T) {
	svc := &stubWebhookService{err: context.DeadlineExceeded}
	guard := &stubGuard{}
	handler := SquareWebhook(svc, stubClient{}, guard, testNotificationURL, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(paymentUpdatedPayload, signPayload(paymentUpdatedPayload)))

	if resp.Code == http.StatusOK {
		t.Fatal("expected error response")
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "evt-1" {
		t.Fatalf("expected idempotency mark released, got %v", guard.deleted)
	}
}
