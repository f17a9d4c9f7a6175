package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

func testWebhook(url string) *domain.Webhook {
	return &domain.Webhook{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Name:     "test-webhook",
		URL:      url,
		Secret:   "test-secret",
		Events:   []domain.EventType{domain.EventTaskCompleted},
		Headers:  map[string]string{"X-Custom": "custom-value"},
		RetryPolicy: domain.RetryPolicy{
			MaxAttempts: 3,
			RetryDelay:  time.Second,
			Timeout:     5 * time.Second,
		},
		IsActive: true,
	}
}

func testDelivery(webhookID uuid.UUID) *domain.Delivery {
	payload, _ := json.Marshal(map[string]any{
		"event_id":   uuid.New().String(),
		"event_type": "task.completed",
		"data":       map[string]any{"task": "build"},
	})
	return &domain.Delivery{
		ID:          uuid.New(),
		WebhookID:   webhookID,
		EventID:     uuid.New(),
		EventType:   domain.EventTaskCompleted,
		Payload:     payload,
		Status:      domain.DeliveryPending,
		Attempts:    0,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
}

func TestSender_Attempt(t *testing.T) {
	var gotHeaders http.Header
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	webhook := testWebhook(server.URL)
	delivery := testDelivery(webhook.ID)

	sender := NewSender()
	result := sender.Attempt(context.Background(), webhook, delivery)

	require.NoError(t, result.Err)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, http.StatusOK, *result.StatusCode)
	assert.Equal(t, "ok", result.Body)
	assert.Equal(t, OutcomeSuccess, result.Outcome())

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "custom-value", gotHeaders.Get("X-Custom"))
	assert.Equal(t, "task.completed", gotHeaders.Get("X-Hookline-Event"))
	assert.Equal(t, delivery.ID.String(), gotHeaders.Get("X-Hookline-Delivery"))

	signature := gotHeaders.Get("X-Hookline-Signature")
	require.NotEmpty(t, signature)
	assert.True(t, Verify(webhook.Secret, delivery.Payload, signature),
		"signature must verify against the exact bytes on the wire")
	assert.Equal(t, string(delivery.Payload), string(gotBody))
}

func TestSender_Attempt_FixedHeadersWin(t *testing.T) {
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Hookline-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := testWebhook(server.URL)
	webhook.Headers = map[string]string{"X-Hookline-Signature": "spoofed"}
	delivery := testDelivery(webhook.ID)

	result := NewSender().Attempt(context.Background(), webhook, delivery)

	require.NoError(t, result.Err)
	assert.NotEqual(t, "spoofed", gotSignature)
	assert.True(t, Verify(webhook.Secret, delivery.Payload, gotSignature))
}

func TestSender_Attempt_ConnectionRefused(t *testing.T) {
	webhook := testWebhook("http://127.0.0.1:1") // nothing listens here
	delivery := testDelivery(webhook.ID)

	result := NewSender().Attempt(context.Background(), webhook, delivery)

	assert.Error(t, result.Err)
	assert.Nil(t, result.StatusCode)
	assert.Equal(t, OutcomeRetryable, result.Outcome())
}

func TestSender_Attempt_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := testWebhook(server.URL)
	webhook.RetryPolicy.Timeout = 50 * time.Millisecond
	delivery := testDelivery(webhook.ID)

	result := NewSender().Attempt(context.Background(), webhook, delivery)

	require.Error(t, result.Err)
	assert.Nil(t, result.StatusCode)
	assert.Equal(t, OutcomeRetryable, result.Outcome())
}

func TestSender_Attempt_TruncatesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	webhook := testWebhook(server.URL)
	delivery := testDelivery(webhook.ID)

	result := NewSender().Attempt(context.Background(), webhook, delivery)

	require.NoError(t, result.Err)
	assert.Len(t, result.Body, maxResponseBytes)
	assert.Equal(t, OutcomeTerminal, result.Outcome())
}
