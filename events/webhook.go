package events

import (
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookSink POSTs each event as JSON to a configured endpoint. Failures
// are logged and dropped; the primary operation already succeeded by the
// time an event reaches the sink.
type WebhookSink struct {
	URL    string
	client *resty.Client
}

func NewWebhookSink(url string) *WebhookSink {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0)
	return &WebhookSink{URL: url, client: client}
}

// Emit never blocks the caller; delivery happens on its own goroutine.
func (w *WebhookSink) Emit(event Event) {
	go w.post(event)
}

func (w *WebhookSink) post(event Event) {
	resp, err := w.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(w.URL)
	if err != nil {
		log.Printf("[EVENT] webhook delivery failed for %s (%s): %v", event.Type, event.ID, err)
		return
	}
	if resp.IsError() {
		log.Printf("[EVENT] webhook returned %d for %s (%s)", resp.StatusCode(), event.Type, event.ID)
	}
}
