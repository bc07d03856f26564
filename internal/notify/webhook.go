// Package notify delivers break reminders and idle prompts to the user.
// Notifications are best-effort: delivery happens on a separate goroutine
// and failures are logged, never returned to the tick path.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Notification is the payload posted to the configured webhook.
type Notification struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts notifications to a webhook URL. With an empty URL or
// notifications disabled it degrades to log-only.
type Notifier struct {
	enabled    bool
	webhookURL string
	httpClient *http.Client
}

func New(enabled bool, webhookURL, proxyURL string) *Notifier {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		if proxyParsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyParsed)
		}
	}

	return &Notifier{
		enabled:    enabled,
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
	}
}

// Notify sends a notification without blocking the caller.
func (n *Notifier) Notify(kind, title, message string) {
	if !n.enabled {
		return
	}

	slog.Info("notification", "kind", kind, "title", title, "message", message)

	if n.webhookURL == "" {
		return
	}

	payload := Notification{
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}

	go func() {
		if err := n.post(payload); err != nil {
			slog.Warn("webhook delivery failed", "kind", kind, "error", err)
		}
	}()
}

func (n *Notifier) post(payload Notification) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
