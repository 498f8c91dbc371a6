// Package webhook posts signup notifications to an operator-configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/authhub/internal/model"
)

const postTimeout = 10 * time.Second

// Notifier delivers signup events. Delivery is best-effort: a failed or slow
// webhook must never fail the signup that triggered it, so callers invoke
// NotifySignup from a goroutine and outcomes are only logged.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New returns a Notifier posting to url. An empty url disables delivery.
func New(url string, logger *slog.Logger) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: postTimeout},
		logger: logger,
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

type signupPayload struct {
	Action  string             `json:"action"`
	Message string             `json:"message"`
	User    model.UserResponse `json:"user"`
}

// NotifySignup posts a "signup" event for the newly created user.
func (n *Notifier) NotifySignup(ctx context.Context, user *model.User) {
	if !n.Enabled() {
		return
	}

	payload := signupPayload{
		Action:  "signup",
		Message: fmt.Sprintf("New user signed up: %s", user.Name),
		User:    model.NewUserResponse(user),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("marshal webhook payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("build webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook delivery rejected", "status", resp.StatusCode)
		return
	}
	n.logger.Info("webhook delivered", "action", "signup", "user_id", user.ID)
}
