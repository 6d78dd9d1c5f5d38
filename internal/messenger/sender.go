package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldtrack/tracker-be/internal/messenger/domain"
)

// sendRequest is the provider API payload for one text message
type sendRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// deliverMessage renders the template and posts it to the provider,
// retrying transient failures with a fixed delay
func (m *Messenger) deliverMessage(ctx context.Context, msg *domain.OutboundMessage) error {
	body, err := renderTemplate(msg.TemplateKey, msg.Language, m.defaultLanguage, msg.Variables)
	if err != nil {
		return err
	}

	req := sendRequest{To: msg.Recipient, Type: "text"}
	req.Text.Body = body

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}

	maxRetries := m.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(m.retryDelay):
			case <-ctx.Done():
				return domain.NewRetryableError(ctx.Err())
			}

			m.logger.Warn("Retrying message delivery",
				slog.String("message_id", msg.MessageID),
				slog.Int("attempt", attempt+1),
			)
		}

		lastErr = m.post(ctx, payload)
		if lastErr == nil {
			return nil
		}

		// Permanent provider rejections are not retried
		var retryable *domain.RetryableError
		if !errors.As(lastErr, &retryable) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, lastErr)
}

// post performs one HTTP call to the provider. Network errors and 5xx
// responses are retryable; 4xx responses are permanent.
func (m *Messenger) post(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return domain.NewRetryableError(fmt.Errorf("provider request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	providerErr := fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(respBody))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRetryableError(providerErr)
	}
	return providerErr
}
