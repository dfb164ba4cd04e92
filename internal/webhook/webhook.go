package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// SignatureHeader carries the HMAC-SHA256 of the request body
const SignatureHeader = "X-Webhook-Signature"

// Notifier posts project status events to configured URLs
type Notifier struct {
	client *http.Client
	urls   []string
	secret string
	logger *logging.Logger
}

// NewNotifier creates a notifier. A nil client gets a 10 second timeout.
func NewNotifier(urls []string, secret string, client *http.Client, logger *logging.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		client: client,
		urls:   urls,
		secret: secret,
		logger: logger,
	}
}

// Notify delivers the event to every URL once. Failed deliveries are
// reported in the returned error and never retried.
func (n *Notifier) Notify(ctx context.Context, event string, status models.ProjectStatus) error {
	if len(n.urls) == 0 {
		return nil
	}

	payload, err := json.Marshal(models.WebhookEvent{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      status,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	deliveryID := uuid.New().String()
	errs := make([]error, len(n.urls))

	var g errgroup.Group
	for i, url := range n.urls {
		i, url := i, url
		g.Go(func() error {
			errs[i] = n.deliver(ctx, url, event, deliveryID, payload)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (n *Notifier) deliver(ctx context.Context, url, event, deliveryID string, payload []byte) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "OperaShorts-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.LogExternalCall("webhook", url, time.Since(start), err)
		return &failure.IntegrationFailure{Service: "webhook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := &failure.IntegrationFailure{
			Service:    "webhook",
			StatusCode: resp.StatusCode,
			Body:       failure.Truncate(string(body), failure.MaxResponseBodyLength),
		}
		n.logger.LogExternalCall("webhook", url, time.Since(start), err)
		return err
	}

	n.logger.LogExternalCall("webhook", url, time.Since(start), nil)
	return nil
}

// Sign returns the signature header value for payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature header value against payload
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
