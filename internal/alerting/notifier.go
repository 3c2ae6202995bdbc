package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// Notifier delivers alert payloads to a webhook, rate limited so a large
// evaluation run cannot flood the receiver. A Notifier with an empty URL
// is disabled and drops payloads silently.
type Notifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewNotifier builds a webhook notifier. ratePerSec bounds outbound
// deliveries; bursts of one keep ordering stable.
func NewNotifier(url string, ratePerSec float64) *Notifier {
	return &Notifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool { return n != nil && n.url != "" }

type webhookPayload struct {
	SubscriptionID int64           `json:"subscription_id"`
	UserRef        string          `json:"user_ref"`
	TenderID       string          `json:"tender_id"`
	Score          float64         `json:"score"`
	Level          model.RiskLevel `json:"level"`
	RuleType       string          `json:"rule_type"`
}

// Notify posts one alert to the webhook, honoring the rate limit.
func (n *Notifier) Notify(ctx context.Context, p webhookPayload) error {
	if !n.Enabled() {
		return nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "alerting: rate limit wait")
	}

	body, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "alerting: encode webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "alerting: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alerting: deliver webhook")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("alerting: webhook returned %d", resp.StatusCode)
	}
	return nil
}
