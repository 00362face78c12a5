package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mohitkumar/funnel/logger"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var _ Gateway = new(WebhookGateway)

type WebhookConfig struct {
	// Url is used when the message does not carry its own webhook.
	Url            string
	Timeout        time.Duration
	MaxElapsedTime time.Duration
	FailureRatio   float64
	OpenTimeout    time.Duration
}

// WebhookGateway posts messages as JSON to the provider webhook. Transient
// failures are retried with exponential backoff, repeated failures open a
// circuit breaker so a dead provider does not stall every session.
type WebhookGateway struct {
	conf    WebhookConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[bool]
}

func NewWebhookGateway(conf WebhookConfig) *WebhookGateway {
	if conf.Timeout == 0 {
		conf.Timeout = 10 * time.Second
	}
	if conf.MaxElapsedTime == 0 {
		conf.MaxElapsedTime = 30 * time.Second
	}
	if conf.FailureRatio == 0 {
		conf.FailureRatio = 0.6
	}
	if conf.OpenTimeout == 0 {
		conf.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "channel-webhook",
		Timeout: conf.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= conf.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &WebhookGateway{
		conf:    conf,
		client:  &http.Client{Timeout: conf.Timeout},
		breaker: gobreaker.NewCircuitBreaker[bool](settings),
	}
}

func (g *WebhookGateway) SendMessage(ctx context.Context, msg Message) (bool, error) {
	url := msg.WebhookUrl
	if len(url) == 0 {
		url = g.conf.Url
	}
	if len(url) == 0 {
		return false, fmt.Errorf("%w: no webhook url", ErrNoChannelConfig)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return false, err
	}
	return g.breaker.Execute(func() (bool, error) {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = g.conf.MaxElapsedTime
		err := backoff.Retry(func() error {
			return g.post(ctx, url, body)
		}, backoff.WithContext(b, ctx))
		if err != nil {
			logger.Error("error delivering message to webhook", zap.String("to", msg.To), zap.String("flowId", msg.FlowId), zap.Error(err))
			return false, err
		}
		return true, nil
	})
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.code)
}

func (g *WebhookGateway) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return statusError{code: resp.StatusCode}
	}
	return backoff.Permanent(statusError{code: resp.StatusCode})
}
