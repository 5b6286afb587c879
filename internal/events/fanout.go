package events

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/metrics"
)

type WebhookStore interface {
	ActiveWebhookConfigs(ctx context.Context) ([]models.WebhookConfig, error)
}

// FanoutConfig tunes outbound delivery.
type FanoutConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// Fanout POSTs a delivery to every matching active webhook. Each target is
// independent; failures are logged and counted, never retried.
type Fanout struct {
	store       WebhookStore
	client      *http.Client
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// DeliveryResult records the outcome for one webhook.
type DeliveryResult struct {
	WebhookID  int64
	URL        string
	StatusCode int
	Err        error
}

func (r DeliveryResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

func NewFanout(store WebhookStore, logger *slog.Logger, m *metrics.Metrics, cfg *FanoutConfig) *Fanout {
	timeout := 5 * time.Second
	concurrency := 8
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
	}

	return &Fanout{
		store:       store,
		client:      &http.Client{Transport: transport, Timeout: timeout},
		concurrency: concurrency,
		logger:      logger,
		metrics:     m,
	}
}

// Deliver sends d to every matching webhook and waits for all attempts.
// The returned error covers only loading the webhook configs.
func (f *Fanout) Deliver(ctx context.Context, d Delivery) ([]DeliveryResult, error) {
	configs, err := f.store.ActiveWebhookConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load webhook configs: %w", err)
	}

	var targets []models.WebhookConfig
	for i := range configs {
		if Matches(&configs[i], d.Event.Type, d.ActorRoles) {
			targets = append(targets, configs[i])
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	body, err := EncodePayload(d)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	results := make([]DeliveryResult, len(targets))
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.concurrency)

	for i, cfg := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, cfg models.WebhookConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = f.post(ctx, cfg, d.Event.Type, body)
		}(i, cfg)
	}

	wg.Wait()
	return results, nil
}

func (f *Fanout) post(ctx context.Context, cfg models.WebhookConfig, eventType string, body []byte) DeliveryResult {
	start := time.Now()
	res := DeliveryResult{WebhookID: cfg.ID, URL: cfg.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		res.Err = err
		f.record(res, eventType, time.Since(start))
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Flow-Webhooks/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		res.Err = err
		f.record(res, eventType, time.Since(start))
		return res
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	res.StatusCode = resp.StatusCode
	f.record(res, eventType, time.Since(start))
	return res
}

func (f *Fanout) record(res DeliveryResult, eventType string, d time.Duration) {
	if res.OK() {
		f.metrics.WebhookDelivered(eventType, metrics.ResultDelivered, d)
		f.logger.Debug("webhook delivered",
			"webhook_id", res.WebhookID,
			"event_type", eventType,
			"status", res.StatusCode,
			"duration", d,
		)
		return
	}

	f.metrics.WebhookDelivered(eventType, metrics.ResultFailed, d)
	attrs := []any{
		"webhook_id", res.WebhookID,
		"url", res.URL,
		"event_type", eventType,
		"duration", d,
	}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	} else {
		attrs = append(attrs, "status", res.StatusCode)
	}
	f.logger.Warn("webhook delivery failed", attrs...)
}
