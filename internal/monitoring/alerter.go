package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/header-mapper/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate AlertType = "mapping_failure_rate"
	AlertLatency     AlertType = "mapping_latency"
	AlertUploads     AlertType = "upload_failures"
)

// minFinished is the number of completed requests below which the failure
// rate is too noisy to alert on.
const minFinished = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	window := snap.Window.Round(time.Second)

	finished := snap.Succeeded + snap.Failed
	if finished >= minFinished && a.cfg.FailureRateThreshold > 0 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Mapping failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %s)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, window,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"timeouts":     snap.Timeouts,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.LatencyThresholdSecs > 0 && snap.Requests > 0 && snap.AvgLatency > a.cfg.LatencyThresholdSecs {
		alerts = append(alerts, Alert{
			Type:     AlertLatency,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Mapping latency %.1fs exceeds threshold %.1fs over %d requests in last %s",
				snap.AvgLatency, a.cfg.LatencyThresholdSecs, snap.Requests, window,
			),
			Details: map[string]any{
				"avg_latency_secs": snap.AvgLatency,
				"threshold_secs":   a.cfg.LatencyThresholdSecs,
				"requests":         snap.Requests,
			},
			Timestamp: now,
		})
	}

	if snap.Uploads > 0 && snap.UploadsFailed == snap.Uploads && snap.Uploads >= minFinished {
		alerts = append(alerts, Alert{
			Type:     AlertUploads,
			Severity: "medium",
			Message:  fmt.Sprintf("All %d uploads failed to ingest in last %s", snap.Uploads, window),
			Details: map[string]any{
				"uploads": snap.Uploads,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
