package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/config"
)

// Alerter posts job failure alerts to a Slack, Discord or generic webhook.
type Alerter struct {
	url         string
	kind        string
	minFailures int
	client      *http.Client
	log         *zap.Logger

	mu          sync.Mutex
	consecutive map[string]int
}

// NewAlerter builds an alerter from configuration. With no webhook URL
// alerts are only logged.
func NewAlerter(cfg config.AlertConfig, log *zap.Logger) *Alerter {
	kind := cfg.WebhookType
	if kind == "" {
		// Auto-detect from URL
		switch {
		case strings.Contains(cfg.WebhookURL, "slack.com"):
			kind = "slack"
		case strings.Contains(cfg.WebhookURL, "discord.com"):
			kind = "discord"
		default:
			kind = "generic"
		}
	}
	threshold := cfg.MinFailures
	if threshold < 1 {
		threshold = 1
	}
	return &Alerter{
		url:         cfg.WebhookURL,
		kind:        kind,
		minFailures: threshold,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("alerting"),
		consecutive: make(map[string]int),
	}
}

// Enabled reports whether a webhook is configured.
func (a *Alerter) Enabled() bool { return a.url != "" }

// JobAlert describes one failed run of a scheduled job.
type JobAlert struct {
	JobName    string
	TotalTasks int
	Failures   []TaskFailure
	Duration   time.Duration
	Timestamp  time.Time
	// Consecutive counts failed runs in a row, this one included.
	Consecutive int
}

// TaskFailure is a single step of a job that returned an error.
type TaskFailure struct {
	Task  string `json:"task"`
	Error string `json:"error"`
}

// JobSucceeded resets the failure streak for job.
func (a *Alerter) JobSucceeded(job string) {
	a.mu.Lock()
	delete(a.consecutive, job)
	a.mu.Unlock()
}

// JobFailed records a failed run and sends an alert once the streak
// reaches the configured threshold.
func (a *Alerter) JobFailed(ctx context.Context, alert JobAlert) error {
	a.mu.Lock()
	a.consecutive[alert.JobName]++
	alert.Consecutive = a.consecutive[alert.JobName]
	a.mu.Unlock()

	if !a.Enabled() {
		a.log.Debug("alerting: alerts disabled, skipping", zap.String("job", alert.JobName))
		return nil
	}
	if alert.Consecutive < a.minFailures {
		a.log.Info("alerting: failures below threshold, skipping",
			zap.String("job", alert.JobName),
			zap.Int("failures", alert.Consecutive),
			zap.Int("threshold", a.minFailures))
		return nil
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	var (
		payload []byte
		err     error
	)
	switch a.kind {
	case "slack":
		payload, err = buildSlackPayload(alert)
	case "discord":
		payload, err = buildDiscordPayload(alert)
	default:
		payload, err = buildGenericPayload(alert)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	a.log.Info("alerting: sent job alert",
		zap.String("job", alert.JobName),
		zap.Int("failed_tasks", len(alert.Failures)))
	return nil
}

func failureList(alert JobAlert, bold string) string {
	var b strings.Builder
	for _, f := range alert.Failures {
		fmt.Fprintf(&b, "• %s%s%s: %s\n", bold, f.Task, bold, f.Error)
	}
	return b.String()
}

func buildSlackPayload(alert JobAlert) ([]byte, error) {
	emoji := ":warning:"
	if len(alert.Failures) == alert.TotalTasks {
		emoji = ":x:"
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Scheduled Job Alert: %s", emoji, alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%d/%d tasks failed", len(alert.Failures), alert.TotalTasks)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Failed runs in a row:*\n%d", alert.Consecutive)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Failed Tasks:*\n%s", failureList(alert, "*")),
				},
			},
		},
	}
	return json.Marshal(payload)
}

func buildDiscordPayload(alert JobAlert) ([]byte, error) {
	color := 16776960 // Yellow
	if len(alert.Failures) == alert.TotalTasks {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       fmt.Sprintf("Scheduled Job Alert: %s", alert.JobName),
				"description": fmt.Sprintf("%d/%d tasks failed", len(alert.Failures), alert.TotalTasks),
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Failed runs in a row", "value": fmt.Sprintf("%d", alert.Consecutive), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
					{"name": "Failed Tasks", "value": failureList(alert, "**"), "inline": false},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}
	return json.Marshal(payload)
}

func buildGenericPayload(alert JobAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":   "scheduled_job_failure",
		"job_name":     alert.JobName,
		"total_tasks":  alert.TotalTasks,
		"failed_tasks": len(alert.Failures),
		"consecutive":  alert.Consecutive,
		"duration_ms":  alert.Duration.Milliseconds(),
		"timestamp":    alert.Timestamp.Format(time.RFC3339),
		"failures":     alert.Failures,
	}
	return json.Marshal(payload)
}
