// Package scheduler talks to the external cron-trigger service that fires
// the notification webhook. It covers the two operations the registrar
// needs, creating and deleting recurring schedules, plus verification of
// the signatures the service attaches to its callbacks.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/pillwise/go-reminder-backend/internal/config"
)

// hhmmRE matches a zero-padded 24h "HH:MM" pair.
var hhmmRE = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// CronFromHHMM converts an "HH:MM" alert time into a daily cron spec
// ("MM HH * * *"). The pair is interpreted in whatever local timezone the
// trigger service enforces; no timezone conversion happens here.
func CronFromHHMM(t string) (string, error) {
	m := hhmmRE.FindStringSubmatch(t)
	if m == nil {
		return "", fmt.Errorf("scheduler: invalid alert time %q (want HH:MM)", t)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Client is the REST client for the trigger service.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client from configuration.
func NewClient(cfg config.SchedulerConfig) *Client {
	return &Client{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// createResponse is the service's schedule-creation reply.
type createResponse struct {
	ScheduleID string `json:"scheduleId"`
}

// Create registers a recurring schedule that POSTs payload to destination on
// every cron firing and returns the service-assigned schedule id.
func (c *Client) Create(ctx context.Context, cronSpec, destination string, payload []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v2/schedules/%s", c.baseURL, url.PathEscape(destination))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("scheduler: build create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Cron", cronSpec)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("scheduler: create schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("scheduler: create schedule: unexpected status %d", resp.StatusCode)
	}
	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("scheduler: decode create response: %w", err)
	}
	if out.ScheduleID == "" {
		return "", fmt.Errorf("scheduler: create schedule: empty schedule id")
	}
	return out.ScheduleID, nil
}

// Delete removes one schedule by id. Deleting an unknown id is not an error;
// the trigger set is reconciled by full replacement, so a 404 means the
// desired state already holds.
func (c *Client) Delete(ctx context.Context, scheduleID string) error {
	endpoint := fmt.Sprintf("%s/v2/schedules/%s", c.baseURL, url.PathEscape(scheduleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("scheduler: build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler: delete schedule %s: %w", scheduleID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("scheduler: delete schedule %s: unexpected status %d", scheduleID, resp.StatusCode)
	}
	return nil
}
