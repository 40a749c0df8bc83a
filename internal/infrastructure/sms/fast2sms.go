// Package sms contains SMSSender implementations.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

const (
	DefaultFast2SMSURL = "https://www.fast2sms.com/dev/bulkV2"
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 64 << 10
)

// Fast2SMS sends messages through the Fast2SMS bulk API on the DLT route.
type Fast2SMS struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewFast2SMS(apiKey, baseURL string, log zerolog.Logger) *Fast2SMS {
	if baseURL == "" {
		baseURL = DefaultFast2SMSURL
	}
	return &Fast2SMS{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		log:     log,
	}
}

var _ ports.SMSSender = (*Fast2SMS)(nil)

type fast2smsResponse struct {
	Return    bool   `json:"return"`
	RequestID string `json:"request_id"`
	Message   any    `json:"message"`
}

// Send delivers one message. Transport and gateway failures are reported as
// domain.ErrUnavailable so the dispatcher retries them.
func (s *Fast2SMS) Send(ctx context.Context, mobile, message string) error {
	q := url.Values{}
	q.Set("authorization", s.apiKey)
	q.Set("route", "dlt")
	q.Set("message", message)
	q.Set("numbers", mobile)
	q.Set("flash", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("fast2sms: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Unavailable("fast2sms", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Unavailable("fast2sms: read response", err)
	}
	var out fast2smsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.Unavailable("fast2sms", fmt.Errorf("status %d: undecodable response: %w", resp.StatusCode, err))
	}
	if resp.StatusCode != http.StatusOK || !out.Return {
		return domain.Unavailable("fast2sms", fmt.Errorf("status %d: %v", resp.StatusCode, out.Message))
	}
	s.log.Debug().Str("request_id", out.RequestID).Msg("sms accepted by gateway")
	return nil
}
