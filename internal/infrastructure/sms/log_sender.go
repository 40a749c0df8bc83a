package sms

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// LogSender only logs messages. It is used when no gateway key is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

var _ ports.SMSSender = (*LogSender)(nil)

func (s *LogSender) Send(_ context.Context, mobile, message string) error {
	s.log.Info().Str("mobile", mobile).Str("message", message).Msg("sms (not sent, no gateway configured)")
	return nil
}

// New returns the Fast2SMS sender when apiKey is set and a LogSender
// otherwise, warning once about the missing key.
func New(apiKey, baseURL string, log zerolog.Logger) ports.SMSSender {
	if apiKey == "" {
		log.Warn().Msg("FAST2SMS_API_KEY not set, sms will only be logged")
		return NewLogSender(log)
	}
	return NewFast2SMS(apiKey, baseURL, log)
}
