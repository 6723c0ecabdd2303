// Package notify fans run summaries out to Slack. A run summary is one
// message per engine execution; notification failure never fails the run.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// RunSummary is the structured summary emitted after every engine run.
type RunSummary struct {
	Engine        string
	ExecutionID   string
	DryRun        bool
	Applied       bool
	RecordCount   int
	ActionCounts  map[string]int
	ApplyErrors   int
	DurationMs    int64
	WarningDetail string
}

// Notifier receives run summaries.
type Notifier interface {
	NotifyRun(ctx context.Context, s RunSummary) error
}

// Config holds the Slack wiring.
type Config struct {
	Token   string `yaml:"token" env:"SLACK_TOKEN"`
	Channel string `yaml:"channel" env:"SLACK_CHANNEL"`
	Enabled bool   `yaml:"enabled"`
}

// SlackNotifier posts summaries to one channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
	log     zerolog.Logger
}

// NewSlack builds a Slack notifier.
func NewSlack(cfg Config, log zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(cfg.Token),
		channel: cfg.Channel,
		log:     log,
	}
}

// NotifyRun posts one summary message.
func (n *SlackNotifier) NotifyRun(ctx context.Context, s RunSummary) error {
	mode := "apply"
	if s.DryRun {
		mode = "dry-run"
	} else if !s.Applied {
		mode = "shadow"
	}

	text := fmt.Sprintf("*%s* run `%s` (%s): %d records", s.Engine, s.ExecutionID, mode, s.RecordCount)
	fields := make([]slack.AttachmentField, 0, len(s.ActionCounts)+2)
	for action, count := range s.ActionCounts {
		fields = append(fields, slack.AttachmentField{Title: action, Value: fmt.Sprintf("%d", count), Short: true})
	}
	if s.ApplyErrors > 0 {
		fields = append(fields, slack.AttachmentField{Title: "apply errors", Value: fmt.Sprintf("%d", s.ApplyErrors), Short: true})
	}
	if s.WarningDetail != "" {
		fields = append(fields, slack.AttachmentField{Title: "warnings", Value: s.WarningDetail})
	}

	color := "good"
	if s.ApplyErrors > 0 {
		color = "warning"
	}
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAttachments(slack.Attachment{Color: color, Fields: fields}),
	)
	if err != nil {
		n.log.Warn().Err(err).Str("engine", s.Engine).Msg("slack notification failed")
	}
	return err
}

// NopNotifier drops summaries; used when Slack is not configured.
type NopNotifier struct{}

func (NopNotifier) NotifyRun(context.Context, RunSummary) error { return nil }

// Multi fans one summary out to every notifier. The first error is returned
// after all notifiers ran.
type Multi []Notifier

func (m Multi) NotifyRun(ctx context.Context, s RunSummary) error {
	var first error
	for _, n := range m {
		if err := n.NotifyRun(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FromConfig returns the Slack notifier when enabled, otherwise the nop.
func FromConfig(cfg Config, log zerolog.Logger) Notifier {
	if cfg.Enabled && cfg.Token != "" && cfg.Channel != "" {
		return NewSlack(cfg, log)
	}
	return NopNotifier{}
}
