package apply

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink is the shadow-mode sink: it records what would have been applied
// and always succeeds. Used whenever the per-engine apply flag is off.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink builds a shadow sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) SetBid(_ context.Context, keywordID string, newBidJPY int64) error {
	s.log.Info().Str("keyword_id", keywordID).Int64("new_bid_jpy", newBidJPY).Msg("shadow set-bid")
	return nil
}

func (s *LogSink) SetBudget(_ context.Context, campaignID string, newBudgetJPY int64) error {
	s.log.Info().Str("campaign_id", campaignID).Int64("new_budget_jpy", newBudgetJPY).Msg("shadow set-budget")
	return nil
}

func (s *LogSink) AddNegative(_ context.Context, scopeID, expression, matchType string) error {
	s.log.Info().Str("scope_id", scopeID).Str("expression", expression).
		Str("match_type", matchType).Msg("shadow add-negative")
	return nil
}
