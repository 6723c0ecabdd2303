package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/harunaga/adpilot/internal/domain"
	"github.com/harunaga/adpilot/internal/warehouse"
)

// applyBatchSize caps how many approved records one apply-queued call
// drains.
const applyBatchSize = 500

// ApproveSuggestion moves a suggestion PENDING -> APPROVED.
func (o *Orchestrator) ApproveSuggestion(ctx context.Context, table, id, by string) error {
	return o.sink.TransitionStatus(ctx, table, id, domain.StatusPending, domain.StatusApproved, by)
}

// RejectSuggestion moves a suggestion PENDING -> REJECTED.
func (o *Orchestrator) RejectSuggestion(ctx context.Context, table, id, by string) error {
	return o.sink.TransitionStatus(ctx, table, id, domain.StatusPending, domain.StatusRejected, by)
}

// ApplyQueuedNegatives streams approved negative suggestions to the apply
// sink. Gated by the NEGATIVE_APPLY_ENABLED flag; per-record failures are
// written back and do not stop the drain.
func (o *Orchestrator) ApplyQueuedNegatives(ctx context.Context) (applied, failed int, err error) {
	if !o.flags.NegativeApplyEnabled {
		o.log.Info().Msg("negative apply disabled, skipping queue")
		return 0, 0, nil
	}
	executionID := uuid.NewString()

	queued, err := o.sink.ListNegativeSuggestions(ctx, domain.StatusApproved, applyBatchSize, 0)
	if err != nil {
		return 0, 0, err
	}
	for _, s := range queued {
		scope := s.AdGroupID
		if scope == "" {
			scope = s.CampaignID
		}
		applyErr := o.applier.AddNegative(ctx, executionID, scope, s.Query, s.MatchType)
		o.recordApply(ctx, warehouse.TableNegativeSuggestions, s.ID, "add_negative", applyErr)
		if applyErr != nil {
			failed++
		} else {
			applied++
		}
	}
	return applied, failed, nil
}

// ApplyQueuedPromotions streams approved auto-exact promotions to the apply
// sink as new exact keywords via set-bid on the promoted term.
func (o *Orchestrator) ApplyQueuedPromotions(ctx context.Context) (applied, failed int, err error) {
	if !o.flags.AutoExactApplyEnabled {
		o.log.Info().Msg("auto-exact apply disabled, skipping queue")
		return 0, 0, nil
	}
	executionID := uuid.NewString()

	queued, err := o.sink.ListPromotions(ctx, domain.StatusApproved, applyBatchSize, 0)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range queued {
		applyErr := o.applier.SetBid(ctx, executionID, p.AdGroupID+":"+p.Query, p.SuggestedBidJPY)
		o.recordApply(ctx, warehouse.TablePromotions, p.ID, "set_bid", applyErr)
		if applyErr != nil {
			failed++
		} else {
			applied++
		}
	}
	return applied, failed, nil
}

func (o *Orchestrator) recordApply(ctx context.Context, table, id, op string, applyErr error) {
	outcome := "ok"
	if applyErr != nil {
		outcome = "error"
		o.metrics.ApplyErrors.WithLabelValues(op, "apply").Inc()
	}
	o.metrics.ApplyCalls.WithLabelValues(op, outcome).Inc()
	if err := o.sink.MarkApplied(ctx, table, id, applyErr); err != nil {
		o.log.Warn().Err(err).Str("table", table).Str("id", id).Msg("apply bookkeeping failed")
	}
}
