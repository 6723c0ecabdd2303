package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harunaga/adpilot/internal/apperr"
	"github.com/harunaga/adpilot/internal/backtest"
	"github.com/harunaga/adpilot/internal/domain"
)

// ErrStatusConflict marks a lost conditional status update: the row moved
// out of the expected status between read and write.
var ErrStatusConflict = errors.New("status conflict")

// ErrNotFound marks a missing row.
var ErrNotFound = errors.New("not found")

// Sink is the write side of the warehouse. Recommendation tables are
// append-only; status transitions are the only updates and are conditional.
type Sink interface {
	SaveBidRecommendations(ctx context.Context, recs []domain.BidRecommendation) error
	SaveBudgetRecommendations(ctx context.Context, recs []domain.BudgetRecommendation) error
	SaveNegativeSuggestions(ctx context.Context, recs []domain.NegativeKeywordSuggestion) error
	SavePromotions(ctx context.Context, recs []domain.AutoExactPromotionSuggestion) error
	SaveLifecycleTransitions(ctx context.Context, recs []domain.LifecycleTransitionRecord) error
	SavePlacementRecommendations(ctx context.Context, recs []domain.PlacementRecommendation) error
	SaveBacktestResult(ctx context.Context, res backtest.Result) error

	ListNegativeSuggestions(ctx context.Context, status domain.RecommendationStatus, limit, offset int) ([]domain.NegativeKeywordSuggestion, error)
	ListPromotions(ctx context.Context, status domain.RecommendationStatus, limit, offset int) ([]domain.AutoExactPromotionSuggestion, error)
	ListBacktestResults(ctx context.Context, limit, offset int) ([]backtest.Result, error)
	GetBacktestResult(ctx context.Context, executionID string) (backtest.Result, error)

	TransitionStatus(ctx context.Context, table, id string, from, to domain.RecommendationStatus, by string) error
	MarkApplied(ctx context.Context, table, id string, applyErr error) error

	UpdateStrategyStage(ctx context.Context, asin string, from, to domain.LifecycleStage) error
	IncrementInvestExtension(ctx context.Context, asin string) error
}

// Record tables addressable by status transitions and apply bookkeeping.
const (
	TableBidRecommendations    = "bid_recommendations"
	TableBudgetRecommendations = "budget_recommendations"
	TableNegativeSuggestions   = "negative_suggestions"
	TablePromotions            = "auto_exact_promotions"
	TableLifecycleTransitions  = "lifecycle_transitions"
	TablePlacements            = "placement_recommendations"
)

var recordTables = map[string]bool{
	TableBidRecommendations:    true,
	TableBudgetRecommendations: true,
	TableNegativeSuggestions:   true,
	TablePromotions:            true,
	TableLifecycleTransitions:  true,
	TablePlacements:            true,
}

// SQLSink implements Sink over sqlx.
type SQLSink struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ Sink = (*SQLSink)(nil)

func (s *SQLSink) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &apperr.SinkError{Sink: "warehouse", Op: op, Err: err}
}

// insertBatch runs one insert per record inside a transaction.
func (s *SQLSink) insertBatch(ctx context.Context, op, query string, n int, bind func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.wrap(op, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(query))
	if err != nil {
		return s.wrap(op, fmt.Errorf("prepare: %w", err))
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, bind(i)...); err != nil {
			return s.wrap(op, fmt.Errorf("insert row %d: %w", i, err))
		}
	}
	return s.wrap(op, tx.Commit())
}

// SaveBidRecommendations appends bid-engine output rows.
func (s *SQLSink) SaveBidRecommendations(ctx context.Context, recs []domain.BidRecommendation) error {
	query := `
		INSERT INTO bid_recommendations
		  (id, execution_id, status, dry_run, created_at, date,
		   keyword_id, keyword, campaign_id, ad_group_id, asin, role, stage,
		   action, reason_code, reason_detail,
		   current_bid_jpy, new_bid_jpy, old_bid_jpy, change_rate,
		   clipped, clip_reason, guardrail_hit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.insertBatch(ctx, "save_bid_recommendations", query, len(recs), func(i int) []interface{} {
		r := recs[i]
		return []interface{}{
			r.ID, r.ExecutionID, r.Status, r.DryRun, r.CreatedAt, r.CreatedAt.Format("2006-01-02"),
			r.KeywordID, r.Keyword, r.CampaignID, r.AdGroupID, r.ASIN, r.Role, r.Stage,
			r.Action, r.ReasonCode, r.ReasonDetail,
			r.CurrentBidJPY, r.NewBidJPY, r.CurrentBidJPY, r.ChangeRate,
			r.Clipped, r.ClipReason, r.GuardrailHit,
		}
	})
}

// SaveBudgetRecommendations appends budget-engine output rows.
func (s *SQLSink) SaveBudgetRecommendations(ctx context.Context, recs []domain.BudgetRecommendation) error {
	query := `
		INSERT INTO budget_recommendations
		  (id, execution_id, status, dry_run, created_at,
		   campaign_id, campaign_name, action, reason_code, reason_detail,
		   current_budget_jpy, new_budget_jpy, clipped, clip_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.insertBatch(ctx, "save_budget_recommendations", query, len(recs), func(i int) []interface{} {
		r := recs[i]
		return []interface{}{
			r.ID, r.ExecutionID, r.Status, r.DryRun, r.CreatedAt,
			r.CampaignID, r.CampaignName, r.Action, r.ReasonCode, r.ReasonDetail,
			r.CurrentBudgetJPY, r.NewBudgetJPY, r.Clipped, r.ClipReason,
		}
	})
}

// SaveNegativeSuggestions appends negative-judger output rows.
func (s *SQLSink) SaveNegativeSuggestions(ctx context.Context, recs []domain.NegativeKeywordSuggestion) error {
	query := `
		INSERT INTO negative_suggestions
		  (id, execution_id, status, dry_run, created_at,
		   asin, campaign_id, ad_group_id, query, cluster_key, intent, phase,
		   verdict, reason_code, reason_detail, match_type,
		   clicks, conversions, spend_jpy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.insertBatch(ctx, "save_negative_suggestions", query, len(recs), func(i int) []interface{} {
		r := recs[i]
		return []interface{}{
			r.ID, r.ExecutionID, r.Status, r.DryRun, r.CreatedAt,
			r.ASIN, r.CampaignID, r.AdGroupID, r.Query, r.ClusterKey, r.Intent, r.Phase,
			r.Verdict, r.ReasonCode, r.ReasonDetail, r.MatchType,
			r.Clicks, r.Conversions, r.SpendJPY,
		}
	})
}

// SavePromotions appends auto-exact promotion rows.
func (s *SQLSink) SavePromotions(ctx context.Context, recs []domain.AutoExactPromotionSuggestion) error {
	query := `
		INSERT INTO auto_exact_promotions
		  (id, execution_id, status, dry_run, created_at,
		   asin, campaign_id, ad_group_id, query, reason_code, reason_detail,
		   conversions, cvr, acos, suggested_bid_jpy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.insertBatch(ctx, "save_promotions", query, len(recs), func(i int) []interface{} {
		r := recs[i]
		return []interface{}{
			r.ID, r.ExecutionID, r.Status, r.DryRun, r.CreatedAt,
			r.ASIN, r.CampaignID, r.AdGroupID, r.Query, r.ReasonCode, r.ReasonDetail,
			r.Conversions, r.Cvr, r.Acos, r.SuggestedBidJPY,
		}
	})
}

// SaveLifecycleTransitions appends lifecycle-engine output rows.
func (s *SQLSink) SaveLifecycleTransitions(ctx context.Context, recs []domain.LifecycleTransitionRecord) error {
	query := `
		INSERT INTO lifecycle_transitions
		  (id, execution_id, status, dry_run, created_at,
		   asin, from_stage, to_stage, should_transition, reason,
		   force_harvest, is_emergency_exit, extension_granted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.insertBatch(ctx, "save_lifecycle_transitions", query, len(recs), func(i int) []interface{} {
		r := recs[i]
		return []interface{}{
			r.ID, r.ExecutionID, r.Status, r.DryRun, r.CreatedAt,
			r.ASIN, r.FromStage, r.ToStage, r.ShouldTransition, r.Reason,
			r.ForceHarvest, r.IsEmergencyExit, r.ExtensionGranted,
		}
	})
}

// SavePlacementRecommendations appends placement-engine output rows.
func (s *SQLSink) SavePlacementRecommendations(ctx context.Context, recs []domain.PlacementRecommendation) error {
	query := `
		INSERT INTO placement_recommendations
		  (id, execution_id, status, dry_run, created_at,
		   campaign_id, action, reason_detail, current_percent, new_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.insertBatch(ctx, "save_placement_recommendations", query, len(recs), func(i int) []interface{} {
		r := recs[i]
		return []interface{}{
			r.ID, r.ExecutionID, r.Status, r.DryRun, r.CreatedAt,
			r.CampaignID, r.Action, r.ReasonDetail, r.CurrentPercent, r.NewPercent,
		}
	})
}

// SaveBacktestResult stores the full result as a JSON document keyed by
// execution id.
func (s *SQLSink) SaveBacktestResult(ctx context.Context, res backtest.Result) error {
	blob, err := json.Marshal(res)
	if err != nil {
		return s.wrap("save_backtest_result", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO backtest_results (execution_id, generated_at, result)
		VALUES (?, ?, ?)`),
		res.Meta.ExecutionID, res.Meta.GeneratedAt, blob)
	return s.wrap("save_backtest_result", err)
}

// ListNegativeSuggestions pages suggestions, optionally filtered by status.
func (s *SQLSink) ListNegativeSuggestions(ctx context.Context, status domain.RecommendationStatus, limit, offset int) ([]domain.NegativeKeywordSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, execution_id, status, dry_run, created_at,
		       asin, campaign_id, ad_group_id, query, cluster_key, intent, phase,
		       verdict, reason_code, reason_detail, match_type,
		       clicks, conversions, spend_jpy
		FROM negative_suggestions`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, execution_id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var out []domain.NegativeKeywordSuggestion
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...)
	return out, s.wrap("list_negative_suggestions", err)
}

// ListPromotions pages promotion suggestions, optionally filtered by status.
func (s *SQLSink) ListPromotions(ctx context.Context, status domain.RecommendationStatus, limit, offset int) ([]domain.AutoExactPromotionSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, execution_id, status, dry_run, created_at,
		       asin, campaign_id, ad_group_id, query, reason_code, reason_detail,
		       conversions, cvr, acos, suggested_bid_jpy
		FROM auto_exact_promotions`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, execution_id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var out []domain.AutoExactPromotionSuggestion
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...)
	return out, s.wrap("list_promotions", err)
}

// ListBacktestResults pages stored backtest documents, newest first.
func (s *SQLSink) ListBacktestResults(ctx context.Context, limit, offset int) ([]backtest.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var blobs [][]byte
	err := s.db.SelectContext(ctx, &blobs, s.db.Rebind(`
		SELECT result FROM backtest_results
		ORDER BY generated_at DESC, execution_id DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, s.wrap("list_backtest_results", err)
	}
	out := make([]backtest.Result, 0, len(blobs))
	for _, b := range blobs {
		var res backtest.Result
		if err := json.Unmarshal(b, &res); err != nil {
			return nil, s.wrap("list_backtest_results", err)
		}
		out = append(out, res)
	}
	return out, nil
}

// GetBacktestResult loads one stored backtest document.
func (s *SQLSink) GetBacktestResult(ctx context.Context, executionID string) (backtest.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var blob []byte
	err := s.db.GetContext(ctx, &blob, s.db.Rebind(`
		SELECT result FROM backtest_results WHERE execution_id = ?`), executionID)
	if errors.Is(err, sql.ErrNoRows) {
		return backtest.Result{}, ErrNotFound
	}
	if err != nil {
		return backtest.Result{}, s.wrap("get_backtest_result", err)
	}
	var res backtest.Result
	if err := json.Unmarshal(blob, &res); err != nil {
		return backtest.Result{}, s.wrap("get_backtest_result", err)
	}
	return res, nil
}

// TransitionStatus moves a suggestion between statuses with an optimistic
// conditional write. Zero rows affected means the row was not in `from`.
func (s *SQLSink) TransitionStatus(ctx context.Context, table, id string, from, to domain.RecommendationStatus, by string) error {
	if !recordTables[table] {
		return s.wrap("transition_status", fmt.Errorf("unknown table %q", table))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var query string
	switch to {
	case domain.StatusApproved:
		query = `UPDATE ` + table + ` SET status = ?, approved_at = ?, approved_by = ? WHERE id = ? AND status = ?`
	case domain.StatusRejected:
		query = `UPDATE ` + table + ` SET status = ?, rejected_at = ?, rejected_by = ? WHERE id = ? AND status = ?`
	default:
		query = `UPDATE ` + table + ` SET status = ?, updated_at = ?, updated_by = ? WHERE id = ? AND status = ?`
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), to, time.Now().UTC(), by, id, from)
	if err != nil {
		return s.wrap("transition_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap("transition_status", err)
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// UpdateStrategyStage moves a product's lifecycle stage with the same
// optimistic predicate the status transitions use: zero rows affected means
// the product already left `from`.
func (s *SQLSink) UpdateStrategyStage(ctx context.Context, asin string, from, to domain.LifecycleStage) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE product_strategy SET stage = ?, stage_updated_at = ? WHERE asin = ? AND stage = ?`),
		to, time.Now().UTC(), asin, from)
	if err != nil {
		return s.wrap("update_strategy_stage", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap("update_strategy_stage", err)
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// IncrementInvestExtension adds one granted month to a product's invest
// window so the next lifecycle run sees it.
func (s *SQLSink) IncrementInvestExtension(ctx context.Context, asin string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE product_strategy SET invest_window_extension = invest_window_extension + 1 WHERE asin = ?`),
		asin)
	if err != nil {
		return s.wrap("increment_invest_extension", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap("increment_invest_extension", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkApplied records the outcome of an apply-sink call on one record.
func (s *SQLSink) MarkApplied(ctx context.Context, table, id string, applyErr error) error {
	if !recordTables[table] {
		return s.wrap("mark_applied", fmt.Errorf("unknown table %q", table))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var res sql.Result
	var err error
	if applyErr == nil {
		res, err = s.db.ExecContext(ctx, s.db.Rebind(
			`UPDATE `+table+` SET status = ?, is_applied = ?, applied_at = ? WHERE id = ?`),
			domain.StatusApplied, true, time.Now().UTC(), id)
	} else {
		res, err = s.db.ExecContext(ctx, s.db.Rebind(
			`UPDATE `+table+` SET is_applied = ?, apply_error = ? WHERE id = ?`),
			false, applyErr.Error(), id)
	}
	if err != nil {
		return s.wrap("mark_applied", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap("mark_applied", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
