package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/harunaga/adpilot/internal/apperr"
	"github.com/harunaga/adpilot/internal/backtest"
	"github.com/harunaga/adpilot/internal/domain"
	"github.com/harunaga/adpilot/internal/orchestrator"
	"github.com/harunaga/adpilot/internal/warehouse"
)

// backtestMaxRangeDays caps one replay window.
const backtestMaxRangeDays = 365

// Control is the slice of the orchestrator the HTTP shell drives.
type Control interface {
	RunBid(ctx context.Context, opts orchestrator.Options) ([]domain.BidRecommendation, error)
	RunBudget(ctx context.Context, opts orchestrator.Options) ([]domain.BudgetRecommendation, error)
	RunPlacement(ctx context.Context, opts orchestrator.Options) ([]domain.PlacementRecommendation, error)
	RunLifecycle(ctx context.Context, opts orchestrator.Options) ([]domain.LifecycleTransitionRecord, error)
	RunNegative(ctx context.Context, opts orchestrator.Options) ([]domain.NegativeKeywordSuggestion, error)
	RunAutoExact(ctx context.Context, opts orchestrator.Options) ([]domain.AutoExactPromotionSuggestion, error)
	RunKeywordDiscovery(ctx context.Context, opts orchestrator.Options) ([]domain.AutoExactPromotionSuggestion, error)
	RunBacktest(ctx context.Context, p backtest.Params, dryRun bool) (backtest.Result, error)
	ApproveSuggestion(ctx context.Context, table, id, by string) error
	RejectSuggestion(ctx context.Context, table, id, by string) error
	ApplyQueuedNegatives(ctx context.Context) (applied, failed int, err error)
	ApplyQueuedPromotions(ctx context.Context) (applied, failed int, err error)
}

// Store is the read slice of the warehouse sink the GET endpoints use.
type Store interface {
	ListNegativeSuggestions(ctx context.Context, status domain.RecommendationStatus, limit, offset int) ([]domain.NegativeKeywordSuggestion, error)
	ListPromotions(ctx context.Context, status domain.RecommendationStatus, limit, offset int) ([]domain.AutoExactPromotionSuggestion, error)
	ListBacktestResults(ctx context.Context, limit, offset int) ([]backtest.Result, error)
	GetBacktestResult(ctx context.Context, executionID string) (backtest.Result, error)
}

// Handlers holds the route implementations.
type Handlers struct {
	orc   Control
	store Store
	hub   *Hub
	log   zerolog.Logger
}

// NewHandlers wires the handler set. hub may be nil (no live feed).
func NewHandlers(orc Control, store Store, hub *Hub, log zerolog.Logger) *Handlers {
	return &Handlers{orc: orc, store: store, hub: hub, log: log}
}

// runRequest is the shared cron POST body.
type runRequest struct {
	DryRun bool   `json:"dryRun"`
	Apply  bool   `json:"apply"`
	ASIN   string `json:"asin"`
}

// runResponse is the shared cron 200 body.
type runResponse struct {
	ExecutionID  string         `json:"executionId"`
	Engine       string         `json:"engine"`
	DryRun       bool           `json:"dryRun"`
	Records      int            `json:"records"`
	ActionCounts map[string]int `json:"actionCounts"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// NotFound is the JSON 404.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
}

// RunBid triggers the bid engine; mode overrides the configured default when
// the -normal / -smode route was hit.
func (h *Handlers) RunBid(mode domain.EngineMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRunRequest(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		recs, err := h.orc.RunBid(r.Context(), orchestrator.Options{
			DryRun: req.DryRun, Apply: req.Apply, ASIN: req.ASIN, Mode: mode,
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp := newRunResponse("bid", req.DryRun, len(recs))
		for i := range recs {
			resp.note(recs[i].ExecutionID, string(recs[i].Action))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RunBudget triggers the budget engine.
func (h *Handlers) RunBudget(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.orc.RunBudget(r.Context(), orchestrator.Options{DryRun: req.DryRun, Apply: req.Apply})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := newRunResponse("budget", req.DryRun, len(recs))
	for i := range recs {
		resp.note(recs[i].ExecutionID, string(recs[i].Action))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunPlacement triggers the top-of-search placement adjuster.
func (h *Handlers) RunPlacement(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.orc.RunPlacement(r.Context(), orchestrator.Options{DryRun: req.DryRun})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := newRunResponse("placement", req.DryRun, len(recs))
	for i := range recs {
		resp.note(recs[i].ExecutionID, recs[i].Action)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunAutoExact triggers the promotion engine. The shadow route forces a dry
// run regardless of the body.
func (h *Handlers) RunAutoExact(shadow bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRunRequest(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		dryRun := req.DryRun || shadow
		recs, err := h.orc.RunAutoExact(r.Context(), orchestrator.Options{DryRun: dryRun, ASIN: req.ASIN})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp := newRunResponse("auto_exact", dryRun, len(recs))
		for i := range recs {
			resp.note(recs[i].ExecutionID, recs[i].ReasonCode)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RunKeywordDiscovery surfaces relaxed promotion candidates; the candidates
// ride along in the response because nothing is persisted.
func (h *Handlers) RunKeywordDiscovery(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.orc.RunKeywordDiscovery(r.Context(), orchestrator.Options{DryRun: req.DryRun, ASIN: req.ASIN})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := newRunResponse("keyword_discovery", req.DryRun, len(recs))
	for i := range recs {
		resp.note(recs[i].ExecutionID, recs[i].ReasonCode)
	}
	writeJSON(w, http.StatusOK, struct {
		runResponse
		Candidates []domain.AutoExactPromotionSuggestion `json:"candidates"`
	}{resp, recs})
}

// RunNegative triggers the negative-keyword judger.
func (h *Handlers) RunNegative(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.orc.RunNegative(r.Context(), orchestrator.Options{DryRun: req.DryRun, ASIN: req.ASIN})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := newRunResponse("negative", req.DryRun, len(recs))
	for i := range recs {
		resp.note(recs[i].ExecutionID, string(recs[i].Verdict))
	}
	writeJSON(w, http.StatusOK, resp)
}

// LifecycleUpdate runs the stage machine and persists the transitions.
func (h *Handlers) LifecycleUpdate(w http.ResponseWriter, r *http.Request) {
	h.runLifecycle(w, r, false, "")
}

// LifecycleSuggestions runs the stage machine in dry-run and returns the
// would-be transitions.
func (h *Handlers) LifecycleSuggestions(w http.ResponseWriter, r *http.Request) {
	h.runLifecycle(w, r, true, "")
}

// LifecycleProductStage evaluates one product.
func (h *Handlers) LifecycleProductStage(w http.ResponseWriter, r *http.Request) {
	h.runLifecycle(w, r, false, mux.Vars(r)["id"])
}

func (h *Handlers) runLifecycle(w http.ResponseWriter, r *http.Request, forceDryRun bool, asin string) {
	req, err := decodeRunRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if asin == "" {
		asin = req.ASIN
	}
	dryRun := req.DryRun || forceDryRun
	recs, err := h.orc.RunLifecycle(r.Context(), orchestrator.Options{DryRun: dryRun, ASIN: asin})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := newRunResponse("lifecycle", dryRun, len(recs))
	for i := range recs {
		resp.note(recs[i].ExecutionID, string(recs[i].ToStage))
	}
	writeJSON(w, http.StatusOK, struct {
		runResponse
		Transitions []domain.LifecycleTransitionRecord `json:"transitions"`
	}{resp, recs})
}

// backtestRequest is the /backtest POST body.
type backtestRequest struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	ASIN        string  `json:"asin"`
	CampaignID  string  `json:"campaignId"`
	Granularity string  `json:"granularity"`
	MarginRate  float64 `json:"marginRate"`
	DryRun      bool    `json:"dryRun"`
}

// RunBacktest replays stored recommendations. The weekly route forces weekly
// aggregation.
func (h *Handlers) RunBacktest(weekly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backtestRequest
		if err := decodeBody(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
		p, err := req.params(weekly)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		res, err := h.orc.RunBacktest(r.Context(), p, req.DryRun)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (req backtestRequest) params(weekly bool) (backtest.Params, error) {
	var fields []apperr.FieldError
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		fields = append(fields, apperr.Field("from", "required date, format 2006-01-02"))
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		fields = append(fields, apperr.Field("to", "required date, format 2006-01-02"))
	}
	if len(fields) == 0 {
		if to.Before(from) {
			fields = append(fields, apperr.Field("to", "must not precede from"))
		} else if to.Sub(from) > backtestMaxRangeDays*24*time.Hour {
			fields = append(fields, apperr.Field("to", fmt.Sprintf("range exceeds %d days", backtestMaxRangeDays)))
		}
	}

	gran := domain.GranularityDaily
	if weekly || req.Granularity == string(domain.GranularityWeekly) {
		gran = domain.GranularityWeekly
	} else if req.Granularity != "" && req.Granularity != string(domain.GranularityDaily) {
		fields = append(fields, apperr.Field("granularity", "must be DAILY or WEEKLY"))
	}

	margin := req.MarginRate
	if margin == 0 {
		margin = 0.3
	}
	if margin < 0 || margin > 1 {
		fields = append(fields, apperr.Field("marginRate", "must be within [0, 1]"))
	}

	if len(fields) > 0 {
		return backtest.Params{}, apperr.NewValidation(fields...)
	}
	return backtest.Params{
		From:        from,
		To:          to,
		ASIN:        req.ASIN,
		CampaignID:  req.CampaignID,
		Granularity: gran,
		MarginRate:  margin,
	}, nil
}

// ListBacktests pages stored backtest results.
func (h *Handlers) ListBacktests(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	results, err := h.store.ListBacktestResults(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"executions": results, "limit": limit, "offset": offset})
}

// GetBacktest returns one stored result.
func (h *Handlers) GetBacktest(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetBacktestResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportBacktest streams one stored result as CSV.
func (h *Handlers) ExportBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := h.store.GetBacktestResult(r.Context(), id)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=backtest_%s.csv", id))
	if err := res.WriteCSV(w); err != nil {
		h.log.Warn().Err(err).Str("execution_id", id).Msg("csv export failed")
	}
}

// ListNegatives pages negative-keyword suggestions, optionally by status.
func (h *Handlers) ListNegatives(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.store.ListNegativeSuggestions(r.Context(), statusFilter(r), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": recs, "limit": limit, "offset": offset})
}

// ListPromotions pages auto-exact promotion suggestions.
func (h *Handlers) ListPromotions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.store.ListPromotions(r.Context(), statusFilter(r), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": recs, "limit": limit, "offset": offset})
}

type reviewRequest struct {
	By string `json:"by"`
}

func (h *Handlers) review(w http.ResponseWriter, r *http.Request, table string, approve bool) {
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.By == "" {
		req.By = "api"
	}
	id := mux.Vars(r)["id"]
	var err error
	if approve {
		err = h.orc.ApproveSuggestion(r.Context(), table, id, req.By)
	} else {
		err = h.orc.RejectSuggestion(r.Context(), table, id, req.By)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": reviewStatus(approve)})
}

func reviewStatus(approve bool) string {
	if approve {
		return string(domain.StatusApproved)
	}
	return string(domain.StatusRejected)
}

func (h *Handlers) ApproveNegative(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, warehouse.TableNegativeSuggestions, true)
}

func (h *Handlers) RejectNegative(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, warehouse.TableNegativeSuggestions, false)
}

func (h *Handlers) ApprovePromotion(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, warehouse.TablePromotions, true)
}

func (h *Handlers) RejectPromotion(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, warehouse.TablePromotions, false)
}

// ApplyQueuedNegatives drains approved negative suggestions to the ad
// platform.
func (h *Handlers) ApplyQueuedNegatives(w http.ResponseWriter, r *http.Request) {
	applied, failed, err := h.orc.ApplyQueuedNegatives(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"applied": applied, "failed": failed})
}

// ApplyQueuedPromotions drains approved promotions to the ad platform.
func (h *Handlers) ApplyQueuedPromotions(w http.ResponseWriter, r *http.Request) {
	applied, failed, err := h.orc.ApplyQueuedPromotions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"applied": applied, "failed": failed})
}

// ExecutionFeed upgrades to the live execution websocket.
func (h *Handlers) ExecutionFeed(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "execution feed disabled", http.StatusServiceUnavailable)
		return
	}
	h.hub.Serve(w, r)
}

func newRunResponse(engine string, dryRun bool, records int) runResponse {
	return runResponse{Engine: engine, DryRun: dryRun, Records: records, ActionCounts: make(map[string]int)}
}

// note folds one record into the response. Every record of a run carries the
// same execution id.
func (r *runResponse) note(executionID, action string) {
	r.ExecutionID = executionID
	r.ActionCounts[action]++
}

func decodeRunRequest(r *http.Request) (runRequest, error) {
	var req runRequest
	err := decodeBody(r, &req)
	return req, err
}

// decodeBody tolerates an empty body; malformed JSON is a validation error.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.NewValidation(apperr.Field("body", "malformed JSON"))
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = 50, 0
	var fields []apperr.FieldError
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 500 {
			fields = append(fields, apperr.Field("limit", "must be an integer within [1, 500]"))
		} else {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			fields = append(fields, apperr.Field("offset", "must be a non-negative integer"))
		} else {
			offset = v
		}
	}
	if len(fields) > 0 {
		return 0, 0, apperr.NewValidation(fields...)
	}
	return limit, offset, nil
}

func statusFilter(r *http.Request) domain.RecommendationStatus {
	return domain.RecommendationStatus(r.URL.Query().Get("status"))
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ve := apperr.AsValidation(err); ve != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": ve.Fields})
		return
	}
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run for this engine is already in progress"})
	case errors.Is(err, warehouse.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "suggestion is not in the expected status"})
	case errors.Is(err, warehouse.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.log.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
