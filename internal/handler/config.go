package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/alert-dashboard/internal/apperror"
	"github.com/sakif/alert-dashboard/internal/auth"
	"github.com/sakif/alert-dashboard/internal/service"
)

// ConfigHandler exposes ConfigService over JSON. It only translates HTTP to
// service calls: parsing and validation of values happen in the service.
//
// Every route expects auth.RequireInitData to have run first; the identity is
// always taken from the request context, never from the URL or body.
type ConfigHandler struct {
	svc    *service.ConfigService
	logger *slog.Logger
}

func NewConfigHandler(svc *service.ConfigService, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{svc: svc, logger: logger}
}

// Routes returns the /api sub-router. The caller adds the auth and rate
// limit middleware and mounts it.
func (h *ConfigHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.HandleGetProfile)
	r.Put("/budget", h.HandleSetBudgets)

	r.Get("/alerts", h.HandleListAlerts)
	r.Put("/alerts/{ticker}", h.HandleUpsertAlert)
	r.Delete("/alerts/{ticker}", h.HandleDeleteAlert)

	r.Get("/dca", h.HandleListDca)
	r.Put("/dca/{ticker}", h.HandleUpsertDca)
	r.Delete("/dca/{ticker}", h.HandleDeleteDca)

	r.Get("/plan", h.HandleListPlan)
	r.Put("/plan/{ticker}", h.HandleUpsertPlanLine)
	r.Delete("/plan/{ticker}", h.HandleDeletePlanLine)

	r.Get("/priority", h.HandleGetPriority)
	r.Put("/priority", h.HandleSetPriority)

	return r
}

// identity pulls the verified caller out of the context. A missing identity
// means the route was mounted without RequireInitData; treat it as 401.
func (h *ConfigHandler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated(apperror.KindMissingInput, "valid Telegram initData required"))
		return auth.Identity{}, false
	}
	return id, true
}

// =========================================================================
// PROFILE & BUDGETS
// =========================================================================

// HandleGetProfile serves GET /api/me.
func (h *ConfigHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type budgetRequest struct {
	Weekly numberText `json:"weekly"`
	Dip    numberText `json:"dip"`
}

// HandleSetBudgets serves PUT /api/budget with {"weekly": 100, "dip": "50.5"}.
func (h *ConfigHandler) HandleSetBudgets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.SetBudgets(r.Context(), id, string(req.Weekly), string(req.Dip))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// =========================================================================
// ALERTS
// =========================================================================

func (h *ConfigHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	rules, err := h.svc.ListAlerts(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type alertRequest struct {
	DropPct numberText `json:"drop_pct"`
	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled"`
}

// HandleUpsertAlert serves PUT /api/alerts/{ticker} with
// {"drop_pct": 7.5, "enabled": true}.
func (h *ConfigHandler) HandleUpsertAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req alertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	enabled := req.Enabled == nil || *req.Enabled

	rule, err := h.svc.UpsertAlert(r.Context(), id, chi.URLParam(r, "ticker"), string(req.DropPct), enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *ConfigHandler) HandleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAlert(r.Context(), id, chi.URLParam(r, "ticker")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =========================================================================
// DCA
// =========================================================================

func (h *ConfigHandler) HandleListDca(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	rules, err := h.svc.ListDca(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type dcaRequest struct {
	Levels listText `json:"levels"`
}

// HandleUpsertDca serves PUT /api/dca/{ticker} with {"levels": "15:15 25:25"}.
func (h *ConfigHandler) HandleUpsertDca(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req dcaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	rule, err := h.svc.UpsertDca(r.Context(), id, chi.URLParam(r, "ticker"), string(req.Levels))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *ConfigHandler) HandleDeleteDca(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteDca(r.Context(), id, chi.URLParam(r, "ticker")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =========================================================================
// MONDAY PLAN
// =========================================================================

func (h *ConfigHandler) HandleListPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	plan, err := h.svc.ListMondayPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type planRequest struct {
	Amount numberText `json:"amount"`
}

func (h *ConfigHandler) HandleUpsertPlanLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.svc.UpsertMondayPlanLine(r.Context(), id, chi.URLParam(r, "ticker"), string(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ConfigHandler) HandleDeletePlanLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteMondayPlanLine(r.Context(), id, chi.URLParam(r, "ticker")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =========================================================================
// PRIORITY
// =========================================================================

type priorityResponse struct {
	Order []string `json:"order"`
}

func (h *ConfigHandler) HandleGetPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	order, err := h.svc.GetPriority(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priorityResponse{Order: order})
}

type priorityRequest struct {
	Order listText `json:"order"`
}

// HandleSetPriority serves PUT /api/priority with {"order": "nvda qqq"} or
// {"order": ["nvda", "qqq"]}.
func (h *ConfigHandler) HandleSetPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req priorityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.svc.SetPriority(r.Context(), id, string(req.Order))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priorityResponse{Order: order})
}
