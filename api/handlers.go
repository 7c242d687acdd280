package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"overwatch/api/middleware"
	"overwatch/api/ws"
	"overwatch/internal/alertbus"
	"overwatch/internal/apierr"
	"overwatch/internal/auth"
	"overwatch/internal/ingest"
	"overwatch/internal/store"
	"overwatch/pkg/shared"
)

// Handlers holds the dependencies every route needs, adapted from the
// teacher's Handlers struct — generalized from org/entity services to the
// pipeline, store, bus, and token service this domain needs.
type Handlers struct {
	pipeline *ingest.Pipeline
	store    *store.Store
	bus      *alertbus.Bus
	tokens   *auth.TokenService
}

func NewHandlers(pipeline *ingest.Pipeline, s *store.Store, bus *alertbus.Bus, tokens *auth.TokenService) *Handlers {
	return &Handlers{pipeline: pipeline, store: s, bus: bus, tokens: tokens}
}

// RegisterRoutes wires every operation from spec.md §4.7's table onto the
// mux, using Go 1.22+'s method+wildcard pattern routing (net/http, no
// router dependency — the same no-framework choice the teacher made).
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	authed := middleware.BearerAuth(h.tokens)

	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/v1/operators", authed(middleware.RequireAdmin(h.RegisterOperator)))
	mux.HandleFunc("POST /api/v1/auth", h.Authenticate)

	mux.HandleFunc("POST /api/v1/telemetry", authed(h.IngestTelemetry))
	mux.HandleFunc("GET /api/v1/flights", authed(h.ListFlights))

	mux.HandleFunc("POST /api/v1/regions", authed(middleware.RequireAdmin(h.CreateRegion)))
	mux.HandleFunc("POST /api/v1/regions/{id}/toggle", authed(middleware.RequireAdmin(h.ToggleRegion)))
	mux.HandleFunc("DELETE /api/v1/regions/{id}", authed(middleware.RequireAdmin(h.DeleteRegion)))
	mux.HandleFunc("GET /api/v1/regions", authed(h.ListRegions))
	mux.HandleFunc("GET /api/v1/regions/active", authed(h.ListActiveRegions))

	mux.HandleFunc("GET /api/v1/alerts", authed(h.ListAlerts))
	mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", authed(h.ResolveAlert))

	mux.HandleFunc("POST /api/v1/allowlist", authed(middleware.RequireAdmin(h.AddAllowlistEntry)))
	mux.HandleFunc("DELETE /api/v1/allowlist/{transponderID}", authed(middleware.RequireAdmin(h.RemoveAllowlistEntry)))
	mux.HandleFunc("GET /api/v1/allowlist", authed(h.ListAllowlist))

	mux.HandleFunc("GET /api/v1/subscribe", authed(h.Subscribe))
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := shared.HealthStatus{
		Status:    "healthy",
		Service:   "overwatch",
		Timestamp: time.Now().UTC(),
		Details:   make(map[string]string),
	}

	if err := h.store.Ping(); err != nil {
		health.Status = "unhealthy"
		health.Details["store"] = "unhealthy: " + err.Error()
	} else {
		health.Details["store"] = "healthy"
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	sendSuccess(w, statusCode, health)
}

func (h *Handlers) RegisterOperator(w http.ResponseWriter, r *http.Request) {
	var req shared.RegisterOperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(w, apierr.InvalidTelemetry("malformed request body"))
		return
	}
	if req.Role == "" {
		req.Role = shared.RoleAnalyst
	}

	hash, err := auth.HashCredential(req.Credential)
	if err != nil {
		sendErr(w, err)
		return
	}

	operator, err := h.store.CreateOperator(req.Email, req.Role, hash)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusCreated, operator)
}

func (h *Handlers) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req shared.AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(w, apierr.InvalidTelemetry("malformed request body"))
		return
	}

	operator, hash, err := h.store.GetOperatorByEmail(req.Email)
	if err != nil {
		sendErr(w, err)
		return
	}
	if err := auth.VerifyCredential(hash, req.Credential); err != nil {
		sendErr(w, err)
		return
	}

	token, err := h.tokens.Issue(operator)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, shared.AuthenticateResponse{Token: token, Role: operator.Role})
}

func (h *Handlers) IngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var req shared.TelemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(w, apierr.InvalidTelemetry("malformed request body"))
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), req)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusCreated, result.Flight)
}

func (h *Handlers) ListFlights(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)
	flights, err := h.pipeline.ListRecentFlights(limit)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, flights)
}

func (h *Handlers) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var req shared.CreateRegionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(w, apierr.InvalidTelemetry("malformed request body"))
		return
	}

	region, err := h.pipeline.CreateRegion(req)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusCreated, region)
}

func (h *Handlers) ToggleRegion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendErr(w, apierr.NotFound("invalid region id"))
		return
	}
	region, err := h.pipeline.ToggleRegion(id)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, region)
}

func (h *Handlers) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendErr(w, apierr.NotFound("invalid region id"))
		return
	}
	if err := h.pipeline.DeleteRegion(id); err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, map[string]string{"message": "region deleted"})
}

func (h *Handlers) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.pipeline.ListRegions()
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, regions)
}

func (h *Handlers) ListActiveRegions(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, http.StatusOK, h.pipeline.ActiveRegions())
}

func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)
	var resolved *bool
	if v := r.URL.Query().Get("resolved"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			resolved = &b
		}
	}
	alerts, err := h.pipeline.ListRecentAlerts(resolved, limit)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, alerts)
}

func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendErr(w, apierr.NotFound("invalid alert id"))
		return
	}

	var resolvedBy int64
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		resolvedBy = claims.OperatorID
	}

	if err := h.pipeline.ResolveAlert(id, resolvedBy); err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, map[string]string{"message": "alert resolved"})
}

func (h *Handlers) AddAllowlistEntry(w http.ResponseWriter, r *http.Request) {
	var req shared.AllowlistEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(w, apierr.InvalidTelemetry("malformed request body"))
		return
	}
	entry, err := h.store.AddAllowlistEntry(req.TransponderID, req.Description)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusCreated, entry)
}

func (h *Handlers) RemoveAllowlistEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveAllowlistEntry(r.PathValue("transponderID")); err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, map[string]string{"message": "allowlist entry removed"})
}

func (h *Handlers) ListAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListAllowlist()
	if err != nil {
		sendErr(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, entries)
}

// Subscribe opens the push channel (spec.md §4.7). Auth has already run via
// the bearer middleware on the initial handshake, matching "401 on token
// expiry" being a pre-upgrade check.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	ws.Serve(h.bus, w, r)
}

func queryLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(shared.Response{Success: true, Data: data})
}

func sendErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apierr.StatusCode(err))
	json.NewEncoder(w).Encode(shared.Response{
		Success: false,
		Error:   &shared.Error{Code: apierr.Code(err), Message: err.Error()},
	})
}
