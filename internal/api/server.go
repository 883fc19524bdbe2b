package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pulseapp/pulse/internal/ratelimit"
	"github.com/pulseapp/pulse/internal/service"
	"github.com/pulseapp/pulse/internal/whop"
)

// Authenticator resolves and authorizes platform user tokens
type Authenticator interface {
	VerifyUserToken(ctx context.Context, token string) (string, error)
	CheckCompanyAccess(ctx context.Context, userID, companyID string) (bool, error)
}

// userTokenHeader carries the Whop user token on dashboard requests
const userTokenHeader = "X-Whop-User-Token"

// webhookSecretHeader carries the shared webhook secret
const webhookSecretHeader = "X-Webhook-Secret"

// Options carries the static configuration the server needs
type Options struct {
	DefaultCompanyID string
	CronSecret       string
	WebhookSecret    string
}

// Server provides the HTTP JSON API
type Server struct {
	svc     *service.Service
	auth    Authenticator
	limiter *ratelimit.Limiter
	opts    Options
	logger  *logrus.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it
func NewServer(svc *service.Service, auth Authenticator, limiter *ratelimit.Limiter, opts Options, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, auth: auth, limiter: limiter, opts: opts, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server
func (s *Server) Handler() http.Handler {
	return s.withRequestContext(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/sync-members", s.handleSyncMembers)
	s.mux.HandleFunc("GET /api/sync-members", s.handleSyncStats)

	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/comparison", s.handleComparison)

	s.mux.HandleFunc("GET /api/cron/daily-snapshot", s.handleDailySnapshot)
	s.mux.HandleFunc("POST /api/webhooks/whop", s.handleWebhook)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, errMsg, message string) {
	s.respondJSON(w, status, envelope{Success: false, Error: errMsg, Message: message})
}

// companyID resolves the company from query or body value, falling back to
// the configured default. Empty means the request cannot be served.
func (s *Server) companyID(r *http.Request, bodyValue string) string {
	if bodyValue != "" {
		return bodyValue
	}
	if v := r.URL.Query().Get("companyId"); v != "" {
		return v
	}
	return s.opts.DefaultCompanyID
}

// ---------------------------------------------------------------------------
// Sync
// ---------------------------------------------------------------------------

type syncRequest struct {
	CompanyID string `json:"companyId"`
}

func (s *Server) handleSyncMembers(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil {
		// Body is optional; companyId may come from the query instead
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	companyID := s.companyID(r, req.CompanyID)
	if companyID == "" {
		s.respondError(w, http.StatusBadRequest, "missing_company", "companyId parameter is required")
		return
	}

	// Rate limit before anything expensive
	allowed, retryAfter, err := s.limiter.Allow(r.Context(), companyID)
	if err != nil {
		s.logger.WithError(err).Warn("rate limit store unavailable, allowing sync")
	}
	if !allowed {
		wait := int(math.Ceil(retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(wait))
		s.respondError(w, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("Please wait %d seconds before syncing again", wait))
		return
	}

	userID, ok := s.authorize(w, r, companyID)
	if !ok {
		return
	}

	// Visiting the sync button is itself member activity
	s.svc.TrackActivity(r.Context(), companyID, userID)

	start := time.Now()
	result := s.svc.SyncMembers(r.Context(), companyID)
	duration := time.Since(start)

	if err := s.limiter.Record(r.Context(), companyID); err != nil {
		s.logger.WithError(err).Warn("failed to record sync time")
	}

	stats, err := s.svc.Stats(r.Context(), companyID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load post-sync stats")
	}

	message := fmt.Sprintf("Successfully synced %d members", result.Count)
	if !result.Success {
		message = "Sync failed - check errors"
	}

	s.respondJSON(w, http.StatusOK, envelope{
		Success: result.Success,
		Message: message,
		Data: map[string]any{
			"synced_count":  result.Count,
			"skipped_count": result.Skipped,
			"duration_ms":   duration.Milliseconds(),
			"stats":         stats,
			"errors":        result.Errors,
		},
	})
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	companyID := s.companyID(r, "")
	if companyID == "" {
		s.respondError(w, http.StatusBadRequest, "missing_company", "companyId parameter is required")
		return
	}

	stats, err := s.svc.Stats(r.Context(), companyID)
	if err != nil {
		s.logger.WithError(err).Error("failed to get sync stats")
		s.respondError(w, http.StatusInternalServerError, "stats_failed", "Could not load sync stats")
		return
	}

	canSync, _, err := s.limiter.Allow(r.Context(), companyID)
	if err != nil {
		canSync = true
	}

	s.respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"stats":       stats,
			"can_sync":    canSync,
			"last_synced": stats.LastSynced,
		},
	})
}

// authorize verifies the user token and company access. It writes the error
// response itself; callers bail out when ok is false.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, companyID string) (userID string, ok bool) {
	userID, err := s.auth.VerifyUserToken(r.Context(), r.Header.Get(userTokenHeader))
	if err != nil {
		s.logger.WithError(err).Info("authentication failed")
		s.respondError(w, http.StatusUnauthorized, "authentication_required", "Invalid or missing token")
		return "", false
	}

	hasAccess, err := s.auth.CheckCompanyAccess(r.Context(), userID, companyID)
	if err != nil {
		s.logger.WithError(err).Error("access check failed")
		s.respondError(w, http.StatusForbidden, "access_check_failed", "Could not verify company access")
		return "", false
	}
	if !hasAccess {
		s.logger.Infof("user %s denied access to company %s", userID, companyID)
		s.respondError(w, http.StatusForbidden, "access_denied", "You don't have access to this company")
		return "", false
	}

	return userID, true
}

// ---------------------------------------------------------------------------
// History & comparison
// ---------------------------------------------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	companyID := s.companyID(r, "")
	if companyID == "" {
		s.respondError(w, http.StatusBadRequest, "missing_company", "companyId parameter is required")
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid_days", "days must be an integer")
			return
		}
		days = v
	}
	if days < 1 || days > 90 {
		s.respondError(w, http.StatusBadRequest, "invalid_days", "days must be between 1 and 90")
		return
	}

	points, err := s.svc.GetHistoricalData(r.Context(), companyID, days)
	if err != nil {
		s.logger.WithError(err).Error("failed to get historical data")
		s.respondError(w, http.StatusInternalServerError, "history_failed", "Failed to fetch historical data")
		return
	}

	s.respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"points": points,
			"meta": map[string]any{
				"company_id":     companyID,
				"days_requested": days,
				"data_points":    len(points),
			},
		},
	})
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	companyID := s.companyID(r, "")
	if companyID == "" {
		s.respondError(w, http.StatusBadRequest, "missing_company", "companyId parameter is required")
		return
	}

	cmp, err := s.svc.GetComparisonData(r.Context(), companyID)
	if err != nil {
		s.logger.WithError(err).Error("failed to get comparison data")
		s.respondError(w, http.StatusInternalServerError, "comparison_failed", "Failed to fetch comparison data")
		return
	}

	s.respondJSON(w, http.StatusOK, envelope{Success: true, Data: cmp})
}

// ---------------------------------------------------------------------------
// Cron & webhooks
// ---------------------------------------------------------------------------

func (s *Server) handleDailySnapshot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("secret") != s.opts.CronSecret {
		s.respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid cron secret")
		return
	}

	companyID := s.companyID(r, "")
	if companyID == "" {
		s.respondError(w, http.StatusBadRequest, "missing_company", "No company ID provided or configured")
		return
	}

	start := time.Now()
	result := s.svc.CreateDailySnapshot(r.Context(), companyID)
	duration := time.Since(start)

	if !result.Success {
		s.respondJSON(w, http.StatusInternalServerError, envelope{
			Success: false,
			Error:   "snapshot_failed",
			Data:    map[string]any{"errors": result.Errors},
		})
		return
	}

	s.respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("Created %d snapshots", result.Count),
		Data: map[string]any{
			"company_id":     companyID,
			"snapshot_count": result.Count,
			"duration_ms":    duration.Milliseconds(),
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(webhookSecretHeader) != s.opts.WebhookSecret {
		s.respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid webhook secret")
		return
	}

	var event struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_payload", "Webhook payload is not valid JSON")
		return
	}

	if err := s.dispatchWebhook(r.Context(), event.Action, event.Data); err != nil {
		// The platform retries on non-2xx; a malformed event will never
		// succeed, so acknowledge and log instead.
		s.logger.WithError(err).WithField("action", event.Action).Error("webhook event not applied")
	}

	s.respondJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) dispatchWebhook(ctx context.Context, action string, data json.RawMessage) error {
	var membership whop.Membership
	if len(data) > 0 {
		if err := json.Unmarshal(data, &membership); err != nil {
			return fmt.Errorf("failed to decode webhook data: %w", err)
		}
	}

	event := whop.WebhookEvent{Action: action, Data: membership}
	return s.svc.HandleWebhookEvent(ctx, event, s.opts.DefaultCompanyID)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
