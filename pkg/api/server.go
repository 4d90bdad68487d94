package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitewatch/platform/pkg/coordinator"
	"github.com/sitewatch/platform/pkg/durastore"
	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/metrics"
	"github.com/sitewatch/platform/pkg/sharedstore"
	"github.com/sitewatch/platform/pkg/types"
)

const defaultCheckInterval = 5

// ownerHeader carries the caller's account id for the owner-mismatch
// check on mutating site endpoints. Real authentication is out of
// scope (spec §1); the core only needs to know whether to refuse a
// request, not how the caller proved their identity.
const ownerHeader = "X-Account-Id"

// Server is the coordinator's HTTP surface (spec §6): the handful of
// site-registry endpoints that mutate state, plus worker presence
// reads and the liveness/readiness/metrics endpoints served alongside
// them on the same mux.
type Server struct {
	registry *coordinator.RegistrySync
	durable  durastore.Store
	shared   sharedstore.Store
	logger   zerolog.Logger
	mux      *http.ServeMux
}

// NewServer wires the HTTP surface over its collaborators and
// registers every route.
func NewServer(registry *coordinator.RegistrySync, durable durastore.Store, shared sharedstore.Store) *Server {
	s := &Server{
		registry: registry,
		durable:  durable,
		shared:   shared,
		logger:   log.WithComponent("api"),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /sites", instrumented("/sites", s.handleCreateSite))
	s.mux.HandleFunc("PATCH /sites/{id}", instrumented("/sites/{id}", s.handleUpdateSite))
	s.mux.HandleFunc("DELETE /sites/{id}", instrumented("/sites/{id}", s.handleDeleteSite))
	s.mux.HandleFunc("GET /workers", instrumented("/workers", s.handleListWorkers))
	s.mux.HandleFunc("GET /workers/ids", instrumented("/workers/ids", s.handleListWorkerIDs))
	s.mux.HandleFunc("GET /sites/{id}/status", instrumented("/sites/{id}/status", s.handleSiteStatusHistory))

	s.mux.HandleFunc("/health", metrics.HealthHandler())
	s.mux.HandleFunc("/ready", metrics.ReadyHandler())
	s.mux.Handle("/metrics", metrics.Handler())
}

// Handler returns the HTTP handler suitable for http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

type createSiteRequest struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	CheckInterval int    `json:"checkInterval"`
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badInput("invalid request body: %v", err))
		return
	}

	if req.CheckInterval == 0 {
		req.CheckInterval = defaultCheckInterval
	}
	if err := validateURL(req.URL); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCheckInterval(req.CheckInterval); err != nil {
		writeError(w, err)
		return
	}

	site := &types.Site{
		URL:           req.URL,
		CheckInterval: req.CheckInterval,
		IsActive:      true,
		OwnerID:       r.Header.Get(ownerHeader),
	}

	if err := s.registry.CreateSite(r.Context(), site); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, site)
}

type updateSiteRequest struct {
	URL           *string `json:"url,omitempty"`
	CheckInterval *int    `json:"checkInterval,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	site, err := s.loadSiteForMutation(r, id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badInput("invalid request body: %v", err))
		return
	}

	if req.URL != nil {
		if err := validateURL(*req.URL); err != nil {
			writeError(w, err)
			return
		}
		site.URL = *req.URL
	}
	if req.CheckInterval != nil {
		if err := validateCheckInterval(*req.CheckInterval); err != nil {
			writeError(w, err)
			return
		}
		site.CheckInterval = *req.CheckInterval
	}
	if req.IsActive != nil {
		site.IsActive = *req.IsActive
	}

	if err := s.registry.UpdateSite(r.Context(), site); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.loadSiteForMutation(r, id); err != nil {
		writeError(w, err)
		return
	}

	if err := s.registry.DeleteSite(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadSiteForMutation fetches the site and, when the caller supplied
// an owner header, rejects mismatches before any mutation proceeds.
func (s *Server) loadSiteForMutation(r *http.Request, id string) (*types.Site, error) {
	if id == "" {
		return nil, badInput("site id is required")
	}

	site, err := s.durable.GetSite(r.Context(), id)
	if err != nil {
		return nil, notFound("site %s not found", id)
	}

	if owner := r.Header.Get(ownerHeader); owner != "" && site.OwnerID != "" && owner != site.OwnerID {
		return nil, forbidden("site %s is not owned by account %s", id, owner)
	}

	return site, nil
}

const defaultStatusHistoryLimit = 100

// handleSiteStatusHistory serves a recent-history read over SiteStatus
// rows (SPEC_FULL.md §6 addition). It is a read surface, not part of
// the registry-mutation contract, so it has no owner check.
func (s *Server) handleSiteStatusHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.durable.GetSite(r.Context(), id); err != nil {
		writeError(w, notFound("site %s not found", id))
		return
	}

	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, badInput("since must be an RFC3339 timestamp"))
			return
		}
		since = parsed
	}

	limit := defaultStatusHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, badInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	history, err := s.durable.ListStatusHistory(r.Context(), id, since, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.shared.ListPresentWorkers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

func (s *Server) handleListWorkerIDs(w http.ResponseWriter, r *http.Request) {
	workers, err := s.shared.ListPresentWorkers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, 0, len(workers))
	for _, wp := range workers {
		ids = append(ids, wp.WorkerID)
	}
	writeJSON(w, http.StatusOK, ids)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return badInput("url must be an absolute http or https URL")
	}
	return nil
}

func validateCheckInterval(minutes int) error {
	if minutes < 1 || minutes > 60 {
		return badInput("checkInterval must be between 1 and 60 minutes")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
