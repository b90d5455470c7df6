package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
	"ledgerdash/internal/sources/csvfile"
	"ledgerdash/internal/sources/xlsx"
)

// criteriaFromRequest parses the filter criteria and logs any ignored values.
func (s *Server) criteriaFromRequest(r *http.Request) ledger.Criteria {
	c, invalid := ParseCriteria(r.URL.Query())
	for _, p := range invalid {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ignoring invalid filter value",
			"param", p.Name, "value", p.Value, log.FieldError, p.Err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) ledgerUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	s.requestLog.LogError(r.Context(), "Failed to load ledger", err, log.ComponentLedger, log.OpLoad, nil)
	writeJSONError(w, http.StatusServiceUnavailable, "ledger unavailable")
}

// handleDashboardAPI returns the applied criteria and the full result as JSON.
func (s *Server) handleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	c := s.criteriaFromRequest(r)
	res, _, err := s.provider.Result(r.Context(), c)
	if err != nil {
		s.ledgerUnavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Criteria ledger.Criteria `json:"criteria"`
		Result   ledger.Result   `json:"result"`
	}{c, res})
}

// handleOptions returns the values the filter form offers for the current ledger.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ms, err := s.provider.Movements(r.Context())
	if err != nil {
		s.ledgerUnavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.OptionsFor(ms))
}

func exportFilename(ext string) string {
	return fmt.Sprintf("ledger-%s.%s", time.Now().Format("20060102"), ext)
}

// handleExportCSV downloads the filtered movements as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.provider.Result(r.Context(), s.criteriaFromRequest(r))
	if err != nil {
		s.ledgerUnavailable(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := csvfile.Write(&buf, res.Filtered); err != nil {
		s.requestLog.LogError(r.Context(), "CSV export failed", err, log.ComponentHTTP, log.OpExport, nil)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename("csv")+`"`)
	_, _ = w.Write(buf.Bytes())
}

// handleExportXLSX downloads the filtered movements as a workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.provider.Result(r.Context(), s.criteriaFromRequest(r))
	if err != nil {
		s.ledgerUnavailable(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, res.Filtered); err != nil {
		s.requestLog.LogError(r.Context(), "XLSX export failed", err, log.ComponentHTTP, log.OpExport, nil)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename("xlsx")+`"`)
	_, _ = w.Write(buf.Bytes())
}

// handleSync asks the sync worker to refresh the ledger.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "sync requests are not configured")
		return
	}

	requestedBy := strings.TrimSpace(r.FormValue("requested_by"))
	if requestedBy == "" {
		requestedBy = extractClientIP(r)
	}
	if len(requestedBy) > 64 {
		requestedBy = requestedBy[:64]
	}

	id, err := s.publisher.PublishSyncRequest(r.Context(), requestedBy)
	if err != nil {
		s.requestLog.LogError(r.Context(), "Failed to publish sync request", err, log.ComponentAMQP, log.OpSync, nil)
		status := http.StatusBadGateway
		if errors.Is(err, amqp.ErrCircuitOpen) {
			status = http.StatusServiceUnavailable
		}
		writeJSONError(w, status, "sync request failed")
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Sync requested", "id", id, "requested_by", requestedBy)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "queued"})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports ready once templates are parsed and the ledger loads.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if ms, err := s.provider.Movements(ctx); err != nil {
		checks["ledger"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["ledger"] = map[string]any{"status": "ok", log.FieldMovementCount: len(ms)}
	}

	checks["sync"] = map[string]any{"enabled": s.publisher != nil}
	checks["security"] = map[string]any{
		"rate_limit_hits":     s.security.rateLimitHits.Load(),
		"suspicious_requests": s.security.suspiciousRequests.Load(),
		"active_clients":      s.rateLimiter.activeClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
