package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BetterCallFirewall/scanportal/internal/backend"
	"github.com/BetterCallFirewall/scanportal/internal/cache"
	"github.com/BetterCallFirewall/scanportal/internal/models"
	"github.com/BetterCallFirewall/scanportal/internal/scoring"
	"github.com/BetterCallFirewall/scanportal/internal/websocket"
)

// passthrough proxies a GET to the backend and writes its JSON body as-is.
// Any failure becomes a 500 with failure as the error text.
func (s *Server) passthrough(w http.ResponseWriter, r *http.Request, tag, path, failure string) ([]byte, bool) {
	body, err := s.backend.GetRaw(r.Context(), path, authToken(r), s.config.Backend.Timeout)
	if err != nil {
		s.logger.Error(tag+" fetch error", "err", err)
		writeError(w, http.StatusInternalServerError, failure, err.Error())
		return nil, false
	}
	w.Header().Set("Cache-Control", "no-store")
	writeRaw(w, http.StatusOK, body)
	return body, true
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.passthrough(w, r, "[API/RESULTS]", "/api/results", "Failed to fetch results from backend")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.passthrough(w, r, "[API/HISTORY]", "/api/history", "Failed to fetch history from backend")
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.passthrough(w, r, "[API/CLEAR]", "/api/clear", "Failed to clear results on backend"); ok {
		s.reports.Purge()
		s.hub.Broadcast(websocket.EventResultsCleared, nil)
	}
}

// validScanID accepts positive decimal integers only.
func validScanID(id string) bool {
	n, err := strconv.ParseInt(id, 10, 64)
	return err == nil && n > 0 && strconv.FormatInt(n, 10) == id
}

func (s *Server) handleScanDetail(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("scanId")
	if !validScanID(scanID) {
		writeError(w, http.StatusBadRequest, "Invalid scan ID", "")
		return
	}

	token := authToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	key := cache.Key(token, scanID)
	if body, ok := s.reports.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeScanDetail(w, body)
		return
	}

	tag := fmt.Sprintf("[API/HISTORY/%s]", scanID)
	body, err := s.backend.GetRaw(r.Context(), "/api/history/"+scanID, token, s.config.Backend.ScanTimeout)
	if err != nil {
		s.logger.Error(tag+" fetch error", "err", err)

		if errors.Is(err, backend.ErrTimeout) {
			writeError(w, http.StatusRequestTimeout, "Request timeout - please try again", "Backend took too long to respond")
			return
		}
		if se, ok := backend.AsStatusError(err); ok && se.StatusCode == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "Scan not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch scan from backend", err.Error())
		return
	}

	s.reports.Set(key, body)
	w.Header().Set("X-Cache", "MISS")
	writeScanDetail(w, body)
}

func writeScanDetail(w http.ResponseWriter, body []byte) {
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Response-Time", strconv.FormatInt(time.Now().UnixMilli(), 10))
	writeRaw(w, http.StatusOK, body)
}

// handleReport is the shareable report view; it does not require the cookie
// but forwards it when present.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("scanId")
	if !validScanID(scanID) {
		writeError(w, http.StatusBadRequest, "Invalid scan ID", "")
		return
	}

	body, err := s.backend.GetRaw(r.Context(), "/api/history/"+scanID, authToken(r), s.config.Backend.Timeout)
	if err != nil {
		s.logger.Error("[API/REPORT] fetch error", "scan_id", scanID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch report from backend", "")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeRaw(w, http.StatusOK, body)
}

func (s *Server) handleScanInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scan API endpoint"})
}

// handleScanStart acknowledges a scan request. Real scans go through
// /api/upload-and-scan.
func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Scan initiated",
		"scanId":  time.Now().UnixMilli(),
	})
}

type dashboardResponse struct {
	LatestScan *scoring.ScanMetrics     `json:"latestScan"`
	Dashboard  scoring.DashboardMetrics `json:"dashboard"`
	ScanCount  int                      `json:"scanCount"`
}

// handleDashboard fetches the latest result and the history in parallel and
// returns the computed dashboard numbers.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	token := authToken(r)
	timeout := s.config.Backend.Timeout

	var latest models.ScanReport
	var history []models.ScanReport

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return s.backend.GetJSON(ctx, "/api/results", token, timeout, &latest)
	})
	g.Go(func() error {
		body, err := s.backend.GetRaw(ctx, "/api/history", token, timeout)
		if err != nil {
			return err
		}
		history = s.decodeHistory("[API/DASHBOARD]", body)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("[API/DASHBOARD] fetch error", "err", err)
		if errors.Is(err, backend.ErrTimeout) {
			writeError(w, http.StatusRequestTimeout, "Request timeout - please try again", "Backend took too long to respond")
			return
		}
		if se, ok := backend.AsStatusError(err); ok {
			writeError(w, se.StatusCode, "Failed to build dashboard", se.StatusText())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to build dashboard", err.Error())
		return
	}

	resp := dashboardResponse{
		Dashboard: scoring.Dashboard(history),
		ScanCount: len(history),
	}
	// /api/results answers success=false when the user has no scans yet.
	if latest.Succeeded() && (latest.ScanID != 0 || len(scoring.AllFindings(&latest)) > 0) {
		m := scoring.LatestScanMetrics(&latest)
		resp.LatestScan = &m
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// decodeHistory returns the decodable history entries. Bad entries are logged
// and skipped; a body that is not an array counts as an empty history, as the
// dashboard client treats it.
func (s *Server) decodeHistory(tag string, body []byte) []models.ScanReport {
	reports, skipped, err := models.DecodeHistory(body)
	if err != nil {
		s.logger.Warn(tag+" history is not a list", "err", err)
		return nil
	}
	for _, e := range skipped {
		s.logger.Warn(tag+" skipping undecodable scan", "index", e.Index, "err", e.Err)
	}
	return reports
}

type scanSummary struct {
	ScanID               int64             `json:"scan_id"`
	Name                 string            `json:"name"`
	Completed            bool              `json:"completed"`
	StartedAt            *time.Time        `json:"startedAt,omitempty"`
	CompletedAt          *time.Time        `json:"completedAt,omitempty"`
	Risk                 scoring.RiskScore `json:"risk"`
	VulnerabilitiesFound int               `json:"vulnerabilitiesFound"`
	Report               json.RawMessage   `json:"report"`
}

// handleScanList returns the history newest first with a risk score per scan.
func (s *Server) handleScanList(w http.ResponseWriter, r *http.Request) {
	body, err := s.backend.GetRaw(r.Context(), "/api/history", authToken(r), s.config.Backend.Timeout)
	if err != nil {
		s.logger.Error("[API/SCANS] fetch error", "err", err)
		if se, ok := backend.AsStatusError(err); ok {
			writeError(w, se.StatusCode, "Failed to fetch scan history", se.StatusText())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch scan history", err.Error())
		return
	}

	history := s.decodeHistory("[API/SCANS]", body)
	scoring.SortNewestFirst(history)

	summaries := make([]scanSummary, 0, len(history))
	for i := range history {
		report := &history[i]
		summary := scanSummary{
			ScanID:               report.ScanID,
			Name:                 report.DisplayName(),
			Completed:            report.Succeeded(),
			Risk:                 scoring.CalculateRiskScore(scoring.AllFindings(report)),
			VulnerabilitiesFound: scoring.FindingCount(report),
			Report:               report.Raw,
		}
		if t := report.CreatedAt(); !t.IsZero() {
			summary.StartedAt = &t
		}
		if t := report.CompletedAt(); !t.IsZero() {
			summary.CompletedAt = &t
		}
		summaries = append(summaries, summary)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleReportSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, models.ScanReportSchema())
}
