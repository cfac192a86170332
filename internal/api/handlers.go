package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/ingestion"
	"channel-trust-lab/internal/reporting"
)

// maxBodyBytes bounds request bodies; a snapshot carries at most a few hundred posts and members.
const maxBodyBytes = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string           `json:"status"`
	Uptime        string           `json:"uptime"`
	Started       time.Time        `json:"started"`
	ConfigVersion string           `json:"config_version"`
	FeedActive    bool             `json:"feed_active"`
	Ingestion     *ingestion.Stats `json:"ingestion,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Started:       s.started,
		ConfigVersion: s.engine.Version(),
		FeedActive:    s.feedActive,
	}
	s.mu.Unlock()

	if s.runner != nil {
		stats := s.runner.Stats()
		resp.Ingestion = &stats
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleScore scores one snapshot without persisting it.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var snap domain.Snapshot
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&snap); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid snapshot JSON", err)
		return
	}

	res, err := s.engine.Score(&snap)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSnapshot) {
			respondWithError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		s.logger.Error("score failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to score snapshot", err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// IngestResponse lists the outcome of every snapshot in the payload.
type IngestResponse struct {
	Outcomes []ingestion.Outcome `json:"outcomes"`
}

// handleIngest pushes a payload through the same path as the websocket feed.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Ingestion is not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	outcomes := s.runner.HandlePayload(r.Context(), body)
	code := http.StatusOK
	if len(outcomes) == 1 && outcomes[0] == ingestion.OutcomeInvalid {
		code = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, code, IngestResponse{Outcomes: outcomes})
}

func (s *Server) handleChannelRecords(w http.ResponseWriter, r *http.Request) {
	records, ok := s.channelRecords(w, r)
	if !ok {
		return
	}
	results := make([]*domain.ScoreResult, len(records))
	for i, rec := range records {
		results[i] = rec.Result
	}
	respondWithJSON(w, http.StatusOK, results)
}

func (s *Server) handleChannelLatest(w http.ResponseWriter, r *http.Request) {
	records, ok := s.channelRecords(w, r)
	if !ok {
		return
	}
	if len(records) == 0 {
		respondWithError(w, http.StatusNotFound, "No score records for channel", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, records[len(records)-1].Result)
}

// channelRecords loads a channel's records under ?version= or the engine's version.
func (s *Server) channelRecords(w http.ResponseWriter, r *http.Request) ([]*domain.ScoreRecord, bool) {
	if s.records == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Storage is not configured", nil)
		return nil, false
	}
	channelID := chi.URLParam(r, "channelID")
	version := r.URL.Query().Get("version")
	if version == "" {
		version = s.engine.Version()
	}

	records, err := s.records.GetByChannel(r.Context(), channelID, version)
	if err != nil {
		s.logger.Error("load channel records", zap.String("channel_id", channelID), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load records", err)
		return nil, false
	}
	return records, true
}

// handleReport renders the score report as markdown, or CSV with ?format=csv.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.reporter == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Reporting is not configured", nil)
		return
	}
	version := r.URL.Query().Get("version")
	if version == "" {
		version = s.engine.Version()
	}

	report, err := s.reporter.Generate(r.Context(), version, r.URL.Query().Get("compare"))
	if err != nil {
		s.logger.Error("generate report", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to generate report", err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Write([]byte(reporting.RenderCSV(report.Channels)))
	case "json":
		respondWithJSON(w, http.StatusOK, report)
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(report)))
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil && code < 500 {
		response["detail"] = err.Error()
	}
	respondWithJSON(w, code, response)
}
