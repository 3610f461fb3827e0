package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/ingest"
	"MarketPulse/internal/model"
)

const noDataMessage = "No data available. Run ingest first."

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "MarketPulse backend up"})
}

func (s *Server) handleSectorHeatmap(w http.ResponseWriter, r *http.Request) {
	duration := r.URL.Query().Get("duration")
	if duration == "" {
		duration = string(model.Horizon1D)
	}
	h, ok := model.ParseHorizon(duration)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid duration")
		return
	}

	hm, err := s.analyzer.SectorHeatmap(r.Context(), h)
	switch {
	case errors.Is(err, collector.ErrUniverseUnavailable):
		s.logger.Error().Err(err).Msg("universe file not found")
		s.writeError(w, http.StatusInternalServerError, "Universe file not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("sector heatmap")
		s.writeError(w, http.StatusInternalServerError, "failed to build heatmap")
		return
	}
	if len(hm.Sectors) == 0 {
		s.logger.Warn().Msg("no sector data found")
		s.writeError(w, http.StatusNotFound, noDataMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, hm)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyzer.Analysis(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.logger.Error().Err(err).Msg("analysis")
		s.writeError(w, http.StatusInternalServerError, "failed to compute analysis")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// runIngestRequest is the optional body of POST /run-ingest.
type runIngestRequest struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Limit   int      `json:"limit"`
	Symbols []string `json:"symbols"`
}

func (s *Server) handleRunIngest(w http.ResponseWriter, r *http.Request) {
	var req runIngestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// a malformed body means defaults, like an absent one
		s.logger.Debug().Err(err).Msg("ignoring run-ingest body")
		req = runIngestRequest{}
	}

	opts := ingest.Options{Limit: req.Limit, Symbols: req.Symbols}
	var err error
	if opts.Start, err = parseDay(req.Start); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	if opts.End, err = parseDay(req.End); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
		return
	}
	if opts.Limit < 0 {
		s.writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	job, err := s.ingester.Start(r.Context(), opts)
	switch {
	case errors.Is(err, collector.ErrUniverseUnavailable):
		s.writeError(w, http.StatusInternalServerError, "Universe file not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("start ingest")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"job_id":        job.ID,
		"log_path":      job.LogPath,
		"progress_path": job.ProgressPath,
	})
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.DateLayout, v)
}

func (s *Server) handleIngestProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.ingester.Progress(chi.URLParam(r, "job_id"))
	switch {
	case errors.Is(err, ingest.ErrJobNotFound):
		s.writeError(w, http.StatusNotFound, "progress not found")
		return
	case err != nil:
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "failed to read progress",
			"detail": err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleIngestJobs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	jobs, err := s.ingester.RecentJobs(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("recent ingest jobs")
		s.writeError(w, http.StatusInternalServerError, "failed to list ingest jobs")
		return
	}
	if jobs == nil {
		jobs = []model.IngestJob{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
