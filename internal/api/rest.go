package api

import (
	"net/http"
	"time"

	"resizewatch/internal/metrics"
	"resizewatch/internal/resize"
)

type statusResponse struct {
	Watcher        string           `json:"watcher"`
	State          string           `json:"state"`
	PollInterval   string           `json:"poll_interval"`
	Listeners      int              `json:"listeners"`
	HistorySize    int              `json:"history_size"`
	LastCapturedAt *time.Time       `json:"last_captured_at,omitempty"`
	Version        string           `json:"version,omitempty"`
	Counters       metrics.Snapshot `json:"counters"`
}

type historyResponse struct {
	Records []resize.Record `json:"records"`
}

func (s *server) handleSample(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "watcher unavailable")
		return
	}
	payload, err := encodeSample(s.watcher.Sample(), s.watcher.State())
	if err != nil {
		s.logger.Error("encode sample failed", map[string]string{"error": err.Error()})
		writeJSONError(w, http.StatusInternalServerError, "encode sample failed")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "watcher unavailable")
		return
	}
	records := s.watcher.History()
	if records == nil {
		records = []resize.Record{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "watcher unavailable")
		return
	}
	response := statusResponse{
		Watcher:      s.watcher.Name(),
		State:        s.watcher.State().String(),
		PollInterval: s.watcher.PollInterval().String(),
		Listeners:    s.watcher.Listeners(resize.EventResize),
		HistorySize:  s.watcher.HistoryCapacity(),
		Version:      s.version,
		Counters:     s.registry.Snapshot(),
	}
	if record, ok := s.watcher.LastRecord(); ok {
		capturedAt := record.CapturedAt
		response.LastCapturedAt = &capturedAt
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.registry.WritePrometheus(w); err != nil {
		s.logger.Warn("write metrics failed", map[string]string{"error": err.Error()})
	}
}
