package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/user/property-ingest/internal/delivery/http/request"
	"github.com/user/property-ingest/internal/delivery/http/response"
	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/source"
	"github.com/user/property-ingest/internal/usecase"
)

type Handler struct {
	scraper      usecase.Scraper
	batchManager usecase.BatchManager
}

func NewHandler(scraper usecase.Scraper, batchManager usecase.BatchManager) *Handler {
	return &Handler{
		scraper:      scraper,
		batchManager: batchManager,
	}
}

func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req request.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Source == "" || req.ParcelID == "" {
		h.writeJSONError(w, "source and parcel_id are required", http.StatusBadRequest)
		return
	}

	result, err := h.scraper.ScrapeOne(r.Context(), req.Source, req.ParcelID, req.ForceScrape)
	if err != nil {
		var unknown *source.UnknownSourceError
		if errors.As(err, &unknown) {
			h.writeJSONError(w, unknown.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to scrape parcel", "source", req.Source, "parcel_id", req.ParcelID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !result.Found && !result.Skipped {
		h.writeJSONError(w, "Parcel not found at source", http.StatusNotFound)
		return
	}

	// Invalid records are still returned; the embedded validation report
	// tells the caller what is wrong with them.
	h.writeJSON(w, http.StatusOK, response.ScrapeResponse{Status: "success", Result: result})
}

func (h *Handler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req request.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !h.knownSource(req.Source) {
		h.writeJSONError(w, "Unknown source: "+req.Source, http.StatusBadRequest)
		return
	}

	job := &entity.BatchJob{
		Source:      req.Source,
		ParcelIDs:   req.ParcelIDs,
		StartID:     req.StartID,
		EndID:       req.EndID,
		ForceScrape: req.ForceScrape,
	}
	jobID, err := h.batchManager.Submit(r.Context(), job)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyBatch) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to submit batch job", "source", req.Source, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.SubmitBatchResponse{
		Status:  "success",
		Message: "Batch job queued",
		JobID:   jobID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		h.writeJSONError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.batchManager.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, usecase.ErrJobNotFound) {
			h.writeJSONError(w, "Batch job not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get batch status", "job_id", jobID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.BatchStatusResponse{
		JobID:       status.JobID,
		Status:      status.Status,
		Total:       status.Total,
		Succeeded:   status.Succeeded,
		Skipped:     status.Skipped,
		Failed:      status.Failed,
		Error:       status.Error,
		SubmittedAt: status.SubmittedAt,
		StartedAt:   status.StartedAt,
		FinishedAt:  status.FinishedAt,
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListSources(w http.ResponseWriter, r *http.Request) {
	sources := h.scraper.Sources()
	sort.Strings(sources)
	h.writeJSON(w, http.StatusOK, response.SourcesResponse{Sources: sources})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) knownSource(id string) bool {
	for _, s := range h.scraper.Sources() {
		if s == id {
			return true
		}
	}
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
