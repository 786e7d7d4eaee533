package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/pipeline"
	"github.com/suvichaar/storygen/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Runner executes one generation request end to end.
type Runner interface {
	Run(ctx context.Context, req *models.GenerationRequest) (*models.StoryRecord, error)
}

// RecordReader reads stored story records.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (*models.StoryRecord, error)
	ListRecent(ctx context.Context, limit int64) ([]models.StoryRecord, error)
}

// Index resolves a canonical URL to a record id.
type Index interface {
	IDByCanURL(ctx context.Context, canurl string) (string, error)
}

// DocumentReader downloads rendered documents.
type DocumentReader interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// TemplateLister exposes the registered template names.
type TemplateLister interface {
	Names() []string
}

// VoiceLister exposes the configured narration providers.
type VoiceLister interface {
	Providers() []string
}

// Handler holds the story HTTP handlers.
type Handler struct {
	runner     Runner
	records    RecordReader
	index      Index
	documents  DocumentReader
	templates  TemplateLister
	voices     VoiceLister
	htmlPrefix string
	logger     *slog.Logger
}

func NewHandler(runner Runner, records RecordReader, index Index, documents DocumentReader, templates TemplateLister, voices VoiceLister, htmlPrefix string, logger *slog.Logger) *Handler {
	return &Handler{
		runner:     runner,
		records:    records,
		index:      index,
		documents:  documents,
		templates:  templates,
		voices:     voices,
		htmlPrefix: htmlPrefix,
		logger:     logger,
	}
}

// Routes mounts the story endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", h.Templates)
		r.Get("/voices", h.Voices)
		r.Route("/stories", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Get("/{id}/html", h.HTML)
		})
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Create runs the generation pipeline for one request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.runner.Run(r.Context(), &req)
	if err != nil {
		var verr *models.ValidationError
		var sf *pipeline.StageFailure
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.As(err, &sf):
			h.logger.Error("generation failed", "stage", sf.Stage, "error", sf.Err)
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": sf.Err.Error(),
				"stage": string(sf.Stage),
			})
		default:
			h.logger.Error("generation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// List returns recent stories, or the single story matching ?canurl=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if canurl := r.URL.Query().Get("canurl"); canurl != "" {
		id, err := h.index.IDByCanURL(r.Context(), canurl)
		if err != nil {
			h.lookupError(w, err)
			return
		}
		rec, err := h.records.GetByID(r.Context(), id)
		if err != nil {
			h.lookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	recs, err := h.records.ListRecent(r.Context(), int64(limit))
	if err != nil {
		h.lookupError(w, err)
		return
	}
	if recs == nil {
		recs = []models.StoryRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Get returns a single story record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.lookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HTML streams the rendered document from object storage.
func (h *Handler) HTML(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.lookupError(w, err)
		return
	}
	if rec.CanURL == "" {
		writeError(w, http.StatusNotFound, "document not available")
		return
	}

	data, ct, err := h.documents.Download(r.Context(), pipeline.DocumentKey(h.htmlPrefix, rec.CanURL))
	if err != nil {
		h.logger.Warn("document download failed", "record_id", rec.ID, "error", err)
		writeError(w, http.StatusNotFound, "document not available")
		return
	}
	if ct == "" {
		ct = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.Write(data)
}

func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"templates": h.templates.Names()})
}

// Voices lists the voice_engine values this server can narrate with.
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"voices": h.voices.Providers()})
}

func (h *Handler) lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.Error("story lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "database error")
}
