// Package handler is the HTTP boundary. The service sits behind an
// authenticating proxy, so handlers trust the caller identity header and
// carry no session or password logic of their own.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/miaai/langhelper/internal/exercise"
	"github.com/miaai/langhelper/internal/extract"
	"github.com/miaai/langhelper/internal/gpt"
	"github.com/miaai/langhelper/internal/model"
	"github.com/miaai/langhelper/internal/service"
	"github.com/miaai/langhelper/internal/store"
)

// callerHeader carries the authenticated identity set by the upstream
// proxy.
const callerHeader = "X-User"

// maxUploadBytes caps multipart upload memory.
const maxUploadBytes = 32 << 20

// Config holds handler-level settings.
type Config struct {
	// PublicBaseURL prefixes the anonymous share links handed to clients.
	PublicBaseURL string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	service *service.Service
	config  Config
}

// New creates a new Handler.
func New(s *store.Store, svc *service.Service, cfg Config) *Handler {
	return &Handler{store: s, service: svc, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/health", h.handleHealth)
	r.Get("/api/public/exercises/{publicID}", h.handlePublicExercise)

	r.Group(func(r chi.Router) {
		r.Use(h.requireCaller)
		r.Post("/api/exercises/upload", h.handleUpload)
		r.Post("/api/exercises/generate", h.handleGenerate)
		r.Post("/api/exercises", h.handleSave)
		r.Get("/api/exercises", h.handleHistory)
		r.Get("/api/exercises/{publicID}", h.handleExercise)
		r.Post("/api/exercises/{publicID}/visibility", h.handleVisibility)
		r.Post("/api/exercises/{publicID}/complete", h.handleComplete)
	})
}

// requireCaller lifts the proxy-set identity header into the request
// context.
func (h *Handler) requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(callerHeader)
		if caller == "" {
			writeError(w, http.StatusUnauthorized, "missing caller identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithCaller(r.Context(), caller)))
	})
}

func caller(r *http.Request) string {
	id, _ := model.CallerFromContext(r.Context())
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writePipelineError maps pipeline failures onto HTTP statuses. Raw model
// output and upstream bodies stay in the logs; clients get a generic
// message.
func writePipelineError(w http.ResponseWriter, err error) {
	var malformed *gpt.MalformedError
	var statusErr *gpt.StatusError
	var transportErr *gpt.TransportError
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, extract.ErrEmptyUpload),
		errors.Is(err, exercise.ErrUnsupportedKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gpt.ErrTimeout),
		errors.As(err, &statusErr),
		errors.As(err, &transportErr):
		slog.Error("model endpoint failure", "error", err)
		writeError(w, http.StatusBadGateway, "language model endpoint unavailable")
	case errors.As(err, &malformed), errors.Is(err, gpt.ErrEmptyOutput):
		writeError(w, http.StatusInternalServerError, "could not interpret generated content")
	default:
		slog.Error("pipeline failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload")
		return
	}

	rec, err := h.service.CreateFromUpload(r.Context(), caller(r), header.Filename, data)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec.Summary())
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var params model.GenerationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := h.service.CreateFromParams(r.Context(), caller(r), params)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec.Summary())
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req model.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := h.service.SaveComposed(r.Context(), caller(r), req)
	if err != nil {
		if errors.Is(err, exercise.ErrUnsupportedKind) || errors.Is(err, service.ErrInvalidExercise) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("saving exercise", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, rec.Summary())
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListByOwner(caller(r))
	if err != nil {
		slog.Error("listing exercises", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	summaries := make([]model.Summary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, rec.Summary())
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleExercise(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetOwned(chi.URLParam(r, "publicID"), caller(r))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "exercise not found")
			return
		}
		slog.Error("fetching exercise", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec.Summary())
}

func (h *Handler) handlePublicExercise(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetPublic(chi.URLParam(r, "publicID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "exercise not found")
			return
		}
		slog.Error("fetching public exercise", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec.Summary())
}

func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req model.VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "isPublic is required")
		return
	}

	publicID := chi.URLParam(r, "publicID")
	if err := h.store.SetPublic(publicID, caller(r), *req.IsPublic); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "exercise not found")
			return
		}
		slog.Error("updating visibility", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := model.VisibilityResponse{Success: true, IsPublic: *req.IsPublic}
	if *req.IsPublic {
		resp.PublicURL = h.config.PublicBaseURL + "/api/public/exercises/" + publicID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req model.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsCompleted == nil {
		writeError(w, http.StatusBadRequest, "isCompleted is required")
		return
	}

	if err := h.store.SetCompleted(chi.URLParam(r, "publicID"), caller(r), *req.IsCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "exercise not found")
			return
		}
		slog.Error("updating completion", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, model.CompletionResponse{Success: true, IsCompleted: *req.IsCompleted})
}
