package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/api/middleware"
	"github.com/hugh/tarviz/internal/pipeline"
)

type PipelineHandler struct {
	service *pipeline.Service
	logger  *slog.Logger
}

func NewPipelineHandler(service *pipeline.Service, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{service: service, logger: logger}
}

func (h *PipelineHandler) open(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	ctx := r.Context()
	sess, err := h.service.Open(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		h.logger.Error("failed to open board", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load pipeline"})
		return nil, false
	}
	return sess, true
}

// commit persists the session's moves and answers with the post.
func (h *PipelineHandler) commit(w http.ResponseWriter, r *http.Request, sess *pipeline.Session, id string, status int) {
	if err := sess.Commit(r.Context()); err != nil {
		h.logger.Error("failed to save pipeline move", "post_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to save change"})
		return
	}

	post, _ := sess.Post(id)
	writeJSON(w, status, dto.NewPostDTO(post))
}

// Board returns the seven columns with their posts.
func (h *PipelineHandler) Board(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.NewBoardResponse(sess.Columns()))
}

// Move drops a post onto another column.
func (h *PipelineHandler) Move(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.MovePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	sess, ok := h.open(w, r)
	if !ok {
		return
	}

	if !sess.BeginDrag(id) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Post not found"})
		return
	}
	sess.DropOn(pipeline.Status(req.Status))

	h.commit(w, r, sess, id, http.StatusOK)
}

func (h *PipelineHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, ok := h.open(w, r)
	if !ok {
		return
	}

	if !sess.Approve(id) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Post not found"})
		return
	}

	h.commit(w, r, sess, id, http.StatusOK)
}

// RequestRevision records feedback and sends the post back to writing.
func (h *PipelineHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.RevisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	sess, ok := h.open(w, r)
	if !ok {
		return
	}

	moved, err := sess.RequestRevision(r.Context(), id, req.Feedback)
	if err != nil {
		h.logger.Error("failed to record revision", "post_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to record feedback"})
		return
	}
	if !moved {
		if _, exists := sess.Post(id); !exists {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Post not found"})
			return
		}
	}

	h.commit(w, r, sess, id, http.StatusCreated)
}

func (h *PipelineHandler) Revisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	store := h.service.Repository().ForOrganization(middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx))
	notes, err := store.Revisions(ctx, id)
	if err != nil {
		if errors.Is(err, pipeline.ErrPostNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Post not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load revisions"})
		return
	}

	out := make([]dto.RevisionDTO, len(notes))
	for i, n := range notes {
		out[i] = dto.RevisionDTO{
			ID:        n.ID.String(),
			Feedback:  n.Feedback,
			AuthorID:  n.AuthorID.String(),
			CreatedAt: n.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
