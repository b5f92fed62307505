package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/api/validation"
	"github.com/hugh/tarviz/internal/assistant"
)

type AssistantHandler struct {
	assistant *assistant.Assistant
}

func NewAssistantHandler(a *assistant.Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

// Chat always answers 200; failures come back as a canned reply.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	msg := validation.TruncateString(validation.SanitizeString(strings.TrimSpace(req.Message)), dto.MaxChatLength)
	writeJSON(w, http.StatusOK, dto.ChatResponse{Reply: h.assistant.Chat(r.Context(), msg)})
}

func (h *AssistantHandler) AuditSite(w http.ResponseWriter, r *http.Request) {
	var req dto.AuditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	res, err := h.assistant.AuditSite(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AssistantHandler) BlogSEO(w http.ResponseWriter, r *http.Request) {
	var req dto.BlogSEORequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	snippet := validation.TruncateString(validation.SanitizeString(req.Snippet), dto.MaxChatLength)
	res, err := h.assistant.SuggestBlogSEO(r.Context(), strings.TrimSpace(req.Topic), snippet)
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AssistantHandler) BlogOutline(w http.ResponseWriter, r *http.Request) {
	var req dto.BlogOutlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	md, err := h.assistant.BlogOutline(r.Context(), strings.TrimSpace(req.Topic))
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.OutlineResponse{Markdown: md})
}

func writeAssistantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistant.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: assistant.ReplyOffline})
	case errors.Is(err, assistant.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Input is required"})
	default:
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: assistant.ReplyUnreachable})
	}
}
