package dto

import (
	"strings"

	"github.com/hugh/tarviz/internal/api/validation"
)

// MaxChatLength bounds a single chat message.
const MaxChatLength = 2000

type ChatRequest struct {
	Message string `json:"message"`
}

func (r ChatRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Message) == "" {
		errors["message"] = "Message is required"
	}
	return errors
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type AuditRequest struct {
	URL string `json:"url"`
}

func (r AuditRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidSiteURL(strings.TrimSpace(r.URL)) {
		errors["url"] = "Enter a full website address, e.g. https://example.com"
	}
	return errors
}

type BlogSEORequest struct {
	Topic   string `json:"topic"`
	Snippet string `json:"snippet"`
}

func (r BlogSEORequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Topic) == "" {
		errors["topic"] = "Topic is required"
	}
	return errors
}

type BlogOutlineRequest struct {
	Topic string `json:"topic"`
}

func (r BlogOutlineRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Topic) == "" {
		errors["topic"] = "Topic is required"
	}
	return errors
}

type OutlineResponse struct {
	Markdown string `json:"markdown"`
}
