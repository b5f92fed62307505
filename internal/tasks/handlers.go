package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/tarviz/internal/auth"
	"github.com/hugh/tarviz/internal/mail"
)

// Publisher promotes due scheduled posts; implemented by pipeline.Service.
type Publisher interface {
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

type Handler struct {
	mailer    mail.Mailer
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(mailer mail.Mailer, publisher Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		mailer:    mailer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendOTP, h.HandleSendOTP)
	mux.HandleFunc(TypePublishSweep, h.HandlePublishSweep)
}

func (h *Handler) HandleSendOTP(ctx context.Context, t *asynq.Task) error {
	var payload SendOTPPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if !auth.ValidPurpose(payload.Purpose) || payload.Email == "" {
		return fmt.Errorf("invalid otp payload for %q: %w", payload.Email, asynq.SkipRetry)
	}

	if err := h.mailer.Send(ctx, mail.ComposeOTP(payload.Message())); err != nil {
		h.logger.Error("otp email failed", "email", payload.Email, "purpose", payload.Purpose, "error", err)
		return err
	}

	h.logger.Info("otp email delivered", "email", payload.Email, "purpose", payload.Purpose)
	return nil
}

func (h *Handler) HandlePublishSweep(ctx context.Context, _ *asynq.Task) error {
	now := h.now()
	count, err := h.publisher.PublishDue(ctx, now)
	if err != nil {
		h.logger.Error("publish sweep failed", "published", count, "error", err)
		return err
	}

	h.logger.Info("publish sweep completed", "published", count, "at", now)
	return nil
}
