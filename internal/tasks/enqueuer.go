package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/tarviz/internal/auth"
)

// TaskEnqueuer is the part of *asynq.Client the API needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// OTPEnqueuer hands OTP mail to the worker through the critical queue.
type OTPEnqueuer struct {
	client TaskEnqueuer
}

func NewOTPEnqueuer(client TaskEnqueuer) *OTPEnqueuer {
	return &OTPEnqueuer{client: client}
}

func (e *OTPEnqueuer) DispatchOTP(ctx context.Context, msg auth.OTPMessage) error {
	task, err := NewSendOTPTask(msg)
	if err != nil {
		return fmt.Errorf("building otp task: %w", err)
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueueing otp task: %w", err)
	}
	return nil
}

var _ auth.OTPDispatcher = (*OTPEnqueuer)(nil)
