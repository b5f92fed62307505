package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/tarviz/internal/auth"
)

// Task type names
const (
	TypeSendOTP      = "email:send_otp"
	TypePublishSweep = "pipeline:publish_sweep"
)

// Queue names, matching pkg/queue.NewServer.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// SendOTPPayload contains the data for an OTP email task
type SendOTPPayload struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Code             string `json:"code"`
	Purpose          string `json:"purpose"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func (p SendOTPPayload) Message() auth.OTPMessage {
	return auth.OTPMessage{
		Email:     p.Email,
		Name:      p.Name,
		Code:      p.Code,
		Purpose:   p.Purpose,
		ExpiresIn: time.Duration(p.ExpiresInSeconds) * time.Second,
	}
}

func NewSendOTPTask(msg auth.OTPMessage) (*asynq.Task, error) {
	data, err := json.Marshal(SendOTPPayload{
		Email:            msg.Email,
		Name:             msg.Name,
		Code:             msg.Code,
		Purpose:          msg.Purpose,
		ExpiresInSeconds: int(msg.ExpiresIn / time.Second),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendOTP, data,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	), nil
}

// PublishSweepPayload is empty - the sweep checks all organizations
type PublishSweepPayload struct{}

func NewPublishSweepTask() *asynq.Task {
	return asynq.NewTask(TypePublishSweep, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}
