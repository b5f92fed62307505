package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hugh/tarviz/internal/auth"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. Used until
// an outbound provider is configured.
type LogMailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Info("email sent",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// Sent returns a copy of every message sent so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// ComposeOTP builds the verification or reset email for a code.
func ComposeOTP(otp auth.OTPMessage) Message {
	subject := "Verify your Tarviz account"
	action := "finish creating your account"
	if otp.Purpose == auth.PurposeReset {
		subject = "Reset your Tarviz password"
		action = "reset your password"
	}

	greeting := "Hello,"
	if name := strings.TrimSpace(otp.Name); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", greeting)
	fmt.Fprintf(&b, "Use the code %s to %s.\n", otp.Code, action)
	if otp.ExpiresIn > 0 {
		fmt.Fprintf(&b, "The code expires in %s.\n", formatMinutes(otp.ExpiresIn))
	}
	b.WriteString("\nIf you did not request this, you can ignore this email.\n\nTarviz Digimart\n")

	return Message{To: otp.Email, Subject: subject, Body: b.String()}
}

func formatMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// Dispatcher sends OTP mail in the calling goroutine. The API uses the
// queue-backed dispatcher from internal/tasks; this one serves the worker
// and single-process setups.
type Dispatcher struct {
	mailer Mailer
}

func NewDispatcher(mailer Mailer) *Dispatcher {
	return &Dispatcher{mailer: mailer}
}

func (d *Dispatcher) DispatchOTP(ctx context.Context, msg auth.OTPMessage) error {
	return d.mailer.Send(ctx, ComposeOTP(msg))
}

var (
	_ Mailer             = (*LogMailer)(nil)
	_ auth.OTPDispatcher = (*Dispatcher)(nil)
)
