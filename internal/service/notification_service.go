package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/pkg/jobs"
)

// EmailSender delivers a single message. Implementations must be safe for
// concurrent use by queue workers.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string
	From string
}

// Send implements EmailSender.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

type decisionEmail struct {
	To      string
	Subject string
	Body    string
}

// NotificationService sends decision emails through the background queue.
// Delivery is fire and forget: failures are retried by the queue and logged,
// they never block or fail the review flow.
type NotificationService struct {
	queue   *jobs.Queue
	sender  EmailSender
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its queue. Call Start
// before enqueueing and Stop on shutdown.
func NewNotificationService(sender EmailSender, enabled bool, workers, maxRetries int, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{sender: sender, enabled: enabled, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: maxRetries,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyDecision queues a decision email for the student.
func (s *NotificationService) NotifyDecision(student *models.Student, outcome *models.VerificationOutcome) {
	if !s.enabled || s.sender == nil {
		return
	}
	if student.Email == "" {
		s.logger.Warn("student has no email, skipping decision notification", zap.String("student_id", student.ID))
		return
	}

	email := decisionEmail{To: student.Email}
	switch outcome.Status {
	case models.VerificationApproved:
		email.Subject = "Your profile has been approved"
		email.Body = fmt.Sprintf("Dear %s,\n\nYour student profile has been verified and approved.\n", student.FirstName)
	default:
		email.Subject = "Your profile needs corrections"
		var fields []string
		for _, ref := range outcome.DeclinedFields {
			fields = append(fields, fmt.Sprintf("- %s / %s", ref.Section, ref.Field))
		}
		email.Body = fmt.Sprintf("Dear %s,\n\nYour student profile was declined.\n", student.FirstName)
		if outcome.Reason != "" {
			email.Body += fmt.Sprintf("\nReason: %s\n", outcome.Reason)
		}
		if len(fields) > 0 {
			email.Body += "\nFields needing correction:\n" + strings.Join(fields, "\n") + "\n"
		}
	}

	job := jobs.Job{ID: uuid.NewString(), Type: "decision_email", Payload: email}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue decision email", zap.String("student_id", student.ID), zap.Error(err))
	}
}

func (s *NotificationService) handle(_ context.Context, job jobs.Job) error {
	email, ok := job.Payload.(decisionEmail)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(email.To, email.Subject, email.Body)
}
