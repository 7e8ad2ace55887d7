package service

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION SERVICE
// Listens to domain events and emits student-facing notifications.
// Delivery is fire-and-forget: a failed notification is logged and counted,
// it never affects the mutation that produced the event.
// ══════════════════════════════════════════════════════════════════════════════

// Sender delivers a formatted notification to a student.
type Sender interface {
	Send(studentID, subject, body string) error
}

// LogSender writes notifications to the structured log. It is the default
// sender until a mail/SMS gateway is attached.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(studentID, subject, body string) error {
	s.logger.Info("notification",
		slog.String("student_id", studentID),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}

// NotificationService subscribes to drive lifecycle events and turns them
// into per-student notifications.
type NotificationService struct {
	sender Sender
	logger *slog.Logger

	sent   atomic.Int64
	failed atomic.Int64
}

// NewNotificationService creates a new notification service.
func NewNotificationService(sender Sender, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	return &NotificationService{
		sender: sender,
		logger: logger,
	}
}

// RegisterHandlers attaches the service to the dispatcher. Handlers run
// async with the dispatcher's retry policy.
func (s *NotificationService) RegisterHandlers(d *messaging.Dispatcher) error {
	registrations := map[shared.EventType]shared.EventHandler{
		shared.EventApplicationSubmitted:     s.onApplicationSubmitted,
		shared.EventApplicationStatusChanged: s.onStatusChanged,
		shared.EventStudentShortlisted:       s.onShortlisted,
		shared.EventStudentUnattended:        s.onUnattended,
		shared.EventStudentSelected:          s.onSelected,
	}
	for eventType, handler := range registrations {
		if err := d.Register(eventType, "notification-"+string(eventType), handler); err != nil {
			return err
		}
	}
	return nil
}

// Sent returns the number of notifications delivered so far.
func (s *NotificationService) Sent() int64 { return s.sent.Load() }

// Failed returns the number of notifications that could not be delivered.
func (s *NotificationService) Failed() int64 { return s.failed.Load() }

func (s *NotificationService) onApplicationSubmitted(e shared.Event) error {
	p := e.Payload()
	return s.deliver(str(p, "student_id"),
		"Application received",
		fmt.Sprintf("Your application for %s (%s) has been recorded.",
			str(p, "company_name"), str(p, "role")))
}

func (s *NotificationService) onStatusChanged(e shared.Event) error {
	p := e.Payload()
	return s.deliver(str(p, "student_id"),
		"Application status updated",
		fmt.Sprintf("Your application status changed from %s to %s.",
			str(p, "old_status"), str(p, "new_status")))
}

func (s *NotificationService) onShortlisted(e shared.Event) error {
	p := e.Payload()
	return s.deliver(str(p, "student_id"),
		"You have been shortlisted",
		fmt.Sprintf("You are shortlisted for the %s phase of the %s drive.",
			str(p, "phase_name"), str(p, "company_name")))
}

func (s *NotificationService) onUnattended(e shared.Event) error {
	p := e.Payload()
	return s.deliver(str(p, "student_id"),
		"Drive update",
		fmt.Sprintf("You did not advance to the %s phase of the %s drive.",
			str(p, "phase_name"), str(p, "company_name")))
}

func (s *NotificationService) onSelected(e shared.Event) error {
	p := e.Payload()
	return s.deliver(str(p, "student_id"),
		"Congratulations, you have been selected",
		fmt.Sprintf("You have been selected in the %s drive for the role of %s.",
			str(p, "company_name"), str(p, "role")))
}

func (s *NotificationService) deliver(studentID, subject, body string) error {
	if studentID == "" {
		return nil
	}
	if err := s.sender.Send(studentID, subject, body); err != nil {
		s.failed.Add(1)
		s.logger.Error("notification delivery failed",
			slog.String("student_id", studentID),
			slog.String("subject", subject),
			slog.Any("error", err))
		return shared.ErrNotificationFailed
	}
	s.sent.Add(1)
	return nil
}

func str(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
