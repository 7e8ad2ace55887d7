// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Drive lifecycle events
	EventDriveCreated    EventType = "drive.created"
	EventDriveInProgress EventType = "drive.in_progress"
	EventDriveCompleted  EventType = "drive.completed"

	// Application events
	EventApplicationSubmitted     EventType = "application.submitted"
	EventApplicationStatusChanged EventType = "application.status_changed"

	// Phase events
	EventPhaseAdded EventType = "phase.added"

	// Shortlist events
	EventStudentShortlisted EventType = "shortlist.student_shortlisted"
	EventStudentUnattended  EventType = "shortlist.student_unattended"
	EventStudentSelected    EventType = "shortlist.student_selected"
	EventStudentRemoved     EventType = "shortlist.student_removed"

	// Roster events
	EventRosterIngested EventType = "roster.ingested"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Drive Events
// ═══════════════════════════════════════════════════════════════════════════

// DriveCreatedEvent is emitted when a new placement drive is created.
type DriveCreatedEvent struct {
	BaseEvent
	CompanyName string `json:"company_name"`
	Role        string `json:"role"`
	DriveDate   string `json:"drive_date"`
}

// Payload implements Event interface.
func (e DriveCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"company_name": e.CompanyName,
		"role":         e.Role,
		"drive_date":   e.DriveDate,
	}
}

// NewDriveCreatedEvent creates a new DriveCreatedEvent.
func NewDriveCreatedEvent(driveID, companyName, role, driveDate string) DriveCreatedEvent {
	return DriveCreatedEvent{
		BaseEvent:   NewBaseEvent(EventDriveCreated, driveID),
		CompanyName: companyName,
		Role:        role,
		DriveDate:   driveDate,
	}
}

// DriveCompletedEvent is emitted when a drive reaches its terminal state.
type DriveCompletedEvent struct {
	BaseEvent
	CompanyName   string   `json:"company_name"`
	SelectedIDs   []string `json:"selected_ids"`
	TotalPhases   int      `json:"total_phases"`
	TotalApplied  int      `json:"total_applied"`
	TotalSelected int      `json:"total_selected"`
}

// Payload implements Event interface.
func (e DriveCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"company_name":   e.CompanyName,
		"selected_ids":   e.SelectedIDs,
		"total_phases":   e.TotalPhases,
		"total_applied":  e.TotalApplied,
		"total_selected": e.TotalSelected,
	}
}

// NewDriveCompletedEvent creates a new DriveCompletedEvent.
func NewDriveCompletedEvent(driveID, companyName string, selectedIDs []string, totalPhases, totalApplied int) DriveCompletedEvent {
	return DriveCompletedEvent{
		BaseEvent:     NewBaseEvent(EventDriveCompleted, driveID),
		CompanyName:   companyName,
		SelectedIDs:   selectedIDs,
		TotalPhases:   totalPhases,
		TotalApplied:  totalApplied,
		TotalSelected: len(selectedIDs),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Application Events
// ═══════════════════════════════════════════════════════════════════════════

// ApplicationSubmittedEvent is emitted when a student applies to a drive.
type ApplicationSubmittedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	CompanyName string `json:"company_name"`
	Role        string `json:"role"`
}

// Payload implements Event interface.
func (e ApplicationSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"company_name": e.CompanyName,
		"role":         e.Role,
	}
}

// NewApplicationSubmittedEvent creates a new ApplicationSubmittedEvent.
func NewApplicationSubmittedEvent(driveID, studentID, companyName, role string) ApplicationSubmittedEvent {
	return ApplicationSubmittedEvent{
		BaseEvent:   NewBaseEvent(EventApplicationSubmitted, driveID),
		StudentID:   studentID,
		CompanyName: companyName,
		Role:        role,
	}
}

// ApplicationStatusChangedEvent is emitted on any application status change.
type ApplicationStatusChangedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Payload implements Event interface.
func (e ApplicationStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_status": e.OldStatus,
		"new_status": e.NewStatus,
	}
}

// NewApplicationStatusChangedEvent creates a new ApplicationStatusChangedEvent.
func NewApplicationStatusChangedEvent(driveID, studentID, oldStatus, newStatus string) ApplicationStatusChangedEvent {
	return ApplicationStatusChangedEvent{
		BaseEvent: NewBaseEvent(EventApplicationStatusChanged, driveID),
		StudentID: studentID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Phase & Shortlist Events
// ═══════════════════════════════════════════════════════════════════════════

// PhaseAddedEvent is emitted when a new selection phase is appended to a drive.
type PhaseAddedEvent struct {
	BaseEvent
	PhaseIndex      int    `json:"phase_index"`
	PhaseName       string `json:"phase_name"`
	CompanyName     string `json:"company_name"`
	ShortlistedSize int    `json:"shortlisted_size"`
	UnattendedSize  int    `json:"unattended_size"`
}

// Payload implements Event interface.
func (e PhaseAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"phase_index":      e.PhaseIndex,
		"phase_name":       e.PhaseName,
		"company_name":     e.CompanyName,
		"shortlisted_size": e.ShortlistedSize,
		"unattended_size":  e.UnattendedSize,
	}
}

// NewPhaseAddedEvent creates a new PhaseAddedEvent.
func NewPhaseAddedEvent(driveID string, phaseIndex int, phaseName, companyName string, shortlisted, unattended int) PhaseAddedEvent {
	return PhaseAddedEvent{
		BaseEvent:       NewBaseEvent(EventPhaseAdded, driveID),
		PhaseIndex:      phaseIndex,
		PhaseName:       phaseName,
		CompanyName:     companyName,
		ShortlistedSize: shortlisted,
		UnattendedSize:  unattended,
	}
}

// StudentShortlistedEvent is emitted for each student entering a phase shortlist.
type StudentShortlistedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	PhaseIndex  int    `json:"phase_index"`
	PhaseName   string `json:"phase_name"`
	CompanyName string `json:"company_name"`
}

// Payload implements Event interface.
func (e StudentShortlistedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"phase_index":  e.PhaseIndex,
		"phase_name":   e.PhaseName,
		"company_name": e.CompanyName,
	}
}

// NewStudentShortlistedEvent creates a new StudentShortlistedEvent.
func NewStudentShortlistedEvent(driveID, studentID string, phaseIndex int, phaseName, companyName string) StudentShortlistedEvent {
	return StudentShortlistedEvent{
		BaseEvent:   NewBaseEvent(EventStudentShortlisted, driveID),
		StudentID:   studentID,
		PhaseIndex:  phaseIndex,
		PhaseName:   phaseName,
		CompanyName: companyName,
	}
}

// StudentRemovedEvent is emitted when a coordinator rejects a student on the
// current phase shortlist.
type StudentRemovedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	PhaseIndex  int    `json:"phase_index"`
	CompanyName string `json:"company_name"`
}

// Payload implements Event interface.
func (e StudentRemovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"phase_index":  e.PhaseIndex,
		"company_name": e.CompanyName,
	}
}

// NewStudentRemovedEvent creates a new StudentRemovedEvent.
func NewStudentRemovedEvent(driveID, studentID string, phaseIndex int, companyName string) StudentRemovedEvent {
	return StudentRemovedEvent{
		BaseEvent:   NewBaseEvent(EventStudentRemoved, driveID),
		StudentID:   studentID,
		PhaseIndex:  phaseIndex,
		CompanyName: companyName,
	}
}

// StudentUnattendedEvent is emitted for each student who left the shortlist
// relative to the previous phase.
type StudentUnattendedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	PhaseIndex  int    `json:"phase_index"`
	PhaseName   string `json:"phase_name"`
	CompanyName string `json:"company_name"`
}

// Payload implements Event interface.
func (e StudentUnattendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"phase_index":  e.PhaseIndex,
		"phase_name":   e.PhaseName,
		"company_name": e.CompanyName,
	}
}

// NewStudentUnattendedEvent creates a new StudentUnattendedEvent.
func NewStudentUnattendedEvent(driveID, studentID string, phaseIndex int, phaseName, companyName string) StudentUnattendedEvent {
	return StudentUnattendedEvent{
		BaseEvent:   NewBaseEvent(EventStudentUnattended, driveID),
		StudentID:   studentID,
		PhaseIndex:  phaseIndex,
		PhaseName:   phaseName,
		CompanyName: companyName,
	}
}

// StudentSelectedEvent is emitted when a student reaches final selection.
type StudentSelectedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	CompanyName string `json:"company_name"`
	Role        string `json:"role"`
}

// Payload implements Event interface.
func (e StudentSelectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"company_name": e.CompanyName,
		"role":         e.Role,
	}
}

// NewStudentSelectedEvent creates a new StudentSelectedEvent.
func NewStudentSelectedEvent(driveID, studentID, companyName, role string) StudentSelectedEvent {
	return StudentSelectedEvent{
		BaseEvent:   NewBaseEvent(EventStudentSelected, driveID),
		StudentID:   studentID,
		CompanyName: companyName,
		Role:        role,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
