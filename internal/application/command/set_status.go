package command

import (
	"context"
	"fmt"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET APPLICATION STATUS COMMAND
// Direct administrative override of an application status, e.g. rejecting
// a candidate outside the roster flow.
// ══════════════════════════════════════════════════════════════════════════════

// SetStatusCommand contains the data for a status override.
type SetStatusCommand struct {
	// DriveID is the drive holding the application.
	DriveID shared.DriveID

	// StudentID identifies the application to change.
	StudentID shared.StudentID

	// Status is the new application status.
	Status string

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c SetStatusCommand) Validate() error {
	if c.DriveID.IsEmpty() {
		return shared.NewDomainError("drive", "SetStatus", shared.ErrInvalidID, "drive id is required")
	}
	if c.StudentID.IsEmpty() {
		return shared.NewDomainError("drive", "SetStatus", shared.ErrInvalidID, "student id is required")
	}
	if _, err := drive.ParseApplicationStatus(c.Status); err != nil {
		return err
	}
	return nil
}

// SetStatusResult contains the result of a status override.
type SetStatusResult struct {
	// OldStatus is the status before the override.
	OldStatus drive.ApplicationStatus

	// NewStatus is the status after the override.
	NewStatus drive.ApplicationStatus

	// Events contains domain events generated by the command.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SetStatusHandler handles the SetStatusCommand.
type SetStatusHandler struct {
	driveRepo      drive.Repository
	eventPublisher shared.EventPublisher
}

// NewSetStatusHandler creates a new SetStatusHandler.
func NewSetStatusHandler(driveRepo drive.Repository, eventPublisher shared.EventPublisher) *SetStatusHandler {
	return &SetStatusHandler{
		driveRepo:      driveRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the command.
func (h *SetStatusHandler) Handle(ctx context.Context, cmd SetStatusCommand) (*SetStatusResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	status, _ := drive.ParseApplicationStatus(cmd.Status)

	d, err := h.driveRepo.GetByID(ctx, cmd.DriveID)
	if err != nil {
		return nil, err
	}

	old, err := d.SetApplicationStatus(cmd.StudentID, status)
	if err != nil {
		return nil, err
	}

	if err := h.driveRepo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("set_status: persist: %w", err)
	}

	events := []shared.Event{
		shared.NewApplicationStatusChangedEvent(
			d.ID.String(), cmd.StudentID.String(), string(old), string(status)),
	}
	publishEvents(h.eventPublisher, events)

	return &SetStatusResult{
		OldStatus: old,
		NewStatus: status,
		Events:    events,
	}, nil
}
