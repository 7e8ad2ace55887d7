package command

import (
	"context"
	"fmt"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY COMMAND
// A student applies to an open placement drive.
// The eligibility evaluation acts as the admission gate; the repository's
// unique constraint backs the at-most-one-application invariant under
// concurrent double submission.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyCommand contains the data needed to apply to a drive.
type ApplyCommand struct {
	// DriveID is the drive being applied to.
	DriveID shared.DriveID

	// StudentID is the applying student.
	StudentID shared.StudentID

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c ApplyCommand) Validate() error {
	if c.DriveID.IsEmpty() {
		return shared.NewDomainError("drive", "Apply", shared.ErrInvalidID, "drive id is required")
	}
	if c.StudentID.IsEmpty() {
		return shared.NewDomainError("drive", "Apply", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// ApplyResult contains the result of an application.
type ApplyResult struct {
	// Application is the created application.
	Application *drive.Application

	// Events contains domain events generated by the command.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplyHandler handles the ApplyCommand.
type ApplyHandler struct {
	driveRepo      drive.Repository
	directory      student.Directory
	eventPublisher shared.EventPublisher
}

// NewApplyHandler creates a new ApplyHandler.
func NewApplyHandler(
	driveRepo drive.Repository,
	directory student.Directory,
	eventPublisher shared.EventPublisher,
) *ApplyHandler {
	return &ApplyHandler{
		driveRepo:      driveRepo,
		directory:      directory,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the command.
//
// Failure modes, in order: drive not found, student not found, DriveClosed,
// NotEligible, AlreadyApplied, ConcurrentModification (retryable).
func (h *ApplyHandler) Handle(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	d, err := h.driveRepo.GetByID(ctx, cmd.DriveID)
	if err != nil {
		return nil, err
	}

	s, err := h.directory.ResolveByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	app, err := d.Apply(s)
	if err != nil {
		return nil, err
	}

	if err := h.driveRepo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("apply: persist: %w", err)
	}

	events := []shared.Event{
		shared.NewApplicationSubmittedEvent(d.ID.String(), cmd.StudentID.String(), d.CompanyName, d.Role),
	}
	publishEvents(h.eventPublisher, events)

	return &ApplyResult{
		Application: app,
		Events:      events,
	}, nil
}
