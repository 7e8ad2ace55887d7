package command

import (
	"context"
	"fmt"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRENT PHASE SHORTLIST EDITS
// Manual coordinator overrides on the latest phase, applied before the next
// phase is appended. Adding a student deliberately skips the eligibility
// evaluation: it is an escape hatch, not a roster ingest.
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentToPhaseCommand adds one student to the current phase shortlist.
type AddStudentToPhaseCommand struct {
	// DriveID is the drive being edited.
	DriveID shared.DriveID

	// Email identifies the student in the directory.
	Email string

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c AddStudentToPhaseCommand) Validate() error {
	if c.DriveID.IsEmpty() {
		return shared.NewDomainError("drive", "AddStudent", shared.ErrInvalidID, "drive id is required")
	}
	if _, err := shared.NewEmail(c.Email); err != nil {
		return err
	}
	return nil
}

// RemoveStudentFromPhaseCommand rejects one student on the current phase.
type RemoveStudentFromPhaseCommand struct {
	// DriveID is the drive being edited.
	DriveID shared.DriveID

	// StudentID is the student to reject.
	StudentID shared.StudentID

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c RemoveStudentFromPhaseCommand) Validate() error {
	if c.DriveID.IsEmpty() {
		return shared.NewDomainError("drive", "RemoveStudent", shared.ErrInvalidID, "drive id is required")
	}
	if c.StudentID.IsEmpty() {
		return shared.NewDomainError("drive", "RemoveStudent", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// ShortlistEditResult contains the result of a shortlist edit.
type ShortlistEditResult struct {
	// StudentID is the affected student.
	StudentID shared.StudentID

	// PhaseIndex is the index of the edited (current) phase.
	PhaseIndex int

	// Events contains domain events generated by the command.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ShortlistHandler handles both shortlist edit commands.
type ShortlistHandler struct {
	driveRepo      drive.Repository
	directory      student.Directory
	eventPublisher shared.EventPublisher
}

// NewShortlistHandler creates a new ShortlistHandler.
func NewShortlistHandler(
	driveRepo drive.Repository,
	directory student.Directory,
	eventPublisher shared.EventPublisher,
) *ShortlistHandler {
	return &ShortlistHandler{
		driveRepo:      driveRepo,
		directory:      directory,
		eventPublisher: eventPublisher,
	}
}

// HandleAdd executes AddStudentToPhaseCommand.
func (h *ShortlistHandler) HandleAdd(ctx context.Context, cmd AddStudentToPhaseCommand) (*ShortlistEditResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	email, _ := shared.NewEmail(cmd.Email)

	s, err := h.directory.Resolve(ctx, shared.Identifier(email))
	if err != nil {
		return nil, err
	}
	sid := shared.StudentID(s.ID)

	d, err := h.driveRepo.GetByID(ctx, cmd.DriveID)
	if err != nil {
		return nil, err
	}

	if err := d.AddToCurrentShortlist(sid); err != nil {
		return nil, err
	}

	if err := h.driveRepo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("add_student: persist: %w", err)
	}

	phase := d.CurrentPhase()
	events := []shared.Event{
		shared.NewStudentShortlistedEvent(d.ID.String(), sid.String(),
			phase.Index, phase.Name.String(), d.CompanyName),
		shared.NewStudentSelectedEvent(d.ID.String(), sid.String(), d.CompanyName, d.Role),
	}
	publishEvents(h.eventPublisher, events)

	return &ShortlistEditResult{
		StudentID:  sid,
		PhaseIndex: phase.Index,
		Events:     events,
	}, nil
}

// HandleRemove executes RemoveStudentFromPhaseCommand.
func (h *ShortlistHandler) HandleRemove(ctx context.Context, cmd RemoveStudentFromPhaseCommand) (*ShortlistEditResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	d, err := h.driveRepo.GetByID(ctx, cmd.DriveID)
	if err != nil {
		return nil, err
	}

	oldStatus, err := d.RemoveFromCurrentShortlist(cmd.StudentID)
	if err != nil {
		return nil, err
	}

	if err := h.driveRepo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("remove_student: persist: %w", err)
	}

	phase := d.CurrentPhase()
	events := []shared.Event{
		shared.NewStudentRemovedEvent(d.ID.String(), cmd.StudentID.String(),
			phase.Index, d.CompanyName),
		shared.NewApplicationStatusChangedEvent(d.ID.String(), cmd.StudentID.String(),
			string(oldStatus), string(drive.ApplicationRejected)),
	}
	publishEvents(h.eventPublisher, events)

	return &ShortlistEditResult{
		StudentID:  cmd.StudentID,
		PhaseIndex: phase.Index,
		Events:     events,
	}, nil
}
