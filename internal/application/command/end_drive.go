package command

import (
	"context"
	"fmt"
	"io"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// END DRIVE COMMAND
// Completes a drive: appends the Final Selection phase from the final
// shortlist roster, marks every shortlisted student Selected and flips the
// drive into its terminal Completed status. All of it commits atomically
// through a single aggregate save; notification dispatch stays outside the
// transaction.
// ══════════════════════════════════════════════════════════════════════════════

// EndDriveCommand contains the data needed to end a drive.
type EndDriveCommand struct {
	// DriveID is the drive being completed.
	DriveID shared.DriveID

	// FinalShortlistFile is the mandatory roster of finally selected students.
	FinalShortlistFile io.Reader

	// Requirements and Instructions for the final phase.
	Requirements string
	Instructions string

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c EndDriveCommand) Validate() error {
	if c.DriveID.IsEmpty() {
		return shared.NewDomainError("drive", "EndDrive", shared.ErrInvalidID, "drive id is required")
	}
	if c.FinalShortlistFile == nil {
		return shared.ErrMissingFinal
	}
	return nil
}

// EndDriveResult contains the result of a drive completion.
type EndDriveResult struct {
	// FinalPhase is the appended Final Selection phase.
	FinalPhase *drive.Phase

	// Selected lists the students marked Selected.
	Selected []shared.StudentID

	// Warnings lists roster rows that could not be resolved.
	Warnings []string

	// Events contains domain events generated by the command.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EndDriveHandler handles the EndDriveCommand.
type EndDriveHandler struct {
	driveRepo      drive.Repository
	ingestor       RosterIngestor
	eventPublisher shared.EventPublisher
}

// NewEndDriveHandler creates a new EndDriveHandler.
func NewEndDriveHandler(
	driveRepo drive.Repository,
	ingestor RosterIngestor,
	eventPublisher shared.EventPublisher,
) *EndDriveHandler {
	return &EndDriveHandler{
		driveRepo:      driveRepo,
		ingestor:       ingestor,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the command. It reuses the same diff machinery as a
// regular phase append.
func (h *EndDriveHandler) Handle(ctx context.Context, cmd EndDriveCommand) (*EndDriveResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	roster, err := h.ingestor.ParseRoster(ctx, cmd.FinalShortlistFile)
	if err != nil {
		return nil, err
	}

	d, err := h.driveRepo.GetByID(ctx, cmd.DriveID)
	if err != nil {
		return nil, err
	}

	prev := drive.NewStudentSet()
	if p := d.CurrentPhase(); p != nil {
		prev = p.Shortlisted.Clone()
	}

	phase, err := d.AddPhase(drive.AddPhaseParams{
		Name:         drive.PhaseFinalSelection,
		Requirements: cmd.Requirements,
		Instructions: cmd.Instructions,
		Shortlisted:  roster.Resolved,
	})
	if err != nil {
		return nil, err
	}

	selected, err := d.Complete()
	if err != nil {
		return nil, err
	}

	if err := h.driveRepo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("end_drive: persist: %w", err)
	}

	entered, left := drive.DiffShortlists(prev, phase.Shortlisted)
	events := shortlistChangeEvents(d, phase, entered, left)
	for _, sid := range selected {
		events = append(events, shared.NewStudentSelectedEvent(
			d.ID.String(), sid.String(), d.CompanyName, d.Role))
	}
	ids := make([]string, len(selected))
	for i, sid := range selected {
		ids[i] = sid.String()
	}
	events = append(events, shared.NewDriveCompletedEvent(
		d.ID.String(), d.CompanyName, ids, len(d.Phases), len(d.Applications)))
	publishEvents(h.eventPublisher, events)

	return &EndDriveResult{
		FinalPhase: phase,
		Selected:   selected,
		Warnings:   roster.Warnings,
		Events:     events,
	}, nil
}
