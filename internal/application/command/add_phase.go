package command

import (
	"context"
	"fmt"
	"io"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD PHASE COMMAND
// Appends a selection phase to a drive from an uploaded roster.
// This is the unit of atomicity: the phase append, the implicit
// Upcoming -> InProgress transition and the version bump commit together
// or not at all. Roster parsing runs before the aggregate is loaded so the
// CPU-bound work stays off the critical section.
// ══════════════════════════════════════════════════════════════════════════════

// AddPhaseCommand contains the data needed to append a phase.
type AddPhaseCommand struct {
	// DriveID is the drive receiving the phase.
	DriveID shared.DriveID

	// PhaseName is one of the fixed phase types.
	PhaseName string

	// Requirements and Instructions are free-form coordinator text.
	Requirements string
	Instructions string

	// ShortlistFile is the mandatory roster of shortlisted students.
	ShortlistFile io.Reader

	// UnattendedFile is the optional roster of unattended students.
	// When nil, the unattended set is derived as the difference against
	// the previous phase's shortlist.
	UnattendedFile io.Reader

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c AddPhaseCommand) Validate() error {
	if c.DriveID.IsEmpty() {
		return shared.NewDomainError("drive", "AddPhase", shared.ErrInvalidID, "drive id is required")
	}
	if c.ShortlistFile == nil {
		return shared.ErrMissingShortlist
	}
	if _, err := drive.ParsePhaseName(c.PhaseName); err != nil {
		return err
	}
	return nil
}

// AddPhaseResult contains the result of a phase append.
type AddPhaseResult struct {
	// Phase is the created phase.
	Phase *drive.Phase

	// Warnings lists roster rows that could not be resolved and were skipped.
	Warnings []string

	// Entered and Left are the shortlist changes relative to the prior phase.
	Entered []shared.StudentID
	Left    []shared.StudentID

	// Events contains domain events generated by the command.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// RosterResult is the outcome of parsing one roster spreadsheet.
type RosterResult struct {
	// Resolved is the deduplicated set of resolved students.
	Resolved drive.StudentSet

	// Warnings lists rows that failed resolution (skipped, non-fatal).
	Warnings []string

	// Rows is the number of non-empty identifier rows seen.
	Rows int
}

// RosterIngestor parses an uploaded spreadsheet into resolved student refs.
// Unresolved rows are reported as warnings, not errors; an empty resolved
// set from a non-empty file is reported as shared.ErrEmptyRoster.
type RosterIngestor interface {
	ParseRoster(ctx context.Context, r io.Reader) (*RosterResult, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AddPhaseHandler handles the AddPhaseCommand.
type AddPhaseHandler struct {
	driveRepo      drive.Repository
	ingestor       RosterIngestor
	eventPublisher shared.EventPublisher
}

// NewAddPhaseHandler creates a new AddPhaseHandler.
func NewAddPhaseHandler(
	driveRepo drive.Repository,
	ingestor RosterIngestor,
	eventPublisher shared.EventPublisher,
) *AddPhaseHandler {
	return &AddPhaseHandler{
		driveRepo:      driveRepo,
		ingestor:       ingestor,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the command.
func (h *AddPhaseHandler) Handle(ctx context.Context, cmd AddPhaseCommand) (*AddPhaseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	name, _ := drive.ParsePhaseName(cmd.PhaseName)

	shortlist, warnings, err := h.parseRosters(ctx, cmd)
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
		Name:         name,
		Requirements: cmd.Requirements,
		Instructions: cmd.Instructions,
		Shortlisted:  shortlist.resolved,
		Unattended:   shortlist.unattended,
	})
	if err != nil {
		return nil, err
	}

	if err := h.driveRepo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("add_phase: persist: %w", err)
	}

	entered, left := drive.DiffShortlists(prev, phase.Shortlisted)
	events := shortlistChangeEvents(d, phase, entered, left)
	publishEvents(h.eventPublisher, events)

	return &AddPhaseResult{
		Phase:    phase,
		Warnings: warnings,
		Entered:  entered.Sorted(),
		Left:     left.Sorted(),
		Events:   events,
	}, nil
}

// parsedRosters groups the parse results of the two uploads.
type parsedRosters struct {
	resolved   drive.StudentSet
	unattended drive.StudentSet // nil when no unattended file was supplied
}

// parseRosters parses the mandatory shortlist file and the optional
// unattended file, merging their warnings.
func (h *AddPhaseHandler) parseRosters(ctx context.Context, cmd AddPhaseCommand) (parsedRosters, []string, error) {
	out := parsedRosters{}

	res, err := h.ingestor.ParseRoster(ctx, cmd.ShortlistFile)
	if err != nil {
		return out, nil, err
	}
	out.resolved = res.Resolved
	warnings := res.Warnings

	if cmd.UnattendedFile != nil {
		ua, err := h.ingestor.ParseRoster(ctx, cmd.UnattendedFile)
		if err != nil {
			return out, nil, err
		}
		out.unattended = ua.Resolved
		warnings = append(warnings, ua.Warnings...)
	}
	return out, warnings, nil
}

// shortlistChangeEvents builds the per-student notification events for a
// freshly appended phase.
func shortlistChangeEvents(d *drive.Drive, phase *drive.Phase, entered, left drive.StudentSet) []shared.Event {
	events := []shared.Event{
		shared.NewPhaseAddedEvent(d.ID.String(), phase.Index, phase.Name.String(),
			d.CompanyName, phase.Shortlisted.Len(), phase.Unattended.Len()),
	}
	for _, sid := range entered.Sorted() {
		events = append(events, shared.NewStudentShortlistedEvent(
			d.ID.String(), sid.String(), phase.Index, phase.Name.String(), d.CompanyName))
	}
	for _, sid := range left.Sorted() {
		events = append(events, shared.NewStudentUnattendedEvent(
			d.ID.String(), sid.String(), phase.Index, phase.Name.String(), d.CompanyName))
	}
	return events
}
