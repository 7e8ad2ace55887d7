// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
// They are the sole mutation entry point for the drive lifecycle.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
	"github.com/placement-cell/campus-placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE DRIVE COMMAND
// Creates a new placement drive in the Upcoming state.
// ══════════════════════════════════════════════════════════════════════════════

// CreateDriveCommand contains the data needed to create a drive.
type CreateDriveCommand struct {
	CompanyName           string
	Role                  string
	Description           string
	MinCGPA               float64
	MaxBacklogs           int
	MinSemestersCompleted int
	EligibleBranches      []string
	Date                  time.Time

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c CreateDriveCommand) Validate() error {
	if c.CompanyName == "" {
		return shared.NewDomainError("drive", "CreateDrive", shared.ErrEmptyValue, "company name is required")
	}
	if c.Role == "" {
		return shared.NewDomainError("drive", "CreateDrive", shared.ErrEmptyValue, "role is required")
	}
	if len(c.EligibleBranches) == 0 {
		return shared.NewDomainError("drive", "CreateDrive", shared.ErrEmptyValue, "eligible branches are required")
	}
	return nil
}

// criteria builds the domain criteria from the raw command fields.
func (c CreateDriveCommand) criteria() drive.Criteria {
	branches := make([]student.Branch, 0, len(c.EligibleBranches))
	for _, b := range c.EligibleBranches {
		branches = append(branches, student.Branch(b).Normalize())
	}
	return drive.Criteria{
		MinCGPA:               c.MinCGPA,
		MaxBacklogs:           c.MaxBacklogs,
		MinSemestersCompleted: c.MinSemestersCompleted,
		EligibleBranches:      branches,
	}
}

// CreateDriveResult contains the result of drive creation.
type CreateDriveResult struct {
	// DriveID is the ID of the created drive.
	DriveID shared.DriveID

	// Drive is the created aggregate.
	Drive *drive.Drive

	// Events contains domain events generated during creation.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator generates unique identifiers for new aggregates.
type IDGenerator interface {
	GenerateID() string
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateDriveHandler handles the CreateDriveCommand.
type CreateDriveHandler struct {
	driveRepo      drive.Repository
	idGen          IDGenerator
	eventPublisher shared.EventPublisher
}

// NewCreateDriveHandler creates a new CreateDriveHandler.
func NewCreateDriveHandler(
	driveRepo drive.Repository,
	idGen IDGenerator,
	eventPublisher shared.EventPublisher,
) *CreateDriveHandler {
	return &CreateDriveHandler{
		driveRepo:      driveRepo,
		idGen:          idGen,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the command.
func (h *CreateDriveHandler) Handle(ctx context.Context, cmd CreateDriveCommand) (*CreateDriveResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	id, err := shared.NewDriveID(h.idGen.GenerateID())
	if err != nil {
		return nil, fmt.Errorf("create_drive: generate id: %w", err)
	}

	d, err := drive.NewDrive(drive.NewDriveParams{
		ID:          id,
		CompanyName: cmd.CompanyName,
		Role:        cmd.Role,
		Description: cmd.Description,
		Criteria:    cmd.criteria(),
		Date:        cmd.Date,
	})
	if err != nil {
		return nil, err
	}

	if err := h.driveRepo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create_drive: persist: %w", err)
	}

	events := []shared.Event{
		shared.NewDriveCreatedEvent(id.String(), d.CompanyName, d.Role, timeutil.FormatDateStr(d.Date)),
	}
	publishEvents(h.eventPublisher, events)

	return &CreateDriveResult{
		DriveID: id,
		Drive:   d,
		Events:  events,
	}, nil
}

// publishEvents publishes events best-effort. Notification dispatch is a
// fire-and-forget side channel: a publish failure never rolls back the
// already-committed mutation.
func publishEvents(pub shared.EventPublisher, events []shared.Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		_ = pub.Publish(e)
	}
}
