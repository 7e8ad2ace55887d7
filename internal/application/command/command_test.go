package command

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/persistence/memory"
)

const (
	idA = shared.StudentID("aaaaaaaa-0000-0000-0000-000000000001")
	idB = shared.StudentID("aaaaaaaa-0000-0000-0000-000000000002")
	idC = shared.StudentID("aaaaaaaa-0000-0000-0000-000000000003")
)

// ─────────────────────────────────────────────────────────────────────────────
// Test doubles
// ─────────────────────────────────────────────────────────────────────────────

type stubIDGen struct {
	next int
}

func (g *stubIDGen) GenerateID() string {
	g.next++
	return fmt.Sprintf("11111111-2222-3333-4444-%012d", g.next)
}

type stubDirectory struct {
	byID    map[shared.StudentID]*student.Student
	byIdent map[shared.Identifier]*student.Student
}

func newStubDirectory(students ...*student.Student) *stubDirectory {
	d := &stubDirectory{
		byID:    make(map[shared.StudentID]*student.Student),
		byIdent: make(map[shared.Identifier]*student.Student),
	}
	for _, s := range students {
		d.byID[shared.StudentID(s.ID)] = s
		d.byIdent[shared.Identifier(s.Email)] = s
		d.byIdent[shared.Identifier(s.RegistrationNumber)] = s
	}
	return d
}

func (d *stubDirectory) Resolve(_ context.Context, ident shared.Identifier) (*student.Student, error) {
	if s, ok := d.byIdent[ident.Normalize()]; ok {
		return s.Clone(), nil
	}
	return nil, shared.ErrStudentNotFound
}

func (d *stubDirectory) ResolveByID(_ context.Context, id shared.StudentID) (*student.Student, error) {
	if s, ok := d.byID[id]; ok {
		return s.Clone(), nil
	}
	return nil, shared.ErrStudentNotFound
}

func (d *stubDirectory) ResolveMany(_ context.Context, ids []shared.StudentID) ([]*student.Student, error) {
	var out []*student.Student
	for _, id := range ids {
		if s, ok := d.byID[id]; ok {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// stubIngestor replays canned roster results in FIFO order.
type stubIngestor struct {
	queue []*RosterResult
	err   error
}

func (s *stubIngestor) ParseRoster(_ context.Context, _ io.Reader) (*RosterResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.queue) == 0 {
		return &RosterResult{Resolved: drive.NewStudentSet()}, nil
	}
	res := s.queue[0]
	s.queue = s.queue[1:]
	return res, nil
}

func rosterOf(ids ...shared.StudentID) *RosterResult {
	return &RosterResult{Resolved: drive.NewStudentSet(ids...), Rows: len(ids)}
}

// capturingBus records every published event.
type capturingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *capturingBus) Publish(e shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *capturingBus) ofType(t shared.EventType) []shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func testStudent(id shared.StudentID, n int) *student.Student {
	return &student.Student{
		ID:                 id.String(),
		Name:               fmt.Sprintf("Student %d", n),
		Email:              shared.Email(fmt.Sprintf("student%d@college.edu", n)),
		RegistrationNumber: shared.RegistrationNumber(fmt.Sprintf("REG20210%02d", n)),
		Branch:             "CSE",
		Batch:              2026,
		CGPA:               8.2,
		Backlogs:           0,
		SemestersCompleted: 6,
	}
}

type fixture struct {
	repo      *memory.DriveRepository
	directory *stubDirectory
	ingestor  *stubIngestor
	bus       *capturingBus
	driveID   shared.DriveID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      memory.NewDriveRepository(),
		directory: newStubDirectory(testStudent(idA, 1), testStudent(idB, 2), testStudent(idC, 3)),
		ingestor:  &stubIngestor{},
		bus:       &capturingBus{},
	}

	h := NewCreateDriveHandler(f.repo, &stubIDGen{}, f.bus)
	res, err := h.Handle(context.Background(), CreateDriveCommand{
		CompanyName:           "Innotech Systems",
		Role:                  "Software Engineer",
		MinCGPA:               7.5,
		MaxBacklogs:           1,
		MinSemestersCompleted: 4,
		EligibleBranches:      []string{"CSE", "ECE"},
	})
	require.NoError(t, err)
	f.driveID = res.DriveID
	return f
}

func (f *fixture) addPhase(t *testing.T, name string, roster *RosterResult) *AddPhaseResult {
	t.Helper()
	f.ingestor.queue = append(f.ingestor.queue, roster)
	h := NewAddPhaseHandler(f.repo, f.ingestor, f.bus)
	res, err := h.Handle(context.Background(), AddPhaseCommand{
		DriveID:       f.driveID,
		PhaseName:     name,
		ShortlistFile: strings.NewReader("stub"),
	})
	require.NoError(t, err)
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateDrive
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateDriveHandler(t *testing.T) {
	f := newFixture(t)

	d, err := f.repo.GetByID(context.Background(), f.driveID)
	require.NoError(t, err)
	assert.Equal(t, drive.StatusUpcoming, d.Status)
	assert.Len(t, f.bus.ofType(shared.EventDriveCreated), 1)
}

func TestCreateDriveHandler_Validation(t *testing.T) {
	h := NewCreateDriveHandler(memory.NewDriveRepository(), &stubIDGen{}, nil)

	_, err := h.Handle(context.Background(), CreateDriveCommand{Role: "SE", EligibleBranches: []string{"CSE"}})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

// ─────────────────────────────────────────────────────────────────────────────
// Apply
// ─────────────────────────────────────────────────────────────────────────────

func TestApplyHandler(t *testing.T) {
	f := newFixture(t)
	h := NewApplyHandler(f.repo, f.directory, f.bus)

	res, err := h.Handle(context.Background(), ApplyCommand{DriveID: f.driveID, StudentID: idA})
	require.NoError(t, err)
	assert.Equal(t, drive.ApplicationApplied, res.Application.Status)
	assert.Len(t, f.bus.ofType(shared.EventApplicationSubmitted), 1)
}

func TestApplyHandler_Idempotence(t *testing.T) {
	f := newFixture(t)
	h := NewApplyHandler(f.repo, f.directory, f.bus)

	_, err := h.Handle(context.Background(), ApplyCommand{DriveID: f.driveID, StudentID: idA})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), ApplyCommand{DriveID: f.driveID, StudentID: idA})
	assert.ErrorIs(t, err, shared.ErrAlreadyApplied)

	d, err := f.repo.GetByID(context.Background(), f.driveID)
	require.NoError(t, err)
	assert.Len(t, d.Applications, 1)
}

func TestApplyHandler_NotEligible(t *testing.T) {
	f := newFixture(t)
	low := testStudent(idC, 3)
	low.CGPA = 7.4 // drive requires 7.5
	f.directory = newStubDirectory(low)

	h := NewApplyHandler(f.repo, f.directory, f.bus)
	_, err := h.Handle(context.Background(), ApplyCommand{DriveID: f.driveID, StudentID: idC})
	assert.ErrorIs(t, err, shared.ErrNotEligible)
}

func TestApplyHandler_UnknownStudent(t *testing.T) {
	f := newFixture(t)
	h := NewApplyHandler(f.repo, f.directory, f.bus)

	_, err := h.Handle(context.Background(), ApplyCommand{
		DriveID:   f.driveID,
		StudentID: "aaaaaaaa-0000-0000-0000-0000000000ff",
	})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// AddPhase
// ─────────────────────────────────────────────────────────────────────────────

func TestAddPhaseHandler_FirstPhase(t *testing.T) {
	f := newFixture(t)

	res := f.addPhase(t, "resume_screening", rosterOf(idA, idB, idC))
	assert.Equal(t, 0, res.Phase.Index)
	assert.True(t, res.Phase.Unattended.IsEmpty())

	d, err := f.repo.GetByID(context.Background(), f.driveID)
	require.NoError(t, err)
	assert.Equal(t, drive.StatusInProgress, d.Status)
}

func TestAddPhaseHandler_UnattendedDiff(t *testing.T) {
	f := newFixture(t)

	f.addPhase(t, "resume_screening", rosterOf(idA, idB, idC))
	res := f.addPhase(t, "written_test", rosterOf(idA, idC))

	assert.Equal(t, 1, res.Phase.Unattended.Len())
	assert.True(t, res.Phase.Unattended.Contains(idB))
	assert.Equal(t, []shared.StudentID{idB}, res.Left)

	// One unattended notification, exactly for B.
	left := f.bus.ofType(shared.EventStudentUnattended)
	require.Len(t, left, 1)
	assert.Equal(t, idB.String(), left[0].Payload()["student_id"])
}

func TestAddPhaseHandler_MissingShortlist(t *testing.T) {
	f := newFixture(t)
	h := NewAddPhaseHandler(f.repo, f.ingestor, f.bus)

	_, err := h.Handle(context.Background(), AddPhaseCommand{
		DriveID:   f.driveID,
		PhaseName: "written_test",
	})
	assert.ErrorIs(t, err, shared.ErrMissingShortlist)
}

func TestAddPhaseHandler_WarningsPropagate(t *testing.T) {
	f := newFixture(t)
	roster := rosterOf(idA)
	roster.Warnings = []string{`row 3: identifier "ghost@college.edu" not found`}

	res := f.addPhase(t, "resume_screening", roster)
	assert.Len(t, res.Warnings, 1)
}

func TestAddPhaseHandler_InvalidPhaseName(t *testing.T) {
	f := newFixture(t)
	h := NewAddPhaseHandler(f.repo, f.ingestor, f.bus)

	_, err := h.Handle(context.Background(), AddPhaseCommand{
		DriveID:       f.driveID,
		PhaseName:     "vibes_check",
		ShortlistFile: strings.NewReader("stub"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidPhaseName)
}

// ─────────────────────────────────────────────────────────────────────────────
// EndDrive
// ─────────────────────────────────────────────────────────────────────────────

func TestEndDriveHandler(t *testing.T) {
	f := newFixture(t)
	applyAll(t, f, idA, idB, idC)
	f.addPhase(t, "written_test", rosterOf(idA, idB, idC))

	f.ingestor.queue = append(f.ingestor.queue, rosterOf(idA, idC))
	h := NewEndDriveHandler(f.repo, f.ingestor, f.bus)
	res, err := h.Handle(context.Background(), EndDriveCommand{
		DriveID:            f.driveID,
		FinalShortlistFile: strings.NewReader("stub"),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []shared.StudentID{idA, idC}, res.Selected)
	assert.Equal(t, drive.PhaseFinalSelection, res.FinalPhase.Name)

	d, err := f.repo.GetByID(context.Background(), f.driveID)
	require.NoError(t, err)
	assert.Equal(t, drive.StatusCompleted, d.Status)
	assert.Equal(t, drive.ApplicationSelected, d.ApplicationOf(idA).Status)
	assert.Equal(t, drive.ApplicationSelected, d.ApplicationOf(idC).Status)
	assert.Equal(t, drive.ApplicationApplied, d.ApplicationOf(idB).Status)

	assert.Len(t, f.bus.ofType(shared.EventStudentSelected), 2)
	assert.Len(t, f.bus.ofType(shared.EventDriveCompleted), 1)

	// A completed drive rejects further phase appends.
	f.ingestor.queue = append(f.ingestor.queue, rosterOf(idA))
	ah := NewAddPhaseHandler(f.repo, f.ingestor, f.bus)
	_, err = ah.Handle(context.Background(), AddPhaseCommand{
		DriveID:       f.driveID,
		PhaseName:     "hr_interview",
		ShortlistFile: strings.NewReader("stub"),
	})
	assert.ErrorIs(t, err, shared.ErrDriveClosed)
}

func TestEndDriveHandler_MissingFinalShortlist(t *testing.T) {
	f := newFixture(t)
	h := NewEndDriveHandler(f.repo, f.ingestor, f.bus)

	_, err := h.Handle(context.Background(), EndDriveCommand{DriveID: f.driveID})
	assert.ErrorIs(t, err, shared.ErrMissingFinal)
}

func applyAll(t *testing.T, f *fixture, ids ...shared.StudentID) {
	t.Helper()
	h := NewApplyHandler(f.repo, f.directory, f.bus)
	for _, id := range ids {
		_, err := h.Handle(context.Background(), ApplyCommand{DriveID: f.driveID, StudentID: id})
		require.NoError(t, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// SetStatus & shortlist edits
// ─────────────────────────────────────────────────────────────────────────────

func TestSetStatusHandler(t *testing.T) {
	f := newFixture(t)
	applyAll(t, f, idA)

	h := NewSetStatusHandler(f.repo, f.bus)
	res, err := h.Handle(context.Background(), SetStatusCommand{
		DriveID:   f.driveID,
		StudentID: idA,
		Status:    "rejected",
	})
	require.NoError(t, err)
	assert.Equal(t, drive.ApplicationApplied, res.OldStatus)
	assert.Equal(t, drive.ApplicationRejected, res.NewStatus)
}

func TestSetStatusHandler_UnknownStudent(t *testing.T) {
	f := newFixture(t)
	h := NewSetStatusHandler(f.repo, f.bus)

	_, err := h.Handle(context.Background(), SetStatusCommand{
		DriveID:   f.driveID,
		StudentID: idA,
		Status:    "rejected",
	})
	assert.ErrorIs(t, err, shared.ErrUnknownApplicant)
}

func TestShortlistHandler_AddBypassesEligibility(t *testing.T) {
	f := newFixture(t)
	f.addPhase(t, "written_test", rosterOf(idA))

	// Student with a failing CGPA can still be added manually.
	low := testStudent(idB, 2)
	low.CGPA = 5.0
	f.directory = newStubDirectory(low)

	h := NewShortlistHandler(f.repo, f.directory, f.bus)
	res, err := h.HandleAdd(context.Background(), AddStudentToPhaseCommand{
		DriveID: f.driveID,
		Email:   low.Email.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, idB, res.StudentID)

	d, err := f.repo.GetByID(context.Background(), f.driveID)
	require.NoError(t, err)
	assert.True(t, d.CurrentPhase().Shortlisted.Contains(idB))
	assert.Equal(t, drive.ApplicationSelected, d.ApplicationOf(idB).Status)
}

func TestShortlistHandler_AddUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.addPhase(t, "written_test", rosterOf(idA))

	h := NewShortlistHandler(f.repo, f.directory, f.bus)
	_, err := h.HandleAdd(context.Background(), AddStudentToPhaseCommand{
		DriveID: f.driveID,
		Email:   "nobody@college.edu",
	})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestShortlistHandler_Remove(t *testing.T) {
	f := newFixture(t)
	applyAll(t, f, idA)
	f.addPhase(t, "written_test", rosterOf(idA))

	h := NewShortlistHandler(f.repo, f.directory, f.bus)
	_, err := h.HandleRemove(context.Background(), RemoveStudentFromPhaseCommand{
		DriveID:   f.driveID,
		StudentID: idA,
	})
	require.NoError(t, err)

	d, err := f.repo.GetByID(context.Background(), f.driveID)
	require.NoError(t, err)
	assert.Equal(t, drive.ApplicationRejected, d.ApplicationOf(idA).Status)
	// The finalized phase snapshot is not rewritten.
	assert.True(t, d.CurrentPhase().Shortlisted.Contains(idA))
}

func TestShortlistHandler_RemoveEmitsPriorStatus(t *testing.T) {
	f := newFixture(t)
	applyAll(t, f, idA)
	f.addPhase(t, "written_test", rosterOf(idA))

	h := NewShortlistHandler(f.repo, f.directory, f.bus)
	_, err := h.HandleRemove(context.Background(), RemoveStudentFromPhaseCommand{
		DriveID:   f.driveID,
		StudentID: idA,
	})
	require.NoError(t, err)

	removed := f.bus.ofType(shared.EventStudentRemoved)
	require.Len(t, removed, 1)

	changed := f.bus.ofType(shared.EventApplicationStatusChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload()
	assert.Equal(t, string(drive.ApplicationApplied), payload["old_status"])
	assert.Equal(t, string(drive.ApplicationRejected), payload["new_status"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Optimistic concurrency
// ─────────────────────────────────────────────────────────────────────────────

func TestConcurrentAddPhase_StaleVersionLoses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two coordinators load the same version of the drive.
	d1, err := f.repo.GetByID(ctx, f.driveID)
	require.NoError(t, err)
	d2, err := f.repo.GetByID(ctx, f.driveID)
	require.NoError(t, err)

	_, err = d1.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseResumeScreening,
		Shortlisted: drive.NewStudentSet(idA, idB),
	})
	require.NoError(t, err)
	_, err = d2.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseWrittenTest,
		Shortlisted: drive.NewStudentSet(idC),
	})
	require.NoError(t, err)

	// Exactly one append wins; the stale one must fail and change nothing.
	require.NoError(t, f.repo.Save(ctx, d1))
	err = f.repo.Save(ctx, d2)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	stored, err := f.repo.GetByID(ctx, f.driveID)
	require.NoError(t, err)
	require.Len(t, stored.Phases, 1)
	assert.Equal(t, drive.PhaseResumeScreening, stored.Phases[0].Name)
}
