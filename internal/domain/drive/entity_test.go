package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

const (
	studentA = shared.StudentID("aaaaaaaa-0000-0000-0000-000000000001")
	studentB = shared.StudentID("aaaaaaaa-0000-0000-0000-000000000002")
	studentC = shared.StudentID("aaaaaaaa-0000-0000-0000-000000000003")
)

func newTestDrive(t *testing.T) *Drive {
	t.Helper()
	d, err := NewDrive(NewDriveParams{
		ID:          "11111111-2222-3333-4444-555555555555",
		CompanyName: "Innotech Systems",
		Role:        "Software Engineer",
		Description: "Graduate hiring drive",
		Criteria:    baseCriteria(),
	})
	require.NoError(t, err)
	return d
}

func applicantWithID(id shared.StudentID) *student.Student {
	s := eligibleStudent()
	s.ID = id.String()
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// StudentSet
// ─────────────────────────────────────────────────────────────────────────────

func TestStudentSet_Diff(t *testing.T) {
	prev := NewStudentSet(studentA, studentB, studentC)
	cur := NewStudentSet(studentA, studentC)

	diff := prev.Diff(cur)
	assert.Equal(t, 1, diff.Len())
	assert.True(t, diff.Contains(studentB))
}

func TestStudentSet_Dedup(t *testing.T) {
	s := NewStudentSet(studentA, studentA, studentB)
	assert.Equal(t, 2, s.Len())
}

func TestStudentSet_CloneIsIndependent(t *testing.T) {
	s := NewStudentSet(studentA)
	clone := s.Clone()
	clone.Add(studentB)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestDiffShortlists(t *testing.T) {
	prev := NewStudentSet(studentA, studentB)
	cur := NewStudentSet(studentB, studentC)

	entered, left := DiffShortlists(prev, cur)
	assert.True(t, entered.Contains(studentC))
	assert.Equal(t, 1, entered.Len())
	assert.True(t, left.Contains(studentA))
	assert.Equal(t, 1, left.Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// Status state machine
// ─────────────────────────────────────────────────────────────────────────────

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusUpcoming.CanTransition(StatusInProgress))
	assert.True(t, StatusUpcoming.CanTransition(StatusCompleted))
	assert.True(t, StatusInProgress.CanTransition(StatusCompleted))

	assert.False(t, StatusInProgress.CanTransition(StatusUpcoming))
	assert.False(t, StatusCompleted.CanTransition(StatusUpcoming))
	assert.False(t, StatusCompleted.CanTransition(StatusInProgress))
	assert.False(t, StatusCompleted.CanTransition(StatusCompleted))
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusUpcoming.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
}

// ─────────────────────────────────────────────────────────────────────────────
// Apply
// ─────────────────────────────────────────────────────────────────────────────

func TestDrive_Apply(t *testing.T) {
	d := newTestDrive(t)

	app, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)
	assert.Equal(t, ApplicationApplied, app.Status)
	assert.Equal(t, studentA, app.StudentID)
	assert.Len(t, d.Applications, 1)
}

func TestDrive_Apply_Idempotence(t *testing.T) {
	d := newTestDrive(t)
	s := applicantWithID(studentA)

	_, err := d.Apply(s)
	require.NoError(t, err)

	_, err = d.Apply(s)
	assert.ErrorIs(t, err, shared.ErrAlreadyApplied)
	assert.Len(t, d.Applications, 1)
}

func TestDrive_Apply_NotEligible(t *testing.T) {
	d := newTestDrive(t)
	s := applicantWithID(studentA)
	s.CGPA = 7.4 // minCGPA is 7.5

	_, err := d.Apply(s)
	assert.ErrorIs(t, err, shared.ErrNotEligible)
	assert.Empty(t, d.Applications)
}

func TestDrive_Apply_DriveClosed(t *testing.T) {
	d := completedDrive(t)

	_, err := d.Apply(applicantWithID(studentC))
	assert.ErrorIs(t, err, shared.ErrDriveClosed)
}

// ─────────────────────────────────────────────────────────────────────────────
// AddPhase
// ─────────────────────────────────────────────────────────────────────────────

func TestDrive_AddPhase_FirstPhaseStartsDrive(t *testing.T) {
	d := newTestDrive(t)
	require.Equal(t, StatusUpcoming, d.Status)

	phase, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA, studentB),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, phase.Index)
	assert.Equal(t, StatusInProgress, d.Status)
	assert.True(t, phase.Unattended.IsEmpty())
}

func TestDrive_AddPhase_DiffAgainstPreviousShortlist(t *testing.T) {
	d := newTestDrive(t)

	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA, studentB, studentC),
	})
	require.NoError(t, err)

	phase2, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseWrittenTest,
		Shortlisted: NewStudentSet(studentA, studentC),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, phase2.Index)
	assert.Equal(t, 1, phase2.Unattended.Len())
	assert.True(t, phase2.Unattended.Contains(studentB))
}

func TestDrive_AddPhase_ExplicitUnattendedOverridesDiff(t *testing.T) {
	d := newTestDrive(t)

	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA, studentB),
	})
	require.NoError(t, err)

	phase2, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseWrittenTest,
		Shortlisted: NewStudentSet(studentA),
		Unattended:  NewStudentSet(studentC),
	})
	require.NoError(t, err)

	assert.True(t, phase2.Unattended.Contains(studentC))
	assert.False(t, phase2.Unattended.Contains(studentB))
}

func TestDrive_AddPhase_AppendOnly(t *testing.T) {
	d := newTestDrive(t)

	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA, studentB),
	})
	require.NoError(t, err)

	firstSnapshot := d.Phases[0].Clone()

	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseWrittenTest,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)
	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseTechnicalInterview,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	// phases[0] is identical before and after later appends.
	require.Len(t, d.Phases, 3)
	assert.Equal(t, firstSnapshot.Index, d.Phases[0].Index)
	assert.Equal(t, firstSnapshot.Name, d.Phases[0].Name)
	assert.True(t, firstSnapshot.Shortlisted.Equal(d.Phases[0].Shortlisted))
	assert.True(t, firstSnapshot.Unattended.Equal(d.Phases[0].Unattended))
	assert.Equal(t, firstSnapshot.CreatedAt, d.Phases[0].CreatedAt)
}

func TestDrive_AddPhase_MissingShortlist(t *testing.T) {
	d := newTestDrive(t)

	_, err := d.AddPhase(AddPhaseParams{Name: PhaseResumeScreening})
	assert.ErrorIs(t, err, shared.ErrMissingShortlist)
	assert.Empty(t, d.Phases)
}

func TestDrive_AddPhase_InvalidName(t *testing.T) {
	d := newTestDrive(t)

	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseName("coffee_break"),
		Shortlisted: NewStudentSet(studentA),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidPhaseName)
}

// ─────────────────────────────────────────────────────────────────────────────
// Shortlist edits
// ─────────────────────────────────────────────────────────────────────────────

func TestDrive_AddToCurrentShortlist(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	// Manual add bypasses eligibility and creates an application.
	require.NoError(t, d.AddToCurrentShortlist(studentB))

	assert.True(t, d.CurrentPhase().Shortlisted.Contains(studentB))
	app := d.ApplicationOf(studentB)
	require.NotNil(t, app)
	assert.Equal(t, ApplicationSelected, app.Status)
}

func TestDrive_AddToCurrentShortlist_NoPhases(t *testing.T) {
	d := newTestDrive(t)
	assert.ErrorIs(t, d.AddToCurrentShortlist(studentA), shared.ErrNoPhases)
}

func TestDrive_RemoveFromCurrentShortlist(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)
	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	old, err := d.RemoveFromCurrentShortlist(studentA)
	require.NoError(t, err)
	assert.Equal(t, ApplicationApplied, old)

	// Only the application status changes; the phase snapshot stays intact.
	assert.Equal(t, ApplicationRejected, d.ApplicationOf(studentA).Status)
	assert.True(t, d.CurrentPhase().Shortlisted.Contains(studentA))
	assert.False(t, d.CurrentPhase().Unattended.Contains(studentA))
}

func TestDrive_RemoveFromCurrentShortlist_UnknownStudent(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	_, err = d.RemoveFromCurrentShortlist(studentB)
	assert.ErrorIs(t, err, shared.ErrUnknownApplicant)
}

// ─────────────────────────────────────────────────────────────────────────────
// SetApplicationStatus
// ─────────────────────────────────────────────────────────────────────────────

func TestDrive_SetApplicationStatus(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)

	old, err := d.SetApplicationStatus(studentA, ApplicationRejected)
	require.NoError(t, err)
	assert.Equal(t, ApplicationApplied, old)
	assert.Equal(t, ApplicationRejected, d.ApplicationOf(studentA).Status)
}

func TestDrive_SetApplicationStatus_UnknownStudent(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.SetApplicationStatus(studentA, ApplicationRejected)
	assert.ErrorIs(t, err, shared.ErrUnknownApplicant)
}

// ─────────────────────────────────────────────────────────────────────────────
// Complete & terminal invariant
// ─────────────────────────────────────────────────────────────────────────────

func completedDrive(t *testing.T) *Drive {
	t.Helper()
	d := newTestDrive(t)

	_, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)
	_, err = d.Apply(applicantWithID(studentB))
	require.NoError(t, err)

	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseResumeScreening,
		Shortlisted: NewStudentSet(studentA, studentB),
	})
	require.NoError(t, err)
	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseFinalSelection,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	_, err = d.Complete()
	require.NoError(t, err)
	return d
}

func TestDrive_Complete(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)
	_, err = d.Apply(applicantWithID(studentC))
	require.NoError(t, err)

	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseFinalSelection,
		Shortlisted: NewStudentSet(studentA, studentC),
	})
	require.NoError(t, err)

	selected, err := d.Complete()
	require.NoError(t, err)

	assert.Len(t, selected, 2)
	assert.Equal(t, StatusCompleted, d.Status)
	assert.Equal(t, ApplicationSelected, d.ApplicationOf(studentA).Status)
	assert.Equal(t, ApplicationSelected, d.ApplicationOf(studentC).Status)
}

func TestDrive_Complete_WithoutPhases(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.Complete()
	assert.ErrorIs(t, err, shared.ErrNoPhases)
}

func TestDrive_TerminalInvariant(t *testing.T) {
	d := completedDrive(t)
	snapshot := d.Clone()

	_, err := d.AddPhase(AddPhaseParams{
		Name:        PhaseWrittenTest,
		Shortlisted: NewStudentSet(studentC),
	})
	assert.ErrorIs(t, err, shared.ErrDriveClosed)

	_, err = d.Apply(applicantWithID(studentC))
	assert.ErrorIs(t, err, shared.ErrDriveClosed)

	_, err = d.SetApplicationStatus(studentA, ApplicationRejected)
	assert.ErrorIs(t, err, shared.ErrDriveClosed)

	assert.ErrorIs(t, d.AddToCurrentShortlist(studentC), shared.ErrDriveClosed)
	_, err = d.RemoveFromCurrentShortlist(studentA)
	assert.ErrorIs(t, err, shared.ErrDriveClosed)

	_, err = d.Complete()
	assert.ErrorIs(t, err, shared.ErrDriveClosed)

	// Zero side effects: the whole aggregate matches the snapshot.
	assert.Equal(t, snapshot.Status, d.Status)
	assert.Equal(t, snapshot.UpdatedAt, d.UpdatedAt)
	require.Len(t, d.Phases, len(snapshot.Phases))
	for i := range d.Phases {
		assert.True(t, snapshot.Phases[i].Shortlisted.Equal(d.Phases[i].Shortlisted))
		assert.True(t, snapshot.Phases[i].Unattended.Equal(d.Phases[i].Unattended))
	}
	require.Len(t, d.Applications, len(snapshot.Applications))
	for i := range d.Applications {
		assert.Equal(t, snapshot.Applications[i].Status, d.Applications[i].Status)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived display status
// ─────────────────────────────────────────────────────────────────────────────

func TestDrive_DisplayStatusOf(t *testing.T) {
	d := newTestDrive(t)

	assert.Equal(t, DisplayNotApplied, d.DisplayStatusOf(studentA))

	_, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)
	_, err = d.Apply(applicantWithID(studentB))
	require.NoError(t, err)
	assert.Equal(t, DisplayApplied, d.DisplayStatusOf(studentA))

	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseWrittenTest,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	// Current phase membership refines the raw application status.
	assert.Equal(t, DisplayShortlisted, d.DisplayStatusOf(studentA))

	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseTechnicalInterview,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)
	assert.Equal(t, DisplayInterview, d.DisplayStatusOf(studentA))

	// Unattended membership in the current phase.
	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseHRInterview,
		Shortlisted: NewStudentSet(),
	})
	require.NoError(t, err)
	assert.Equal(t, DisplayUnattended, d.DisplayStatusOf(studentA))

	// Terminal statuses take precedence over phase membership.
	_, err = d.SetApplicationStatus(studentA, ApplicationSelected)
	require.NoError(t, err)
	assert.Equal(t, DisplaySelected, d.DisplayStatusOf(studentA))
}

func TestDrive_DisplayStatusOf_RejectedStillInShortlist(t *testing.T) {
	d := newTestDrive(t)
	_, err := d.Apply(applicantWithID(studentA))
	require.NoError(t, err)
	_, err = d.AddPhase(AddPhaseParams{
		Name:        PhaseWrittenTest,
		Shortlisted: NewStudentSet(studentA),
	})
	require.NoError(t, err)

	// A manual rejection leaves the phase snapshot untouched, so the
	// student is still a member of the current shortlist. The rejection
	// must win over membership, otherwise it would be invisible.
	_, err = d.RemoveFromCurrentShortlist(studentA)
	require.NoError(t, err)

	assert.True(t, d.CurrentPhase().Shortlisted.Contains(studentA))
	assert.Equal(t, DisplayRejected, d.DisplayStatusOf(studentA))
}

// ─────────────────────────────────────────────────────────────────────────────
// Factory
// ─────────────────────────────────────────────────────────────────────────────

func TestNewDrive_Validation(t *testing.T) {
	_, err := NewDrive(NewDriveParams{CompanyName: "X", Role: "Y", Criteria: baseCriteria()})
	assert.Error(t, err) // missing ID

	_, err = NewDrive(NewDriveParams{ID: "11111111-2222-3333-4444-555555555555", Role: "Y", Criteria: baseCriteria()})
	assert.Error(t, err) // missing company

	_, err = NewDrive(NewDriveParams{ID: "11111111-2222-3333-4444-555555555555", CompanyName: "X", Criteria: baseCriteria()})
	assert.Error(t, err) // missing role

	d, err := NewDrive(NewDriveParams{
		ID: "11111111-2222-3333-4444-555555555555", CompanyName: "X", Role: "Y", Criteria: baseCriteria(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, d.Status)
	assert.EqualValues(t, 1, d.Version)
}

func TestParsePhaseName(t *testing.T) {
	p, err := ParsePhaseName("written_test")
	require.NoError(t, err)
	assert.Equal(t, PhaseWrittenTest, p)

	_, err = ParsePhaseName("unknown")
	assert.Error(t, err)
}

func TestParseApplicationStatus(t *testing.T) {
	s, err := ParseApplicationStatus("rejected")
	require.NoError(t, err)
	assert.Equal(t, ApplicationRejected, s)

	_, err = ParseApplicationStatus("maybe")
	assert.Error(t, err)
}
