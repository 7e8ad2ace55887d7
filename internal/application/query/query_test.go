package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/persistence/memory"
)

const (
	idA = shared.StudentID("bbbbbbbb-0000-0000-0000-000000000001")
	idB = shared.StudentID("bbbbbbbb-0000-0000-0000-000000000002")
)

type stubDirectory struct {
	students map[shared.StudentID]*student.Student
}

func (d *stubDirectory) Resolve(_ context.Context, ident shared.Identifier) (*student.Student, error) {
	for _, s := range d.students {
		if shared.Identifier(s.Email) == ident.Normalize() {
			return s.Clone(), nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (d *stubDirectory) ResolveByID(_ context.Context, id shared.StudentID) (*student.Student, error) {
	if s, ok := d.students[id]; ok {
		return s.Clone(), nil
	}
	return nil, shared.ErrStudentNotFound
}

func (d *stubDirectory) ResolveMany(_ context.Context, ids []shared.StudentID) ([]*student.Student, error) {
	var out []*student.Student
	for _, id := range ids {
		if s, ok := d.students[id]; ok {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func testStudent(id shared.StudentID, cgpa float64) *student.Student {
	return &student.Student{
		ID:                 id.String(),
		Name:               "Test Student",
		Email:              shared.Email(fmt.Sprintf("s-%s@college.edu", id.String()[len(id.String())-2:])),
		RegistrationNumber: "REG2021001",
		Branch:             "CSE",
		Batch:              2026,
		CGPA:               student.CGPA(cgpa),
		SemestersCompleted: 6,
	}
}

func seedDrive(t *testing.T, repo *memory.DriveRepository, company string, minCGPA float64) *drive.Drive {
	t.Helper()
	id, err := shared.NewDriveID(fmt.Sprintf("cccccccc-0000-0000-0000-%012d", time.Now().UnixNano()%1_000_000_000_000))
	require.NoError(t, err)

	d, err := drive.NewDrive(drive.NewDriveParams{
		ID:          id,
		CompanyName: company,
		Role:        "Software Engineer",
		Criteria: drive.Criteria{
			MinCGPA:          minCGPA,
			EligibleBranches: []student.Branch{"CSE"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), d))
	return d
}

func TestListDrivesHandler(t *testing.T) {
	repo := memory.NewDriveRepository()
	seedDrive(t, repo, "Innotech Systems", 7.0)
	seedDrive(t, repo, "Quantfield Labs", 8.0)

	h := NewListDrivesHandler(repo, nil)
	res, err := h.Handle(context.Background(), ListDrivesQuery{})
	require.NoError(t, err)
	assert.Len(t, res.Drives, 2)
	assert.Equal(t, 2, res.TotalCount)
}

func TestListDrivesHandler_StatusFilter(t *testing.T) {
	repo := memory.NewDriveRepository()
	d := seedDrive(t, repo, "Innotech Systems", 7.0)
	seedDrive(t, repo, "Quantfield Labs", 8.0)

	_, err := d.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseResumeScreening,
		Shortlisted: drive.NewStudentSet(idA),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), d))

	h := NewListDrivesHandler(repo, nil)

	res, err := h.Handle(context.Background(), ListDrivesQuery{Status: "in_progress"})
	require.NoError(t, err)
	require.Len(t, res.Drives, 1)
	assert.Equal(t, "Innotech Systems", res.Drives[0].CompanyName)

	res, err = h.Handle(context.Background(), ListDrivesQuery{Status: FilterOpen})
	require.NoError(t, err)
	assert.Len(t, res.Drives, 2)

	_, err = h.Handle(context.Background(), ListDrivesQuery{Status: "archived"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetDriveHandler(t *testing.T) {
	repo := memory.NewDriveRepository()
	d := seedDrive(t, repo, "Innotech Systems", 7.0)

	_, err := d.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseResumeScreening,
		Shortlisted: drive.NewStudentSet(idA, idB),
	})
	require.NoError(t, err)
	_, err = d.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseWrittenTest,
		Shortlisted: drive.NewStudentSet(idA),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), d))

	h := NewGetDriveHandler(repo, nil)
	res, err := h.Handle(context.Background(), GetDriveQuery{DriveID: d.ID})
	require.NoError(t, err)

	require.Len(t, res.Phases, 2)
	assert.Equal(t, []string{idB.String()}, res.Phases[1].Unattended)
	assert.Equal(t, "in_progress", res.Status)
}

func TestGetDriveHandler_NotFound(t *testing.T) {
	h := NewGetDriveHandler(memory.NewDriveRepository(), nil)

	_, err := h.Handle(context.Background(), GetDriveQuery{
		DriveID: shared.DriveID("cccccccc-0000-0000-0000-0000000000ff"),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEligibleDrivesHandler(t *testing.T) {
	repo := memory.NewDriveRepository()
	easy := seedDrive(t, repo, "Innotech Systems", 7.0)
	seedDrive(t, repo, "Quantfield Labs", 9.5)

	dir := &stubDirectory{students: map[shared.StudentID]*student.Student{
		idA: testStudent(idA, 8.0),
	}}

	h := NewEligibleDrivesHandler(repo, dir, nil)
	res, err := h.Handle(context.Background(), EligibleDrivesQuery{StudentID: idA})
	require.NoError(t, err)

	require.Len(t, res.Drives, 1)
	assert.Equal(t, easy.ID.String(), res.Drives[0].ID)
	assert.False(t, res.Drives[0].AlreadyApplied)
}

func TestEligibleDrivesHandler_MarksApplied(t *testing.T) {
	repo := memory.NewDriveRepository()
	d := seedDrive(t, repo, "Innotech Systems", 7.0)

	s := testStudent(idA, 8.0)
	_, err := d.Apply(s)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), d))

	dir := &stubDirectory{students: map[shared.StudentID]*student.Student{idA: s}}
	h := NewEligibleDrivesHandler(repo, dir, nil)

	res, err := h.Handle(context.Background(), EligibleDrivesQuery{StudentID: idA})
	require.NoError(t, err)
	require.Len(t, res.Drives, 1)
	assert.True(t, res.Drives[0].AlreadyApplied)
}

func TestGetApplicantsHandler(t *testing.T) {
	repo := memory.NewDriveRepository()
	d := seedDrive(t, repo, "Innotech Systems", 7.0)

	sa := testStudent(idA, 8.0)
	sb := testStudent(idB, 8.5)
	_, err := d.Apply(sa)
	require.NoError(t, err)
	_, err = d.Apply(sb)
	require.NoError(t, err)

	// A проходит в фазу, B выбывает.
	_, err = d.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseResumeScreening,
		Shortlisted: drive.NewStudentSet(idA, idB),
	})
	require.NoError(t, err)
	_, err = d.AddPhase(drive.AddPhaseParams{
		Name:        drive.PhaseWrittenTest,
		Shortlisted: drive.NewStudentSet(idA),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), d))

	dir := &stubDirectory{students: map[shared.StudentID]*student.Student{idA: sa, idB: sb}}
	h := NewGetApplicantsHandler(repo, dir)

	res, err := h.Handle(context.Background(), GetApplicantsQuery{DriveID: d.ID})
	require.NoError(t, err)
	require.Len(t, res.Applicants, 2)

	byID := make(map[string]ApplicantDTO)
	for _, a := range res.Applicants {
		byID[a.StudentID] = a
	}
	assert.Equal(t, string(drive.DisplayShortlisted), byID[idA.String()].DisplayStatus)
	assert.Equal(t, string(drive.DisplayUnattended), byID[idB.String()].DisplayStatus)
	assert.Equal(t, sa.Name, byID[idA.String()].Name)
}

func TestGetApplicantsHandler_StatusFilter(t *testing.T) {
	repo := memory.NewDriveRepository()
	d := seedDrive(t, repo, "Innotech Systems", 7.0)

	_, err := d.Apply(testStudent(idA, 8.0))
	require.NoError(t, err)
	_, err = d.Apply(testStudent(idB, 8.5))
	require.NoError(t, err)
	_, err = d.SetApplicationStatus(idB, drive.ApplicationRejected)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), d))

	h := NewGetApplicantsHandler(repo, nil)
	res, err := h.Handle(context.Background(), GetApplicantsQuery{DriveID: d.ID, Status: "rejected"})
	require.NoError(t, err)
	require.Len(t, res.Applicants, 1)
	assert.Equal(t, idB.String(), res.Applicants[0].StudentID)
}
