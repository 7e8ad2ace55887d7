package roster

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

type fakeDirectory struct {
	byIdent map[shared.Identifier]*student.Student
	err     error
	calls   int
}

func (d *fakeDirectory) Resolve(_ context.Context, ident shared.Identifier) (*student.Student, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if s, ok := d.byIdent[ident]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (d *fakeDirectory) ResolveByID(_ context.Context, _ shared.StudentID) (*student.Student, error) {
	return nil, shared.ErrStudentNotFound
}

func (d *fakeDirectory) ResolveMany(_ context.Context, _ []shared.StudentID) ([]*student.Student, error) {
	return nil, nil
}

func dirWith(students map[shared.Identifier]*student.Student) *fakeDirectory {
	return &fakeDirectory{byIdent: students}
}

// buildRoster builds an xlsx with a header row and the given identifier rows.
func buildRoster(t *testing.T, identifiers ...string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Student Email / Registration Number"))
	for i, id := range identifiers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, id))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func stud(id, email, reg string) *student.Student {
	return &student.Student{
		ID:                 id,
		Name:               "Roster Student",
		Email:              shared.Email(email),
		RegistrationNumber: shared.RegistrationNumber(reg),
		Branch:             "CSE",
		CGPA:               8.0,
	}
}

const (
	ridA = "dddddddd-0000-0000-0000-000000000001"
	ridB = "dddddddd-0000-0000-0000-000000000002"
)

func TestIngestor_ParseRoster(t *testing.T) {
	dir := dirWith(map[shared.Identifier]*student.Student{
		"alpha@college.edu": stud(ridA, "alpha@college.edu", "REG2021001"),
		"REG2021002":        stud(ridB, "beta@college.edu", "REG2021002"),
	})
	ing := NewIngestor(dir, DefaultConfig())

	res, err := ing.ParseRoster(context.Background(), buildRoster(t, "alpha@college.edu", "REG2021002"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.Resolved.Len())
	assert.True(t, res.Resolved.Contains(shared.StudentID(ridA)))
	assert.True(t, res.Resolved.Contains(shared.StudentID(ridB)))
	assert.Empty(t, res.Warnings)
}

func TestIngestor_NormalizesIdentifiers(t *testing.T) {
	dir := dirWith(map[shared.Identifier]*student.Student{
		"alpha@college.edu": stud(ridA, "alpha@college.edu", "REG2021001"),
	})
	ing := NewIngestor(dir, DefaultConfig())

	// Mixed case and padding normalize to the canonical form.
	res, err := ing.ParseRoster(context.Background(), buildRoster(t, "  Alpha@College.EDU  "))
	require.NoError(t, err)
	assert.True(t, res.Resolved.Contains(shared.StudentID(ridA)))
}

func TestIngestor_DeduplicatesRows(t *testing.T) {
	s := stud(ridA, "alpha@college.edu", "REG2021001")
	dir := dirWith(map[shared.Identifier]*student.Student{
		"alpha@college.edu": s,
		"REG2021001":        s,
	})
	ing := NewIngestor(dir, DefaultConfig())

	// Same student by email and by registration number counts once.
	res, err := ing.ParseRoster(context.Background(), buildRoster(t, "alpha@college.edu", "REG2021001"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 1, res.Resolved.Len())
}

func TestIngestor_UnresolvedRowsBecomeWarnings(t *testing.T) {
	dir := dirWith(map[shared.Identifier]*student.Student{
		"alpha@college.edu": stud(ridA, "alpha@college.edu", "REG2021001"),
	})
	ing := NewIngestor(dir, DefaultConfig())

	res, err := ing.ParseRoster(context.Background(),
		buildRoster(t, "alpha@college.edu", "ghost@college.edu", "???"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resolved.Len())
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "ghost@college.edu")
	assert.Contains(t, res.Warnings[1], "neither an email nor a registration number")
}

func TestIngestor_EmptyRoster(t *testing.T) {
	dir := dirWith(nil)
	ing := NewIngestor(dir, DefaultConfig())

	// Header only.
	_, err := ing.ParseRoster(context.Background(), buildRoster(t))
	assert.ErrorIs(t, err, shared.ErrEmptyRoster)
}

func TestIngestor_NothingResolves(t *testing.T) {
	dir := dirWith(nil)
	ing := NewIngestor(dir, DefaultConfig())

	_, err := ing.ParseRoster(context.Background(), buildRoster(t, "ghost@college.edu"))
	assert.ErrorIs(t, err, shared.ErrEmptyRoster)
}

func TestIngestor_UnreadableFile(t *testing.T) {
	ing := NewIngestor(dirWith(nil), DefaultConfig())

	_, err := ing.ParseRoster(context.Background(), strings.NewReader("this is not a workbook"))
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestIngestor_DirectoryFailureFailsUpload(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	ing := NewIngestor(dir, DefaultConfig())

	_, err := ing.ParseRoster(context.Background(), buildRoster(t, "alpha@college.edu"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
}

func TestIngestor_RowLimit(t *testing.T) {
	dir := dirWith(map[shared.Identifier]*student.Student{
		"alpha@college.edu": stud(ridA, "alpha@college.edu", "REG2021001"),
		"REG2021002":        stud(ridB, "beta@college.edu", "REG2021002"),
	})
	cfg := DefaultConfig()
	cfg.MaxRows = 1
	ing := NewIngestor(dir, cfg)

	res, err := ing.ParseRoster(context.Background(), buildRoster(t, "alpha@college.edu", "REG2021002"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "row limit")
}

func TestBuildTemplate(t *testing.T) {
	data, err := BuildTemplate()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{TemplateSheet}, f.GetSheetList())
	header, err := f.GetCellValue(TemplateSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, templateHeader, header)
}
