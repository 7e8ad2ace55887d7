package postgres

import (
	"context"
	"fmt"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT DIRECTORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentDirectory implements student.Directory for PostgreSQL.
//
// The directory is read-only from the drive engine's point of view;
// the students table is maintained by the admissions pipeline.
type StudentDirectory struct {
	conn *Connection
}

// NewStudentDirectory creates a new StudentDirectory.
func NewStudentDirectory(conn *Connection) *StudentDirectory {
	return &StudentDirectory{conn: conn}
}

const studentColumns = `id, name, email, registration_number, branch, batch,
	   cgpa, backlogs, semesters_completed, created_at, updated_at`

// Resolve resolves an email or registration number to a student record.
func (d *StudentDirectory) Resolve(ctx context.Context, identifier shared.Identifier) (*student.Student, error) {
	ident := identifier.Normalize()

	var column string
	switch ident.Kind() {
	case shared.IdentifierEmail:
		column = "email"
	case shared.IdentifierRegistration:
		column = "registration_number"
	default:
		return nil, shared.ErrInvalidIdentifier
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + column + ` = $1`

	row := d.conn.QueryRow(ctx, query, string(ident))
	return d.scanStudent(row)
}

// ResolveByID returns a student record by internal ID.
func (d *StudentDirectory) ResolveByID(ctx context.Context, id shared.StudentID) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	row := d.conn.QueryRow(ctx, query, string(id))
	return d.scanStudent(row)
}

// ResolveMany returns records for the given IDs. Missing IDs are skipped.
func (d *StudentDirectory) ResolveMany(ctx context.Context, ids []shared.StudentID) ([]*student.Student, error) {
	if len(ids) == 0 {
		return []*student.Student{}, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE id = ANY($1)`

	rows, err := d.conn.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		s, err := d.scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}

func (d *StudentDirectory) scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s       student.Student
		email   string
		regNo   string
		branch  string
		cgpa    float64
	)

	err := row.Scan(
		&s.ID,
		&s.Name,
		&email,
		&regNo,
		&branch,
		&s.Batch,
		&cgpa,
		&s.Backlogs,
		&s.SemestersCompleted,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Email = shared.Email(email)
	s.RegistrationNumber = shared.RegistrationNumber(regNo)
	s.Branch = student.Branch(branch)
	s.CGPA = student.CGPA(cgpa)
	return &s, nil
}
