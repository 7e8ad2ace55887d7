package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// DRIVE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// DriveRepository implements drive.Repository for PostgreSQL.
//
// The aggregate is split across four tables: drives, applications, phases
// and phase_members. Save writes all of them in one transaction guarded by
// a compare-and-swap on drives.version.
type DriveRepository struct {
	conn *Connection
}

// NewDriveRepository creates a new DriveRepository.
func NewDriveRepository(conn *Connection) *DriveRepository {
	return &DriveRepository{conn: conn}
}

const driveColumns = `id, company_name, role, description, min_cgpa, max_backlogs,
	   min_semesters_completed, eligible_branches, drive_date, status, version,
	   created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new drive.
func (r *DriveRepository) Create(ctx context.Context, d *drive.Drive) error {
	query := `
		INSERT INTO drives (
			id, company_name, role, description, min_cgpa, max_backlogs,
			min_semesters_completed, eligible_branches, drive_date, status,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		string(d.ID),
		d.CompanyName,
		d.Role,
		d.Description,
		float64(d.Criteria.MinCGPA),
		d.Criteria.MaxBacklogs,
		d.Criteria.MinSemestersCompleted,
		branchesToStrings(d.Criteria.EligibleBranches),
		nullableTime(d.Date),
		string(d.Status),
		d.Version,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDriveAlreadyExists
		}
		return fmt.Errorf("failed to create drive: %w", err)
	}

	return nil
}

// GetByID returns a drive with all its phases and applications.
func (r *DriveRepository) GetByID(ctx context.Context, id shared.DriveID) (*drive.Drive, error) {
	query := `SELECT ` + driveColumns + ` FROM drives WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	d, err := r.scanDrive(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, []*drive.Drive{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// Save atomically persists a mutation of the aggregate.
//
// The UPDATE carries a WHERE version = $expected predicate; zero rows
// affected means either a stale aggregate or a missing drive, and the
// transaction is rolled back without touching the child tables.
// Applications are upserted, phase rows are insert-only, and the member
// set of the latest phase is replaced because shortlist edits only ever
// target the current phase.
func (r *DriveRepository) Save(ctx context.Context, d *drive.Drive) error {
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.saveDriveRow(ctx, tx, d); err != nil {
			return err
		}
		if err := r.saveApplications(ctx, tx, d); err != nil {
			return err
		}
		return r.savePhases(ctx, tx, d)
	})
	if err != nil {
		return err
	}

	d.Version++
	return nil
}

func (r *DriveRepository) saveDriveRow(ctx context.Context, tx pgx.Tx, d *drive.Drive) error {
	query := `
		UPDATE drives SET
			company_name = $1,
			role = $2,
			description = $3,
			min_cgpa = $4,
			max_backlogs = $5,
			min_semesters_completed = $6,
			eligible_branches = $7,
			drive_date = $8,
			status = $9,
			version = version + 1,
			updated_at = $10
		WHERE id = $11 AND version = $12
	`

	result, err := tx.Exec(ctx, query,
		d.CompanyName,
		d.Role,
		d.Description,
		float64(d.Criteria.MinCGPA),
		d.Criteria.MaxBacklogs,
		d.Criteria.MinSemestersCompleted,
		branchesToStrings(d.Criteria.EligibleBranches),
		nullableTime(d.Date),
		string(d.Status),
		time.Now().UTC(),
		string(d.ID),
		d.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update drive: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM drives WHERE id = $1)", string(d.ID)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check drive existence: %w", err)
		}
		if !exists {
			return shared.ErrDriveNotFound
		}
		return shared.ErrConcurrentModification
	}

	return nil
}

func (r *DriveRepository) saveApplications(ctx context.Context, tx pgx.Tx, d *drive.Drive) error {
	query := `
		INSERT INTO applications (drive_id, student_id, status, applied_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (drive_id, student_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`

	for _, app := range d.Applications {
		_, err := tx.Exec(ctx, query,
			string(d.ID),
			string(app.StudentID),
			string(app.Status),
			app.AppliedAt,
			app.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save application: %w", err)
		}
	}

	return nil
}

func (r *DriveRepository) savePhases(ctx context.Context, tx pgx.Tx, d *drive.Drive) error {
	phaseQuery := `
		INSERT INTO phases (drive_id, phase_index, name, requirements, instructions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (drive_id, phase_index) DO NOTHING
	`
	memberQuery := `
		INSERT INTO phase_members (drive_id, phase_index, student_id, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (drive_id, phase_index, student_id, kind) DO NOTHING
	`

	for _, p := range d.Phases {
		_, err := tx.Exec(ctx, phaseQuery,
			string(d.ID),
			p.Index,
			string(p.Name),
			p.Requirements,
			p.Instructions,
			p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save phase: %w", err)
		}

		// Only the latest phase is editable, so its member rows are
		// rewritten; earlier phases are frozen snapshots.
		if p.Index == len(d.Phases)-1 {
			_, err := tx.Exec(ctx,
				"DELETE FROM phase_members WHERE drive_id = $1 AND phase_index = $2",
				string(d.ID), p.Index,
			)
			if err != nil {
				return fmt.Errorf("failed to reset phase members: %w", err)
			}
		}

		for _, sid := range p.Shortlisted.Sorted() {
			if _, err := tx.Exec(ctx, memberQuery, string(d.ID), p.Index, string(sid), "shortlisted"); err != nil {
				return fmt.Errorf("failed to save phase member: %w", err)
			}
		}
		for _, sid := range p.Unattended.Sorted() {
			if _, err := tx.Exec(ctx, memberQuery, string(d.ID), p.Index, string(sid), "unattended"); err != nil {
				return fmt.Errorf("failed to save phase member: %w", err)
			}
		}
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetAll returns drives with pagination, newest first.
func (r *DriveRepository) GetAll(ctx context.Context, opts drive.ListOptions) ([]*drive.Drive, error) {
	query := `
		SELECT ` + driveColumns + `
		FROM drives
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryDrives(ctx, query, opts.Limit, opts.Offset)
}

// GetByStatus returns drives in the given status.
func (r *DriveRepository) GetByStatus(ctx context.Context, status drive.Status, opts drive.ListOptions) ([]*drive.Drive, error) {
	query := `
		SELECT ` + driveColumns + `
		FROM drives
		WHERE status = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryDrives(ctx, query, opts.Limit, opts.Offset, string(status))
}

// GetOpen returns drives that have not completed yet.
func (r *DriveRepository) GetOpen(ctx context.Context, opts drive.ListOptions) ([]*drive.Drive, error) {
	query := `
		SELECT ` + driveColumns + `
		FROM drives
		WHERE status IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryDrives(ctx, query, opts.Limit, opts.Offset,
		string(drive.StatusUpcoming), string(drive.StatusInProgress))
}

// Count returns the total number of drives.
func (r *DriveRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM drives").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count drives: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper Methods
// ─────────────────────────────────────────────────────────────────────────────

func (r *DriveRepository) queryDrives(ctx context.Context, query string, args ...interface{}) ([]*drive.Drive, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drives: %w", err)
	}
	defer rows.Close()

	drives, err := r.scanDrives(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, drives); err != nil {
		return nil, err
	}
	return drives, nil
}

// loadChildren populates applications and phases for the given drives
// with two batched queries keyed by drive id.
func (r *DriveRepository) loadChildren(ctx context.Context, drives []*drive.Drive) error {
	if len(drives) == 0 {
		return nil
	}

	ids := make([]string, len(drives))
	byID := make(map[shared.DriveID]*drive.Drive, len(drives))
	for i, d := range drives {
		ids[i] = string(d.ID)
		byID[d.ID] = d
	}

	if err := r.loadApplications(ctx, ids, byID); err != nil {
		return err
	}
	return r.loadPhases(ctx, ids, byID)
}

func (r *DriveRepository) loadApplications(ctx context.Context, ids []string, byID map[shared.DriveID]*drive.Drive) error {
	query := `
		SELECT drive_id, student_id, status, applied_at, updated_at
		FROM applications
		WHERE drive_id = ANY($1)
		ORDER BY applied_at
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			driveID, studentID, status string
			appliedAt, updatedAt       time.Time
		)
		if err := rows.Scan(&driveID, &studentID, &status, &appliedAt, &updatedAt); err != nil {
			return fmt.Errorf("failed to scan application: %w", err)
		}

		d := byID[shared.DriveID(driveID)]
		if d == nil {
			continue
		}
		d.Applications = append(d.Applications, &drive.Application{
			StudentID: shared.StudentID(studentID),
			Status:    drive.ApplicationStatus(status),
			AppliedAt: appliedAt,
			UpdatedAt: updatedAt,
		})
	}
	return rows.Err()
}

func (r *DriveRepository) loadPhases(ctx context.Context, ids []string, byID map[shared.DriveID]*drive.Drive) error {
	query := `
		SELECT drive_id, phase_index, name, requirements, instructions, created_at
		FROM phases
		WHERE drive_id = ANY($1)
		ORDER BY drive_id, phase_index
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query phases: %w", err)
	}

	type phaseKey struct {
		driveID shared.DriveID
		index   int
	}
	phases := make(map[phaseKey]*drive.Phase)

	for rows.Next() {
		var (
			driveID, name, requirements, instructions string
			index                                     int
			createdAt                                 time.Time
		)
		if err := rows.Scan(&driveID, &index, &name, &requirements, &instructions, &createdAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan phase: %w", err)
		}

		d := byID[shared.DriveID(driveID)]
		if d == nil {
			continue
		}
		p := &drive.Phase{
			Index:        index,
			Name:         drive.PhaseName(name),
			Requirements: requirements,
			Instructions: instructions,
			Shortlisted:  drive.NewStudentSet(),
			Unattended:   drive.NewStudentSet(),
			CreatedAt:    createdAt,
		}
		d.Phases = append(d.Phases, p)
		phases[phaseKey{d.ID, index}] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	memberQuery := `
		SELECT drive_id, phase_index, student_id, kind
		FROM phase_members
		WHERE drive_id = ANY($1)
	`

	memberRows, err := r.conn.Query(ctx, memberQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to query phase members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var (
			driveID, studentID, kind string
			index                    int
		)
		if err := memberRows.Scan(&driveID, &index, &studentID, &kind); err != nil {
			return fmt.Errorf("failed to scan phase member: %w", err)
		}

		p := phases[phaseKey{shared.DriveID(driveID), index}]
		if p == nil {
			continue
		}
		switch kind {
		case "shortlisted":
			p.Shortlisted.Add(shared.StudentID(studentID))
		case "unattended":
			p.Unattended.Add(shared.StudentID(studentID))
		}
	}
	return memberRows.Err()
}

func (r *DriveRepository) scanDrive(row pgx.Row) (*drive.Drive, error) {
	var (
		d        drive.Drive
		id       string
		status   string
		minCGPA  float64
		branches []string
		date     *time.Time
	)

	err := row.Scan(
		&id,
		&d.CompanyName,
		&d.Role,
		&d.Description,
		&minCGPA,
		&d.Criteria.MaxBacklogs,
		&d.Criteria.MinSemestersCompleted,
		&branches,
		&date,
		&status,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDriveNotFound
		}
		return nil, fmt.Errorf("failed to scan drive: %w", err)
	}

	d.ID = shared.DriveID(id)
	d.Status = drive.Status(status)
	d.Criteria.MinCGPA = minCGPA
	d.Criteria.EligibleBranches = stringsToBranches(branches)
	if date != nil {
		d.Date = *date
	}
	return &d, nil
}

func (r *DriveRepository) scanDrives(rows pgx.Rows) ([]*drive.Drive, error) {
	var drives []*drive.Drive
	for rows.Next() {
		d, err := r.scanDrive(rows)
		if err != nil {
			return nil, err
		}
		drives = append(drives, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drives: %w", err)
	}
	return drives, nil
}

func branchesToStrings(branches []student.Branch) []string {
	out := make([]string, len(branches))
	for i, b := range branches {
		out[i] = string(b)
	}
	return out
}

func stringsToBranches(raw []string) []student.Branch {
	out := make([]student.Branch, len(raw))
	for i, s := range raw {
		out[i] = student.Branch(s)
	}
	return out
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
