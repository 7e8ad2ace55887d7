package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATION SQL
// Schema for the placement hub: the student directory, placement drives,
// applications and per-phase shortlist membership.
// ══════════════════════════════════════════════════════════════════════════════

// Migration 001: student directory.
const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	registration_number TEXT NOT NULL UNIQUE,
	branch TEXT NOT NULL,
	batch INTEGER NOT NULL DEFAULT 0,
	cgpa NUMERIC(4,2) NOT NULL CHECK (cgpa >= 0 AND cgpa <= 10),
	backlogs INTEGER NOT NULL DEFAULT 0 CHECK (backlogs >= 0),
	semesters_completed INTEGER NOT NULL DEFAULT 0 CHECK (semesters_completed >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_branch ON students(branch);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// Migration 002: placement drives with optimistic-lock version column.
const migration002Up = `
CREATE TABLE IF NOT EXISTS drives (
	id UUID PRIMARY KEY,
	company_name TEXT NOT NULL,
	role TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	min_cgpa NUMERIC(4,2) NOT NULL DEFAULT 0,
	max_backlogs INTEGER NOT NULL DEFAULT 0,
	min_semesters_completed INTEGER NOT NULL DEFAULT 0,
	eligible_branches TEXT[] NOT NULL DEFAULT '{}',
	drive_date TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'upcoming'
		CHECK (status IN ('upcoming', 'in_progress', 'completed')),
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_drives_status ON drives(status);
CREATE INDEX IF NOT EXISTS idx_drives_created_at ON drives(created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS drives;
`

// Migration 003: applications and phase shortlist membership.
// The composite primary key on applications is the hard uniqueness
// guarantee behind idempotent Apply.
const migration003Up = `
CREATE TABLE IF NOT EXISTS applications (
	drive_id UUID NOT NULL REFERENCES drives(id) ON DELETE CASCADE,
	student_id UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'applied'
		CHECK (status IN ('applied', 'interview', 'selected', 'rejected')),
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (drive_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_applications_student ON applications(student_id);

CREATE TABLE IF NOT EXISTS phases (
	drive_id UUID NOT NULL REFERENCES drives(id) ON DELETE CASCADE,
	phase_index INTEGER NOT NULL CHECK (phase_index >= 0),
	name TEXT NOT NULL
		CHECK (name IN ('resume_screening', 'written_test', 'group_discussion',
			'technical_interview', 'hr_interview', 'final_selection')),
	requirements TEXT NOT NULL DEFAULT '',
	instructions TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (drive_id, phase_index)
);

CREATE TABLE IF NOT EXISTS phase_members (
	drive_id UUID NOT NULL,
	phase_index INTEGER NOT NULL,
	student_id UUID NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('shortlisted', 'unattended')),
	PRIMARY KEY (drive_id, phase_index, student_id, kind),
	FOREIGN KEY (drive_id, phase_index)
		REFERENCES phases(drive_id, phase_index) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_phase_members_student ON phase_members(student_id);
`

const migration003Down = `
DROP TABLE IF EXISTS phase_members;
DROP TABLE IF EXISTS phases;
DROP TABLE IF EXISTS applications;
`
