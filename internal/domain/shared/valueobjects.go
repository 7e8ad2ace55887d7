// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// DriveID represents a unique placement drive identifier (UUID format).
type DriveID string

// IsValid checks if the drive ID is a valid UUID.
func (d DriveID) IsValid() bool {
	return uuidRegex.MatchString(string(d))
}

// String returns the string representation.
func (d DriveID) String() string {
	return string(d)
}

// IsEmpty checks if the ID is empty.
func (d DriveID) IsEmpty() bool {
	return d == ""
}

// NewDriveID creates a new DriveID with validation.
func NewDriveID(id string) (DriveID, error) {
	did := DriveID(strings.ToLower(strings.TrimSpace(id)))
	if !did.IsValid() {
		return "", NewDomainError("shared", "NewDriveID", ErrInvalidID, "invalid drive ID format")
	}
	return did, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Identifier Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Email represents a student email address.
type Email string

// Permissive email shape check; the directory is the source of truth.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks if the email has a plausible shape.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// Normalize returns a normalized (lowercase, trimmed) version of the email.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// NewEmail creates a new Email with validation.
func NewEmail(raw string) (Email, error) {
	e := Email(raw).Normalize()
	if !e.IsValid() {
		return "", NewDomainError("shared", "NewEmail", ErrInvalidFormat, fmt.Sprintf("invalid email: %q", raw))
	}
	return e, nil
}

// RegistrationNumber represents a college registration number.
type RegistrationNumber string

// Registration numbers are alphanumeric, 4-20 characters.
var regNumberRegex = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)

// IsValid checks if the registration number is well formed.
func (r RegistrationNumber) IsValid() bool {
	return regNumberRegex.MatchString(string(r))
}

// String returns the string representation.
func (r RegistrationNumber) String() string {
	return string(r)
}

// Normalize returns a normalized (uppercase, trimmed) version.
func (r RegistrationNumber) Normalize() RegistrationNumber {
	return RegistrationNumber(strings.ToUpper(strings.TrimSpace(string(r))))
}

// NewRegistrationNumber creates a new RegistrationNumber with validation.
func NewRegistrationNumber(raw string) (RegistrationNumber, error) {
	r := RegistrationNumber(raw).Normalize()
	if !r.IsValid() {
		return "", NewDomainError("shared", "NewRegistrationNumber", ErrInvalidFormat, fmt.Sprintf("invalid registration number: %q", raw))
	}
	return r, nil
}

// Identifier is a raw roster identifier: either an email or a registration
// number, as they appear in uploaded spreadsheets.
type Identifier string

// Kind classifies the identifier by shape.
func (i Identifier) Kind() IdentifierKind {
	s := strings.TrimSpace(string(i))
	if s == "" {
		return IdentifierUnknown
	}
	if Email(s).Normalize().IsValid() {
		return IdentifierEmail
	}
	if RegistrationNumber(s).Normalize().IsValid() {
		return IdentifierRegistration
	}
	return IdentifierUnknown
}

// Normalize lowercases emails and uppercases registration numbers.
func (i Identifier) Normalize() Identifier {
	switch i.Kind() {
	case IdentifierEmail:
		return Identifier(Email(i).Normalize())
	case IdentifierRegistration:
		return Identifier(RegistrationNumber(i).Normalize())
	default:
		return Identifier(strings.TrimSpace(string(i)))
	}
}

// String returns the string representation.
func (i Identifier) String() string {
	return string(i)
}

// IdentifierKind classifies a roster identifier.
type IdentifierKind int

const (
	// IdentifierUnknown - the identifier matches neither known shape.
	IdentifierUnknown IdentifierKind = iota
	// IdentifierEmail - the identifier is an email address.
	IdentifierEmail
	// IdentifierRegistration - the identifier is a registration number.
	IdentifierRegistration
)

// String returns the string representation of the kind.
func (k IdentifierKind) String() string {
	switch k {
	case IdentifierEmail:
		return "email"
	case IdentifierRegistration:
		return "registration_number"
	default:
		return "unknown"
	}
}
