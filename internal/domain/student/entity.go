// Package student содержит каноническую запись студента из StudentDirectory.
// Для ядра драйвов эта модель read-only: справочник студентов принадлежит
// внешней подсистеме, здесь она специфицирована только на границе интерфейса.
package student

import (
	"fmt"
	"strings"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Branch представляет направление подготовки (например, "CSE", "ECE").
type Branch string

// IsValid проверяет корректность направления.
func (b Branch) IsValid() bool {
	s := string(b)
	return len(s) >= 2 && len(s) <= 10
}

// Normalize возвращает нормализованное (uppercase) направление.
func (b Branch) Normalize() Branch {
	return Branch(strings.ToUpper(strings.TrimSpace(string(b))))
}

// String возвращает строковое представление направления.
func (b Branch) String() string {
	return string(b)
}

// CGPA представляет средний балл студента по десятибалльной шкале.
type CGPA float64

// IsValid проверяет, что CGPA в диапазоне [0, 10].
func (c CGPA) IsValid() bool {
	return c >= 0 && c <= 10
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - каноническая запись студента, разрешённая через StudentDirectory.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Name - полное имя студента.
	Name string

	// Email - учебный email, один из двух идентификаторов в ростерах.
	Email shared.Email

	// RegistrationNumber - регистрационный номер, второй идентификатор.
	RegistrationNumber shared.RegistrationNumber

	// Branch - направление подготовки.
	Branch Branch

	// Batch - год выпуска (например, 2026).
	Batch int

	// CGPA - текущий средний балл.
	CGPA CGPA

	// Backlogs - количество несданных дисциплин.
	Backlogs int

	// SemestersCompleted - количество завершённых семестров.
	SemestersCompleted int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// Validate проверяет согласованность записи студента.
func (s *Student) Validate() error {
	if s.ID == "" {
		return shared.NewDomainError("student", "Validate", shared.ErrInvalidID, "student id is required")
	}
	if !s.Email.IsValid() {
		return shared.NewDomainError("student", "Validate", shared.ErrInvalidFormat, "invalid email")
	}
	if !s.RegistrationNumber.IsValid() {
		return shared.NewDomainError("student", "Validate", shared.ErrInvalidFormat, "invalid registration number")
	}
	if !s.Branch.IsValid() {
		return shared.NewDomainError("student", "Validate", shared.ErrInvalidInput, "invalid branch")
	}
	if !s.CGPA.IsValid() {
		return shared.NewDomainError("student", "Validate", shared.ErrValueOutOfRange, "cgpa must be between 0 and 10")
	}
	if s.Backlogs < 0 {
		return shared.NewDomainError("student", "Validate", shared.ErrNegativeValue, "backlogs cannot be negative")
	}
	if s.SemestersCompleted < 0 {
		return shared.NewDomainError("student", "Validate", shared.ErrNegativeValue, "semesters completed cannot be negative")
	}
	return nil
}

// String возвращает строковое представление студента для логирования.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, RegNo: %s, Branch: %s, CGPA: %.2f, Backlogs: %d}",
		s.ID, s.RegistrationNumber, s.Branch, float64(s.CGPA), s.Backlogs,
	)
}

// Clone создаёт независимую копию записи студента.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
