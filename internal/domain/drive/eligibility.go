package drive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBILITY EVALUATOR
// Чистая детерминированная функция над критериями драйва и записью студента.
// Используется и для списка доступных драйвов, и как гейт на apply.
// ══════════════════════════════════════════════════════════════════════════════

// Criteria - критерии отбора студентов на драйв.
type Criteria struct {
	// MinCGPA - минимальный средний балл.
	MinCGPA float64

	// MaxBacklogs - максимально допустимое число несданных дисциплин.
	MaxBacklogs int

	// MinSemestersCompleted - минимальное число завершённых семестров.
	MinSemestersCompleted int

	// EligibleBranches - множество допустимых направлений (нормализованных).
	EligibleBranches []student.Branch
}

// Validate проверяет согласованность критериев.
func (c Criteria) Validate() error {
	if c.MinCGPA < 0 || c.MinCGPA > 10 {
		return shared.NewDomainError("drive", "Criteria", shared.ErrValueOutOfRange, "min cgpa must be between 0 and 10")
	}
	if c.MaxBacklogs < 0 {
		return shared.NewDomainError("drive", "Criteria", shared.ErrNegativeValue, "max backlogs cannot be negative")
	}
	if c.MinSemestersCompleted < 0 {
		return shared.NewDomainError("drive", "Criteria", shared.ErrNegativeValue, "min semesters cannot be negative")
	}
	if len(c.EligibleBranches) == 0 {
		return shared.NewDomainError("drive", "Criteria", shared.ErrEmptyValue, "at least one eligible branch is required")
	}
	for _, b := range c.EligibleBranches {
		if !b.IsValid() {
			return shared.NewDomainError("drive", "Criteria", shared.ErrInvalidInput,
				fmt.Sprintf("invalid branch %q", b))
		}
	}
	return nil
}

// AllowsBranch проверяет, допустимо ли направление студента.
func (c Criteria) AllowsBranch(b student.Branch) bool {
	norm := b.Normalize()
	for _, eb := range c.EligibleBranches {
		if eb.Normalize() == norm {
			return true
		}
	}
	return false
}

// IsEligible возвращает true, если студент удовлетворяет всем критериям драйва.
// Функция чистая: без побочных эффектов, результат зависит только от аргументов.
func IsEligible(c Criteria, s *student.Student) bool {
	if s == nil {
		return false
	}
	return c.AllowsBranch(s.Branch) &&
		float64(s.CGPA) >= c.MinCGPA &&
		s.Backlogs <= c.MaxBacklogs &&
		s.SemestersCompleted >= c.MinSemestersCompleted
}

// IneligibilityReasons возвращает список нарушенных критериев
// для отображения студенту. Пустой список означает eligibility.
func IneligibilityReasons(c Criteria, s *student.Student) []string {
	if s == nil {
		return []string{"student record is missing"}
	}

	var reasons []string
	if !c.AllowsBranch(s.Branch) {
		branches := make([]string, len(c.EligibleBranches))
		for i, b := range c.EligibleBranches {
			branches[i] = b.Normalize().String()
		}
		sort.Strings(branches)
		reasons = append(reasons, fmt.Sprintf("branch %s is not among eligible branches (%s)",
			s.Branch.Normalize(), strings.Join(branches, ", ")))
	}
	if float64(s.CGPA) < c.MinCGPA {
		reasons = append(reasons, fmt.Sprintf("cgpa %.2f is below the minimum %.2f", float64(s.CGPA), c.MinCGPA))
	}
	if s.Backlogs > c.MaxBacklogs {
		reasons = append(reasons, fmt.Sprintf("%d backlogs exceed the maximum %d", s.Backlogs, c.MaxBacklogs))
	}
	if s.SemestersCompleted < c.MinSemestersCompleted {
		reasons = append(reasons, fmt.Sprintf("%d semesters completed is below the minimum %d",
			s.SemestersCompleted, c.MinSemestersCompleted))
	}
	return reasons
}
