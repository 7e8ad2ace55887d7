package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

func baseCriteria() Criteria {
	return Criteria{
		MinCGPA:               7.5,
		MaxBacklogs:           1,
		MinSemestersCompleted: 4,
		EligibleBranches:      []student.Branch{"CSE", "ECE"},
	}
}

func eligibleStudent() *student.Student {
	return &student.Student{
		ID:                 "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b",
		Name:               "Asel Nurlanova",
		Email:              "asel@college.edu",
		RegistrationNumber: "REG2021001",
		Branch:             "CSE",
		Batch:              2026,
		CGPA:               8.1,
		Backlogs:           0,
		SemestersCompleted: 6,
	}
}

func TestIsEligible_AllCriteriaMet(t *testing.T) {
	assert.True(t, IsEligible(baseCriteria(), eligibleStudent()))
}

func TestIsEligible_SingleCriterionFlips(t *testing.T) {
	// Changing any one attribute to violate exactly one criterion
	// must flip the result to false.
	tests := []struct {
		name   string
		mutate func(s *student.Student)
	}{
		{"cgpa below minimum", func(s *student.Student) { s.CGPA = 7.4 }},
		{"branch not eligible", func(s *student.Student) { s.Branch = "MECH" }},
		{"too many backlogs", func(s *student.Student) { s.Backlogs = 2 }},
		{"too few semesters", func(s *student.Student) { s.SemestersCompleted = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := eligibleStudent()
			tt.mutate(s)
			assert.False(t, IsEligible(baseCriteria(), s))
			assert.NotEmpty(t, IneligibilityReasons(baseCriteria(), s))
		})
	}
}

func TestIsEligible_BoundaryValues(t *testing.T) {
	c := baseCriteria()
	s := eligibleStudent()

	// Exact boundaries are eligible: >=, <=, >= per criterion.
	s.CGPA = 7.5
	s.Backlogs = 1
	s.SemestersCompleted = 4
	assert.True(t, IsEligible(c, s))
}

func TestIsEligible_IrrelevantAttributesIgnored(t *testing.T) {
	c := baseCriteria()
	s := eligibleStudent()
	s.Name = "Someone Else"
	s.Batch = 2099
	assert.True(t, IsEligible(c, s))
}

func TestIsEligible_Deterministic(t *testing.T) {
	c := baseCriteria()
	s := eligibleStudent()
	first := IsEligible(c, s)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, IsEligible(c, s))
	}
}

func TestIsEligible_BranchNormalization(t *testing.T) {
	c := baseCriteria()
	s := eligibleStudent()
	s.Branch = "cse"
	assert.True(t, IsEligible(c, s))
}

func TestIsEligible_NilStudent(t *testing.T) {
	assert.False(t, IsEligible(baseCriteria(), nil))
}

func TestCriteria_Validate(t *testing.T) {
	assert.NoError(t, baseCriteria().Validate())

	bad := baseCriteria()
	bad.MinCGPA = 11
	assert.Error(t, bad.Validate())

	bad = baseCriteria()
	bad.MaxBacklogs = -1
	assert.Error(t, bad.Validate())

	bad = baseCriteria()
	bad.EligibleBranches = nil
	assert.Error(t, bad.Validate())
}

func TestIneligibilityReasons_Empty_WhenEligible(t *testing.T) {
	assert.Empty(t, IneligibilityReasons(baseCriteria(), eligibleStudent()))
}
