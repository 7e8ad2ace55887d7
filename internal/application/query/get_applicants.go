package query

import (
	"context"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET APPLICANTS QUERY
// Получает список заявок драйва с производным display-статусом:
// хранимый статус заявки дополняется позицией студента в фазах.
// ══════════════════════════════════════════════════════════════════════════════

// GetApplicantsQuery содержит параметры запроса списка заявок.
type GetApplicantsQuery struct {
	// DriveID - идентификатор драйва.
	DriveID shared.DriveID

	// Status - фильтр по хранимому статусу заявки (пустая строка = все).
	Status string
}

// Validate проверяет корректность параметров.
func (q GetApplicantsQuery) Validate() error {
	if !q.DriveID.IsValid() {
		return shared.NewDomainError("query", "GetApplicants", shared.ErrInvalidID, "drive id is invalid")
	}
	if q.Status != "" {
		if _, err := drive.ParseApplicationStatus(q.Status); err != nil {
			return err
		}
	}
	return nil
}

// ApplicantDTO - DTO одной заявки с данными студента из справочника.
type ApplicantDTO struct {
	StudentID string `json:"student_id"`

	// Name, Email, Branch берутся из справочника студентов.
	// Пустые, если справочник недоступен или студент не найден.
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Branch string `json:"branch,omitempty"`

	// Status - хранимый статус заявки.
	Status string `json:"status"`

	// DisplayStatus - производный статус с учётом фаз:
	// "applied", "shortlisted", "interview", "unattended",
	// "selected", "rejected".
	DisplayStatus string `json:"display_status"`

	AppliedAt time.Time `json:"applied_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetApplicantsResult содержит результат запроса заявок.
type GetApplicantsResult struct {
	DriveID    string         `json:"drive_id"`
	Applicants []ApplicantDTO `json:"applicants"`
	TotalCount int            `json:"total_count"`
}

// GetApplicantsHandler обрабатывает запросы списка заявок.
type GetApplicantsHandler struct {
	driveRepo drive.Repository
	directory student.Directory
}

// NewGetApplicantsHandler создаёт новый обработчик.
func NewGetApplicantsHandler(driveRepo drive.Repository, directory student.Directory) *GetApplicantsHandler {
	return &GetApplicantsHandler{
		driveRepo: driveRepo,
		directory: directory,
	}
}

// Handle выполняет запрос списка заявок.
func (h *GetApplicantsHandler) Handle(ctx context.Context, q GetApplicantsQuery) (*GetApplicantsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	d, err := h.driveRepo.GetByID(ctx, q.DriveID)
	if err != nil {
		return nil, err
	}

	apps := d.Applications
	if q.Status != "" {
		filtered := make([]*drive.Application, 0, len(apps))
		for _, a := range apps {
			if string(a.Status) == q.Status {
				filtered = append(filtered, a)
			}
		}
		apps = filtered
	}

	profiles := h.resolveProfiles(ctx, apps)

	result := &GetApplicantsResult{
		DriveID:    d.ID.String(),
		Applicants: make([]ApplicantDTO, 0, len(apps)),
		TotalCount: len(apps),
	}
	for _, a := range apps {
		dto := ApplicantDTO{
			StudentID:     a.StudentID.String(),
			Status:        string(a.Status),
			DisplayStatus: string(d.DisplayStatusOf(a.StudentID)),
			AppliedAt:     a.AppliedAt,
			UpdatedAt:     a.UpdatedAt,
		}
		if s, ok := profiles[a.StudentID]; ok {
			dto.Name = s.Name
			dto.Email = s.Email.String()
			dto.Branch = string(s.Branch)
		}
		result.Applicants = append(result.Applicants, dto)
	}
	return result, nil
}

// resolveProfiles обогащает заявки профилями из справочника.
// Ошибки справочника не критичны: список заявок полезен и без имён.
func (h *GetApplicantsHandler) resolveProfiles(
	ctx context.Context,
	apps []*drive.Application,
) map[shared.StudentID]*student.Student {
	profiles := make(map[shared.StudentID]*student.Student, len(apps))
	if h.directory == nil || len(apps) == 0 {
		return profiles
	}

	ids := make([]shared.StudentID, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.StudentID)
	}

	students, err := h.directory.ResolveMany(ctx, ids)
	if err != nil {
		return profiles
	}
	for _, s := range students {
		profiles[shared.StudentID(s.ID)] = s
	}
	return profiles
}
