// Package query contains read operations (CQRS - Queries).
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST DRIVES QUERY
// Получает список драйвов с фильтрацией по статусу и пагинацией.
// ══════════════════════════════════════════════════════════════════════════════

// Фильтры списка драйвов поверх статусов домена.
const (
	// FilterOpen - незавершённые драйвы (Upcoming и InProgress).
	FilterOpen = "open"
)

// ListDrivesQuery содержит параметры запроса списка драйвов.
type ListDrivesQuery struct {
	// Status - фильтр по статусу: "upcoming", "in_progress", "completed",
	// "open" или пустая строка (все драйвы).
	Status string

	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *ListDrivesQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	switch q.Status {
	case "", FilterOpen:
		return nil
	default:
		if !drive.Status(q.Status).IsValid() {
			return errors.New("unknown status filter: " + q.Status)
		}
	}
	return nil
}

// CriteriaDTO - DTO критериев отбора драйва.
type CriteriaDTO struct {
	MinCGPA               float64  `json:"min_cgpa"`
	MaxBacklogs           int      `json:"max_backlogs"`
	MinSemestersCompleted int      `json:"min_semesters_completed"`
	EligibleBranches      []string `json:"eligible_branches"`
}

// DriveSummaryDTO - DTO краткой карточки драйва для списков.
type DriveSummaryDTO struct {
	ID          string      `json:"id"`
	CompanyName string      `json:"company_name"`
	Role        string      `json:"role"`
	Description string      `json:"description,omitempty"`
	Date        *time.Time  `json:"date,omitempty"`
	Status      string      `json:"status"`
	Criteria    CriteriaDTO `json:"criteria"`

	// ApplicantCount - количество поданных заявок.
	ApplicantCount int `json:"applicant_count"`

	// PhaseCount - количество проведённых фаз.
	PhaseCount int `json:"phase_count"`

	CreatedAt time.Time `json:"created_at"`
}

// ListDrivesResult содержит результат запроса списка драйвов.
type ListDrivesResult struct {
	Drives []DriveSummaryDTO `json:"drives"`

	// TotalCount - общее количество драйвов в системе.
	TotalCount int `json:"total_count"`

	// HasMore - есть ли записи после текущей страницы.
	HasMore bool `json:"has_more"`
}

// ListDrivesHandler обрабатывает запросы списка драйвов.
type ListDrivesHandler struct {
	driveRepo  drive.Repository
	driveCache drive.Cache
}

// NewListDrivesHandler создаёт новый обработчик.
// driveCache может быть nil - тогда запросы идут напрямую в репозиторий.
func NewListDrivesHandler(driveRepo drive.Repository, driveCache drive.Cache) *ListDrivesHandler {
	return &ListDrivesHandler{
		driveRepo:  driveRepo,
		driveCache: driveCache,
	}
}

// Handle выполняет запрос списка драйвов.
func (h *ListDrivesHandler) Handle(ctx context.Context, q ListDrivesQuery) (*ListDrivesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "ListDrives", shared.ErrValidation, err.Error(), err)
	}

	opts := drive.ListOptions{Limit: q.Limit, Offset: q.Offset}

	drives, err := h.fetch(ctx, q, opts)
	if err != nil {
		return nil, shared.WrapError("query", "ListDrives", shared.ErrInternal, "failed to list drives", err)
	}

	total, err := h.driveRepo.Count(ctx)
	if err != nil {
		// Count не критичен для выдачи списка.
		total = len(drives)
	}

	summaries := make([]DriveSummaryDTO, 0, len(drives))
	for _, d := range drives {
		summaries = append(summaries, toSummaryDTO(d))
	}

	return &ListDrivesResult{
		Drives:     summaries,
		TotalCount: total,
		HasMore:    len(drives) == q.Limit,
	}, nil
}

// fetch выбирает источник данных по фильтру. Для открытых драйвов
// сначала пробуем кеш - это самый горячий путь (лента для студентов).
func (h *ListDrivesHandler) fetch(ctx context.Context, q ListDrivesQuery, opts drive.ListOptions) ([]*drive.Drive, error) {
	switch q.Status {
	case FilterOpen:
		if h.driveCache != nil && q.Offset == 0 {
			if cached, err := h.driveCache.GetOpenList(ctx); err == nil && cached != nil {
				if len(cached) > q.Limit {
					cached = cached[:q.Limit]
				}
				return cached, nil
			}
		}
		drives, err := h.driveRepo.GetOpen(ctx, opts)
		if err != nil {
			return nil, err
		}
		if h.driveCache != nil && q.Offset == 0 {
			_ = h.driveCache.SetOpenList(ctx, drives, openListTTL)
		}
		return drives, nil
	case "":
		return h.driveRepo.GetAll(ctx, opts)
	default:
		return h.driveRepo.GetByStatus(ctx, drive.Status(q.Status), opts)
	}
}

// TTL кешей read-путей. Короткие, потому что мутации инвалидируют
// кеш best-effort и устаревание должно быть ограничено сверху.
const (
	openListTTL = 1 * time.Minute
	eligibleTTL = 5 * time.Minute
	detailTTL   = 30 * time.Second
)

func toSummaryDTO(d *drive.Drive) DriveSummaryDTO {
	dto := DriveSummaryDTO{
		ID:          d.ID.String(),
		CompanyName: d.CompanyName,
		Role:        d.Role,
		Description: d.Description,
		Status:      string(d.Status),
		Criteria:    toCriteriaDTO(d.Criteria),

		ApplicantCount: len(d.Applications),
		PhaseCount:     len(d.Phases),
		CreatedAt:      d.CreatedAt,
	}
	if !d.Date.IsZero() {
		date := d.Date
		dto.Date = &date
	}
	return dto
}

func toCriteriaDTO(c drive.Criteria) CriteriaDTO {
	branches := make([]string, 0, len(c.EligibleBranches))
	for _, b := range c.EligibleBranches {
		branches = append(branches, string(b))
	}
	return CriteriaDTO{
		MinCGPA:               c.MinCGPA,
		MaxBacklogs:           c.MaxBacklogs,
		MinSemestersCompleted: c.MinSemestersCompleted,
		EligibleBranches:      branches,
	}
}
