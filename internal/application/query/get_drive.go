package query

import (
	"context"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DRIVE QUERY
// Получает полную карточку драйва: критерии, фазы и сводку по заявкам.
// ══════════════════════════════════════════════════════════════════════════════

// GetDriveQuery содержит параметры запроса карточки драйва.
type GetDriveQuery struct {
	// DriveID - идентификатор драйва.
	DriveID shared.DriveID
}

// Validate проверяет корректность параметров.
func (q GetDriveQuery) Validate() error {
	if !q.DriveID.IsValid() {
		return shared.NewDomainError("query", "GetDrive", shared.ErrInvalidID, "drive id is invalid")
	}
	return nil
}

// PhaseDTO - DTO одной фазы драйва.
type PhaseDTO struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Requirements string `json:"requirements,omitempty"`
	Instructions string `json:"instructions,omitempty"`

	// Shortlisted - студенты, прошедшие в фазу.
	Shortlisted []string `json:"shortlisted"`

	// Unattended - студенты, выбывшие относительно предыдущей фазы.
	Unattended []string `json:"unattended"`

	CreatedAt time.Time `json:"created_at"`
}

// DriveDetailDTO - DTO полной карточки драйва.
type DriveDetailDTO struct {
	DriveSummaryDTO

	Phases []PhaseDTO `json:"phases"`

	// SelectedCount - количество заявок со статусом Selected.
	SelectedCount int `json:"selected_count"`

	UpdatedAt time.Time `json:"updated_at"`
}

// GetDriveHandler обрабатывает запросы карточки драйва.
type GetDriveHandler struct {
	driveRepo  drive.Repository
	driveCache drive.Cache
}

// NewGetDriveHandler создаёт новый обработчик.
func NewGetDriveHandler(driveRepo drive.Repository, driveCache drive.Cache) *GetDriveHandler {
	return &GetDriveHandler{
		driveRepo:  driveRepo,
		driveCache: driveCache,
	}
}

// Handle выполняет запрос карточки драйва.
func (h *GetDriveHandler) Handle(ctx context.Context, q GetDriveQuery) (*DriveDetailDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	d, err := h.loadDrive(ctx, q.DriveID)
	if err != nil {
		return nil, err
	}

	dto := &DriveDetailDTO{
		DriveSummaryDTO: toSummaryDTO(d),
		Phases:          make([]PhaseDTO, 0, len(d.Phases)),
		UpdatedAt:       d.UpdatedAt,
	}
	for _, p := range d.Phases {
		dto.Phases = append(dto.Phases, toPhaseDTO(p))
	}
	for _, a := range d.Applications {
		if a.Status == drive.ApplicationSelected {
			dto.SelectedCount++
		}
	}
	return dto, nil
}

// loadDrive загружает драйв через кеш, затем через репозиторий.
func (h *GetDriveHandler) loadDrive(ctx context.Context, id shared.DriveID) (*drive.Drive, error) {
	if h.driveCache != nil {
		if cached, err := h.driveCache.GetDrive(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}
	d, err := h.driveRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.driveCache != nil {
		_ = h.driveCache.SetDrive(ctx, d, detailTTL)
	}
	return d, nil
}

func toPhaseDTO(p *drive.Phase) PhaseDTO {
	return PhaseDTO{
		Index:        p.Index,
		Name:         p.Name.String(),
		Requirements: p.Requirements,
		Instructions: p.Instructions,
		Shortlisted:  studentIDStrings(p.Shortlisted.Sorted()),
		Unattended:   studentIDStrings(p.Unattended.Sorted()),
		CreatedAt:    p.CreatedAt,
	}
}

func studentIDStrings(ids []shared.StudentID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
