package query

import (
	"context"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBLE DRIVES QUERY
// Получает открытые драйвы, критериям которых удовлетворяет студент.
// Это главная студенческая лента: "куда я могу податься прямо сейчас".
// ══════════════════════════════════════════════════════════════════════════════

// EligibleDrivesQuery содержит параметры запроса доступных драйвов.
type EligibleDrivesQuery struct {
	// StudentID - студент, для которого считаем доступность.
	StudentID shared.StudentID
}

// Validate проверяет корректность параметров.
func (q EligibleDrivesQuery) Validate() error {
	if !q.StudentID.IsValid() {
		return shared.NewDomainError("query", "EligibleDrives", shared.ErrInvalidID, "student id is invalid")
	}
	return nil
}

// EligibleDriveDTO - карточка доступного драйва с пометкой о поданной заявке.
type EligibleDriveDTO struct {
	DriveSummaryDTO

	// AlreadyApplied - подавал ли студент заявку на этот драйв.
	AlreadyApplied bool `json:"already_applied"`
}

// EligibleDrivesResult содержит результат запроса.
type EligibleDrivesResult struct {
	StudentID string             `json:"student_id"`
	Drives    []EligibleDriveDTO `json:"drives"`
}

// EligibleDrivesHandler обрабатывает запросы доступных драйвов.
type EligibleDrivesHandler struct {
	driveRepo  drive.Repository
	directory  student.Directory
	driveCache drive.Cache
}

// NewEligibleDrivesHandler создаёт новый обработчик.
func NewEligibleDrivesHandler(
	driveRepo drive.Repository,
	directory student.Directory,
	driveCache drive.Cache,
) *EligibleDrivesHandler {
	return &EligibleDrivesHandler{
		driveRepo:  driveRepo,
		directory:  directory,
		driveCache: driveCache,
	}
}

// Handle выполняет запрос доступных драйвов.
//
// Кешируется только набор ID доступных драйвов: профиль студента и
// критерии меняются редко, а сами карточки драйвов всегда берутся
// свежими, чтобы не показывать устаревший статус.
func (h *EligibleDrivesHandler) Handle(ctx context.Context, q EligibleDrivesQuery) (*EligibleDrivesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s, err := h.directory.ResolveByID(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	open, err := h.driveRepo.GetOpen(ctx, drive.DefaultListOptions())
	if err != nil {
		return nil, shared.WrapError("query", "EligibleDrives", shared.ErrInternal, "failed to load open drives", err)
	}

	eligible := h.filterEligible(ctx, q.StudentID, open, s)

	result := &EligibleDrivesResult{
		StudentID: q.StudentID.String(),
		Drives:    make([]EligibleDriveDTO, 0, len(eligible)),
	}
	for _, d := range eligible {
		result.Drives = append(result.Drives, EligibleDriveDTO{
			DriveSummaryDTO: toSummaryDTO(d),
			AlreadyApplied:  d.ApplicationOf(q.StudentID) != nil,
		})
	}
	return result, nil
}

// filterEligible отбирает драйвы по критериям, используя кешированный
// набор ID как быстрый путь.
func (h *EligibleDrivesHandler) filterEligible(
	ctx context.Context,
	studentID shared.StudentID,
	open []*drive.Drive,
	s *student.Student,
) []*drive.Drive {
	if h.driveCache != nil {
		if ids, err := h.driveCache.GetEligibleIDs(ctx, studentID); err == nil && ids != nil {
			idSet := make(map[shared.DriveID]struct{}, len(ids))
			for _, id := range ids {
				idSet[id] = struct{}{}
			}
			var out []*drive.Drive
			for _, d := range open {
				if _, ok := idSet[d.ID]; ok {
					out = append(out, d)
				}
			}
			return out
		}
	}

	var out []*drive.Drive
	ids := make([]shared.DriveID, 0, len(open))
	for _, d := range open {
		if drive.IsEligible(d.Criteria, s) {
			out = append(out, d)
			ids = append(ids, d.ID)
		}
	}
	if h.driveCache != nil {
		_ = h.driveCache.SetEligibleIDs(ctx, studentID, ids, eligibleTTL)
	}
	return out
}
