// Package drive содержит доменную модель рекрутингового драйва placement-центра.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package drive

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// StudentSet представляет множество студентов (по ID) без дубликатов.
// Используется для шортлистов и списков неявившихся.
type StudentSet map[shared.StudentID]struct{}

// NewStudentSet создаёт множество из списка ID.
func NewStudentSet(ids ...shared.StudentID) StudentSet {
	s := make(StudentSet, len(ids))
	for _, id := range ids {
		if !id.IsEmpty() {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains проверяет наличие студента в множестве.
func (s StudentSet) Contains(id shared.StudentID) bool {
	_, ok := s[id]
	return ok
}

// Add добавляет студента в множество.
func (s StudentSet) Add(id shared.StudentID) {
	if !id.IsEmpty() {
		s[id] = struct{}{}
	}
}

// Remove удаляет студента из множества.
func (s StudentSet) Remove(id shared.StudentID) {
	delete(s, id)
}

// Len возвращает размер множества.
func (s StudentSet) Len() int {
	return len(s)
}

// IsEmpty проверяет, что множество пустое.
func (s StudentSet) IsEmpty() bool {
	return len(s) == 0
}

// Diff возвращает элементы s, отсутствующие в other (s \ other).
// Это канонический алгоритм вычисления неявившихся студентов.
func (s StudentSet) Diff(other StudentSet) StudentSet {
	out := make(StudentSet)
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted возвращает отсортированный срез ID для детерминированного обхода.
func (s StudentSet) Sorted() []shared.StudentID {
	out := make([]shared.StudentID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone создаёт независимую копию множества.
func (s StudentSet) Clone() StudentSet {
	out := make(StudentSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal сравнивает два множества.
func (s StudentSet) Equal(other StudentSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет текущий статус драйва.
type Status string

const (
	// StatusUpcoming - драйв создан, фазы ещё не начались.
	StatusUpcoming Status = "upcoming"
	// StatusInProgress - идёт отбор (добавлена хотя бы одна фаза).
	StatusInProgress Status = "in_progress"
	// StatusCompleted - драйв завершён. Терминальное состояние.
	StatusCompleted Status = "completed"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true, если из этого статуса нет переходов.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// driveTransitions - закрытая таблица допустимых переходов статуса драйва.
// Upcoming -> InProgress: побочный эффект первой успешной фазы.
// Upcoming/InProgress -> Completed: только через завершение драйва, необратимо.
var driveTransitions = map[Status][]Status{
	StatusUpcoming:   {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
}

// CanTransition проверяет допустимость перехода между статусами драйва.
func (s Status) CanTransition(to Status) bool {
	for _, next := range driveTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplicationStatus определяет статус заявки студента на драйв.
type ApplicationStatus string

const (
	// ApplicationApplied - заявка подана.
	ApplicationApplied ApplicationStatus = "applied"
	// ApplicationInterview - студент приглашён на интервью.
	ApplicationInterview ApplicationStatus = "interview"
	// ApplicationSelected - студент отобран.
	ApplicationSelected ApplicationStatus = "selected"
	// ApplicationRejected - заявка отклонена.
	ApplicationRejected ApplicationStatus = "rejected"
)

// IsValid проверяет, что статус заявки корректен.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationApplied, ApplicationInterview, ApplicationSelected, ApplicationRejected:
		return true
	default:
		return false
	}
}

// ParseApplicationStatus разбирает строковое представление статуса заявки.
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	s := ApplicationStatus(raw)
	if !s.IsValid() {
		return "", shared.NewDomainError("drive", "ParseApplicationStatus", shared.ErrInvalidInput,
			fmt.Sprintf("unknown application status %q", raw))
	}
	return s, nil
}

// PhaseName определяет тип фазы отбора. Закрытый набор.
type PhaseName string

const (
	PhaseResumeScreening    PhaseName = "resume_screening"
	PhaseWrittenTest        PhaseName = "written_test"
	PhaseGroupDiscussion    PhaseName = "group_discussion"
	PhaseTechnicalInterview PhaseName = "technical_interview"
	PhaseHRInterview        PhaseName = "hr_interview"
	PhaseFinalSelection     PhaseName = "final_selection"
)

// IsValid проверяет, что имя фазы корректно.
func (p PhaseName) IsValid() bool {
	switch p {
	case PhaseResumeScreening, PhaseWrittenTest, PhaseGroupDiscussion,
		PhaseTechnicalInterview, PhaseHRInterview, PhaseFinalSelection:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление имени фазы.
func (p PhaseName) String() string {
	return string(p)
}

// ParsePhaseName разбирает строковое представление имени фазы.
func ParsePhaseName(raw string) (PhaseName, error) {
	p := PhaseName(raw)
	if !p.IsValid() {
		return "", shared.ErrInvalidPhaseName
	}
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// Application - заявка одного студента на один драйв.
// Инвариант: не более одной заявки на пару (драйв, студент).
type Application struct {
	// StudentID - идентификатор студента (ссылка на StudentDirectory).
	StudentID shared.StudentID

	// Status - текущий статус заявки.
	Status ApplicationStatus

	// AppliedAt - время подачи заявки.
	AppliedAt time.Time

	// UpdatedAt - время последнего изменения статуса.
	UpdatedAt time.Time
}

// Clone создаёт независимую копию заявки.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// PHASE
// ══════════════════════════════════════════════════════════════════════════════

// Phase - одна фаза отбора с зафиксированным шортлистом.
// Фазы неизменяемы после создания, кроме шортлиста текущей (последней) фазы,
// который может редактироваться явными операциями до добавления следующей фазы.
type Phase struct {
	// Index - позиция в последовательности фаз. Неизменяема.
	Index int

	// Name - тип фазы из закрытого набора.
	Name PhaseName

	// Requirements - требования к участникам фазы.
	Requirements string

	// Instructions - инструкции для участников.
	Instructions string

	// Shortlisted - множество студентов, прошедших в эту фазу.
	Shortlisted StudentSet

	// Unattended - студенты из шортлиста предыдущей фазы,
	// отсутствующие в текущем шортлисте.
	Unattended StudentSet

	// CreatedAt - время создания фазы.
	CreatedAt time.Time
}

// Clone создаёт независимую копию фазы.
func (p *Phase) Clone() *Phase {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Shortlisted = p.Shortlisted.Clone()
	clone.Unattended = p.Unattended.Clone()
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: DRIVE
// ══════════════════════════════════════════════════════════════════════════════

// Drive - центральная сущность: рекрутинговый драйв компании
// с критериями отбора и последовательностью фаз.
type Drive struct {
	// ID - внутренний уникальный идентификатор.
	ID shared.DriveID

	// CompanyName - название компании.
	CompanyName string

	// Role - предлагаемая позиция.
	Role string

	// Description - описание драйва.
	Description string

	// Criteria - критерии отбора студентов.
	Criteria Criteria

	// Date - дата проведения драйва.
	Date time.Time

	// Status - текущий статус драйва.
	Status Status

	// Applications - упорядоченный список заявок. Не более одной на студента.
	Applications []*Application

	// Phases - append-only последовательность фаз отбора.
	Phases []*Phase

	// Version - монотонный счётчик для оптимистичной конкуренции.
	// Инкрементируется хранилищем при каждой успешной мутации.
	Version int64

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewDriveParams содержит параметры для создания нового драйва.
type NewDriveParams struct {
	ID          shared.DriveID
	CompanyName string
	Role        string
	Description string
	Criteria    Criteria
	Date        time.Time
}

// NewDrive создаёт новый драйв с валидацией всех полей.
// Драйв создаётся в статусе Upcoming без заявок и фаз.
func NewDrive(params NewDriveParams) (*Drive, error) {
	if params.ID.IsEmpty() {
		return nil, shared.NewDomainError("drive", "NewDrive", shared.ErrInvalidID, "drive id is required")
	}
	if params.CompanyName == "" {
		return nil, shared.NewDomainError("drive", "NewDrive", shared.ErrEmptyValue, "company name is required")
	}
	if params.Role == "" {
		return nil, shared.NewDomainError("drive", "NewDrive", shared.ErrEmptyValue, "role is required")
	}
	if err := params.Criteria.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Drive{
		ID:           params.ID,
		CompanyName:  params.CompanyName,
		Role:         params.Role,
		Description:  params.Description,
		Criteria:     params.Criteria,
		Date:         params.Date,
		Status:       StatusUpcoming,
		Applications: nil,
		Phases:       nil,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS: APPLICATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ApplicationOf возвращает заявку студента или nil, если её нет.
func (d *Drive) ApplicationOf(studentID shared.StudentID) *Application {
	for _, app := range d.Applications {
		if app.StudentID == studentID {
			return app
		}
	}
	return nil
}

// Apply подаёт заявку студента на драйв.
// Порядок проверок: терминальное состояние, критерии отбора, дубликат.
// Возвращает созданную заявку в статусе Applied.
func (d *Drive) Apply(s *student.Student) (*Application, error) {
	if d.Status.IsTerminal() {
		return nil, shared.ErrDriveClosed
	}
	if !IsEligible(d.Criteria, s) {
		return nil, shared.ErrNotEligible
	}
	sid := shared.StudentID(s.ID)
	if d.ApplicationOf(sid) != nil {
		return nil, shared.ErrAlreadyApplied
	}

	now := time.Now().UTC()
	app := &Application{
		StudentID: sid,
		Status:    ApplicationApplied,
		AppliedAt: now,
		UpdatedAt: now,
	}
	d.Applications = append(d.Applications, app)
	d.UpdatedAt = now
	return app, nil
}

// SetApplicationStatus - административное изменение статуса заявки.
// Возвращает прежний статус для формирования события.
func (d *Drive) SetApplicationStatus(studentID shared.StudentID, status ApplicationStatus) (ApplicationStatus, error) {
	if d.Status.IsTerminal() {
		return "", shared.ErrDriveClosed
	}
	if !status.IsValid() {
		return "", shared.NewDomainError("drive", "SetApplicationStatus", shared.ErrInvalidInput,
			fmt.Sprintf("unknown application status %q", status))
	}
	app := d.ApplicationOf(studentID)
	if app == nil {
		return "", shared.ErrUnknownApplicant
	}

	old := app.Status
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	d.UpdatedAt = app.UpdatedAt
	return old, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS: PHASES
// ══════════════════════════════════════════════════════════════════════════════

// AddPhaseParams содержит параметры добавления фазы.
// Shortlisted обязателен. Unattended == nil означает "не задан":
// для фаз после первой он вычисляется как разность с предыдущим шортлистом,
// для первой фазы остаётся пустым.
type AddPhaseParams struct {
	Name         PhaseName
	Requirements string
	Instructions string
	Shortlisted  StudentSet
	Unattended   StudentSet
}

// CurrentPhase возвращает последнюю (текущую) фазу или nil.
func (d *Drive) CurrentPhase() *Phase {
	if len(d.Phases) == 0 {
		return nil
	}
	return d.Phases[len(d.Phases)-1]
}

// previousShortlist возвращает шортлист последней фазы до добавления новой.
func (d *Drive) previousShortlist() StudentSet {
	if p := d.CurrentPhase(); p != nil {
		return p.Shortlisted
	}
	return nil
}

// AddPhase добавляет новую фазу отбора в конец последовательности.
//
// Инварианты:
//   - фазы только добавляются, ранее созданные фазы не пересчитываются;
//   - разность неявившихся всегда читает шортлист phases[len-1] до добавления;
//   - первая успешная фаза переводит Upcoming -> InProgress.
func (d *Drive) AddPhase(params AddPhaseParams) (*Phase, error) {
	if d.Status.IsTerminal() {
		return nil, shared.ErrDriveClosed
	}
	if !params.Name.IsValid() {
		return nil, shared.ErrInvalidPhaseName
	}
	if params.Shortlisted == nil {
		return nil, shared.ErrMissingShortlist
	}

	unattended := params.Unattended
	if unattended == nil {
		if prev := d.previousShortlist(); prev != nil {
			unattended = prev.Diff(params.Shortlisted)
		} else {
			unattended = NewStudentSet()
		}
	}

	now := time.Now().UTC()
	phase := &Phase{
		Index:        len(d.Phases),
		Name:         params.Name,
		Requirements: params.Requirements,
		Instructions: params.Instructions,
		Shortlisted:  params.Shortlisted.Clone(),
		Unattended:   unattended.Clone(),
		CreatedAt:    now,
	}

	d.Phases = append(d.Phases, phase)
	if d.Status == StatusUpcoming {
		d.Status = StatusInProgress
	}
	d.UpdatedAt = now
	return phase, nil
}

// AddToCurrentShortlist добавляет студента в шортлист текущей фазы
// и переводит его заявку в статус Selected.
// Проверка критериев отбора намеренно не выполняется: это ручной
// override координатора. Если заявки нет, она создаётся.
func (d *Drive) AddToCurrentShortlist(studentID shared.StudentID) error {
	if d.Status.IsTerminal() {
		return shared.ErrDriveClosed
	}
	phase := d.CurrentPhase()
	if phase == nil {
		return shared.ErrNoPhases
	}

	now := time.Now().UTC()
	phase.Shortlisted.Add(studentID)

	app := d.ApplicationOf(studentID)
	if app == nil {
		app = &Application{
			StudentID: studentID,
			Status:    ApplicationSelected,
			AppliedAt: now,
			UpdatedAt: now,
		}
		d.Applications = append(d.Applications, app)
	} else {
		app.Status = ApplicationSelected
		app.UpdatedAt = now
	}
	d.UpdatedAt = now
	return nil
}

// RemoveFromCurrentShortlist переводит заявку студента в статус Rejected.
// Снимок фазы не изменяется: студент не переносится в Unattended,
// это чисто изменение статуса заявки поверх зафиксированной фазы.
// Возвращает прежний статус для формирования события.
func (d *Drive) RemoveFromCurrentShortlist(studentID shared.StudentID) (ApplicationStatus, error) {
	if d.Status.IsTerminal() {
		return "", shared.ErrDriveClosed
	}
	if d.CurrentPhase() == nil {
		return "", shared.ErrNoPhases
	}
	app := d.ApplicationOf(studentID)
	if app == nil {
		return "", shared.ErrUnknownApplicant
	}

	old := app.Status
	app.Status = ApplicationRejected
	app.UpdatedAt = time.Now().UTC()
	d.UpdatedAt = app.UpdatedAt
	return old, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS: LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Complete завершает драйв: все студенты из финального шортлиста получают
// статус Selected, драйв переходит в терминальный статус Completed.
// Вызывается после добавления финальной фазы. Необратимо.
func (d *Drive) Complete() (selected []shared.StudentID, err error) {
	if d.Status.IsTerminal() {
		return nil, shared.ErrDriveClosed
	}
	final := d.CurrentPhase()
	if final == nil {
		return nil, shared.ErrNoPhases
	}
	if !d.Status.CanTransition(StatusCompleted) {
		return nil, shared.ErrInvalidDriveStatus
	}

	now := time.Now().UTC()
	for _, sid := range final.Shortlisted.Sorted() {
		app := d.ApplicationOf(sid)
		if app == nil {
			// Студент попал в финальный шортлист через ростер, минуя apply.
			app = &Application{
				StudentID: sid,
				AppliedAt: now,
			}
			d.Applications = append(d.Applications, app)
		}
		app.Status = ApplicationSelected
		app.UpdatedAt = now
		selected = append(selected, sid)
	}

	d.Status = StatusCompleted
	d.UpdatedAt = now
	return selected, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED READS
// ══════════════════════════════════════════════════════════════════════════════

// DisplayStatus - производный статус студента для отображения.
// Членство в шортлисте текущей фазы уточняет сырой статус заявки.
type DisplayStatus string

const (
	DisplayNotApplied  DisplayStatus = "not_applied"
	DisplayApplied     DisplayStatus = "applied"
	DisplayShortlisted DisplayStatus = "shortlisted"
	DisplayInterview   DisplayStatus = "interview"
	DisplaySelected    DisplayStatus = "selected"
	DisplayRejected    DisplayStatus = "rejected"
	DisplayUnattended  DisplayStatus = "unattended"
)

// DisplayStatusOf вычисляет отображаемый статус студента.
// Это view-уровневое уточнение, не хранимое поле.
func (d *Drive) DisplayStatusOf(studentID shared.StudentID) DisplayStatus {
	app := d.ApplicationOf(studentID)
	if app == nil {
		return DisplayNotApplied
	}

	switch app.Status {
	case ApplicationSelected:
		return DisplaySelected
	case ApplicationRejected:
		return DisplayRejected
	}

	if phase := d.CurrentPhase(); phase != nil {
		if phase.Shortlisted.Contains(studentID) {
			switch phase.Name {
			case PhaseTechnicalInterview, PhaseHRInterview:
				return DisplayInterview
			default:
				return DisplayShortlisted
			}
		}
		if phase.Unattended.Contains(studentID) {
			return DisplayUnattended
		}
	}

	switch app.Status {
	case ApplicationInterview:
		return DisplayInterview
	default:
		return DisplayApplied
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITIES
// ══════════════════════════════════════════════════════════════════════════════

// DiffShortlists вычисляет изменения между двумя шортлистами:
// entered - новые студенты, left - выбывшие.
func DiffShortlists(prev, cur StudentSet) (entered, left StudentSet) {
	if prev == nil {
		prev = NewStudentSet()
	}
	if cur == nil {
		cur = NewStudentSet()
	}
	return cur.Diff(prev), prev.Diff(cur)
}

// String возвращает строковое представление драйва для логирования.
func (d *Drive) String() string {
	return fmt.Sprintf(
		"Drive{ID: %s, Company: %s, Role: %s, Status: %s, Phases: %d, Applications: %d, Version: %d}",
		d.ID, d.CompanyName, d.Role, d.Status, len(d.Phases), len(d.Applications), d.Version,
	)
}

// Clone создаёт глубокую копию драйва.
func (d *Drive) Clone() *Drive {
	if d == nil {
		return nil
	}

	clone := *d
	clone.Applications = make([]*Application, len(d.Applications))
	for i, app := range d.Applications {
		clone.Applications[i] = app.Clone()
	}
	clone.Phases = make([]*Phase, len(d.Phases))
	for i, p := range d.Phases {
		clone.Phases[i] = p.Clone()
	}
	return &clone
}

// validateStatus - защитная проверка при восстановлении из хранилища.
func validateStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", errors.New("drive: unknown status " + raw)
	}
	return s, nil
}

// ParseStatus разбирает строковое представление статуса драйва.
func ParseStatus(raw string) (Status, error) {
	return validateStatus(raw)
}
