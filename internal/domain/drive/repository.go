package drive

import (
	"context"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ListOptions - параметры пагинации и сортировки.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 50, Offset: 0}
}

// Repository определяет операции хранения драйвов.
//
// Контракт конкуренции: Save выполняет compare-and-swap по полю Version.
// Если версия в хранилище не совпадает с drive.Version, Save возвращает
// shared.ErrConcurrentModification и не применяет никаких изменений.
// При успехе версия в хранилище и в переданном аггрегате инкрементируется.
type Repository interface {
	// Create создаёт новый драйв.
	// Возвращает shared.ErrDriveAlreadyExists, если драйв уже существует.
	Create(ctx context.Context, d *Drive) error

	// GetByID возвращает драйв со всеми фазами и заявками.
	// Возвращает shared.ErrDriveNotFound, если драйв не найден.
	GetByID(ctx context.Context, id shared.DriveID) (*Drive, error)

	// Save атомарно сохраняет мутацию аггрегата: фазы, заявки и статус
	// фиксируются в одной транзакции вместе с инкрементом версии.
	// Возвращает shared.ErrConcurrentModification при несовпадении версии
	// и shared.ErrAlreadyApplied при нарушении уникальности заявки.
	Save(ctx context.Context, d *Drive) error

	// GetAll возвращает драйвы с пагинацией, новые первыми.
	GetAll(ctx context.Context, opts ListOptions) ([]*Drive, error)

	// GetByStatus возвращает драйвы в указанном статусе.
	GetByStatus(ctx context.Context, status Status, opts ListOptions) ([]*Drive, error)

	// GetOpen возвращает незавершённые драйвы (Upcoming и InProgress).
	GetOpen(ctx context.Context, opts ListOptions) ([]*Drive, error)

	// Count возвращает общее количество драйвов.
	Count(ctx context.Context) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache определяет контракт кеширования для read-путей.
// Кеш всегда best-effort: промах или ошибка кеша не должны ломать запрос.
type Cache interface {
	// GetDrive возвращает закешированный драйв.
	// Возвращает nil, nil при промахе.
	GetDrive(ctx context.Context, id shared.DriveID) (*Drive, error)

	// SetDrive сохраняет драйв в кеш с TTL.
	SetDrive(ctx context.Context, d *Drive, ttl time.Duration) error

	// GetOpenList возвращает закешированный список открытых драйвов.
	// Возвращает nil, nil при промахе.
	GetOpenList(ctx context.Context) ([]*Drive, error)

	// SetOpenList сохраняет список открытых драйвов в кеш.
	SetOpenList(ctx context.Context, drives []*Drive, ttl time.Duration) error

	// GetEligibleIDs возвращает закешированные ID драйвов,
	// доступных студенту. Возвращает nil, nil при промахе.
	GetEligibleIDs(ctx context.Context, studentID shared.StudentID) ([]shared.DriveID, error)

	// SetEligibleIDs сохраняет набор доступных драйвов в кеш.
	SetEligibleIDs(ctx context.Context, studentID shared.StudentID, ids []shared.DriveID, ttl time.Duration) error

	// InvalidateDrive сбрасывает кеш конкретного драйва.
	InvalidateDrive(ctx context.Context, id shared.DriveID) error

	// InvalidateLists сбрасывает списочные кеши (открытые драйвы
	// и все eligible-наборы). Вызывается после любой мутации.
	InvalidateLists(ctx context.Context) error
}
