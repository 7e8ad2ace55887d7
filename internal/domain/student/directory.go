package student

import (
	"context"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY INTERFACE
// StudentDirectory - внешний read-only справочник студентов.
// Ядро драйвов обращается к нему только через этот контракт.
// ══════════════════════════════════════════════════════════════════════════════

// Directory разрешает идентификатор студента в каноническую запись.
type Directory interface {
	// Resolve разрешает идентификатор (email или регистрационный номер).
	// Возвращает shared.ErrStudentNotFound, если запись не найдена.
	Resolve(ctx context.Context, identifier shared.Identifier) (*Student, error)

	// ResolveByID возвращает запись по внутреннему ID.
	// Возвращает shared.ErrStudentNotFound, если запись не найдена.
	ResolveByID(ctx context.Context, id shared.StudentID) (*Student, error)

	// ResolveMany разрешает несколько ID за один вызов.
	// Отсутствующие записи пропускаются без ошибки.
	ResolveMany(ctx context.Context, ids []shared.StudentID) ([]*Student, error)
}
