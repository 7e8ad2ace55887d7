// Package roster implements xlsx roster ingestion.
// Coordinators upload shortlists as spreadsheets; this package parses the
// first sheet, resolves each identifier row against the student directory
// and reports unresolvable rows as warnings instead of failing the upload.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/placement-cell/campus-placement-hub/internal/application/command"
	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
	"github.com/placement-cell/campus-placement-hub/pkg/circuitbreaker"
	"github.com/placement-cell/campus-placement-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the roster ingestor.
type Config struct {
	// ResolveTimeout bounds a single directory lookup.
	ResolveTimeout time.Duration

	// MaxRows caps the number of identifier rows per upload.
	MaxRows int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ResolveTimeout: 3 * time.Second,
		MaxRows:        5000,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INGESTOR
// ══════════════════════════════════════════════════════════════════════════════

// Ingestor parses uploaded xlsx rosters into resolved student sets.
// Directory lookups run behind a circuit breaker with retries: a degraded
// directory fails the upload fast instead of hanging the coordinator.
type Ingestor struct {
	config    Config
	directory student.Directory
	logger    *slog.Logger
	breaker   *circuitbreaker.CircuitBreaker
	retrier   *retry.Retrier
}

// NewIngestor creates a new roster ingestor.
func NewIngestor(directory student.Directory, config Config) *Ingestor {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ResolveTimeout <= 0 {
		config.ResolveTimeout = DefaultConfig().ResolveTimeout
	}
	if config.MaxRows <= 0 {
		config.MaxRows = DefaultConfig().MaxRows
	}

	return &Ingestor{
		config:    config,
		directory: directory,
		logger:    config.Logger,
		breaker:   circuitbreaker.DirectoryBreaker(nil),
		retrier:   retry.DirectoryRetrier(),
	}
}

// ParseRoster implements command.RosterIngestor.
//
// Format: first sheet, first row is a header, first column of every
// following row is a student identifier (email or registration number).
// Rows are deduplicated by resolved student ID.
func (i *Ingestor) ParseRoster(ctx context.Context, r io.Reader) (*command.RosterResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, shared.WrapError("roster", "ParseRoster", shared.ErrInvalidFormat, "cannot open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, shared.ErrRosterNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, shared.WrapError("roster", "ParseRoster", shared.ErrInvalidFormat, "cannot read sheet rows", err)
	}

	result := &command.RosterResult{Resolved: drive.NewStudentSet()}

	// Row 1 is the header.
	for rowNum, row := range rows {
		if rowNum == 0 {
			continue
		}
		if result.Rows >= i.config.MaxRows {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: row limit %d reached, remaining rows skipped", rowNum+1, i.config.MaxRows))
			break
		}

		raw := ""
		if len(row) > 0 {
			raw = strings.TrimSpace(row[0])
		}
		if raw == "" {
			continue
		}
		result.Rows++

		ident := shared.Identifier(raw).Normalize()
		if ident.Kind() == shared.IdentifierUnknown {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: %q is neither an email nor a registration number", rowNum+1, raw))
			continue
		}

		s, err := i.resolve(ctx, ident)
		if err != nil {
			if shared.IsNotFound(err) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("row %d: identifier %q not found", rowNum+1, raw))
				continue
			}
			// Infrastructure failure: the whole upload is unreliable.
			return nil, err
		}
		result.Resolved.Add(shared.StudentID(s.ID))
	}

	if result.Rows == 0 {
		return nil, shared.ErrEmptyRoster
	}
	if result.Resolved.IsEmpty() {
		i.logger.Warn("roster resolved to empty set",
			slog.Int("rows", result.Rows),
			slog.Int("warnings", len(result.Warnings)))
		return nil, shared.ErrEmptyRoster
	}

	i.logger.Debug("roster parsed",
		slog.Int("rows", result.Rows),
		slog.Int("resolved", result.Resolved.Len()),
		slog.Int("warnings", len(result.Warnings)))
	return result, nil
}

// resolve runs a directory lookup behind the breaker with bounded retries.
// A not-found answer is a healthy directory response and must not count
// against the breaker.
func (i *Ingestor) resolve(ctx context.Context, ident shared.Identifier) (*student.Student, error) {
	var (
		resolved *student.Student
		notFound error
	)

	err := i.breaker.Execute(ctx, func(ctx context.Context) error {
		return i.retrier.Do(ctx, func(ctx context.Context) error {
			lookupCtx, cancel := context.WithTimeout(ctx, i.config.ResolveTimeout)
			defer cancel()

			s, err := i.directory.Resolve(lookupCtx, ident)
			if err != nil {
				if shared.IsNotFound(err) {
					notFound = err
					return nil
				}
				return err
			}
			resolved = s
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, shared.ErrDirectoryDegraded
		}
		if ctx.Err() != nil || isTimeout(err) {
			return nil, shared.ErrDirectoryTimeout
		}
		return nil, shared.WrapError("roster", "Resolve", shared.ErrExternalService, "directory lookup failed", err)
	}
	if notFound != nil {
		return nil, notFound
	}
	return resolved, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
