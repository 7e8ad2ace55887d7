package http

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/application/command"
	"github.com/placement-cell/campus-placement-hub/internal/application/query"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/pkg/logger"
	"github.com/placement-cell/campus-placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Campus Placement Hub API",
		"version":     "v1",
		"description": "REST API for the placement drive lifecycle",
		"endpoints": map[string]string{
			"health":     "/health",
			"drives":     "/placement-drives",
			"template":   "/placement-drives/template",
			"eligible":   "/placement-drives/eligible/{studentId}",
			"applicants": "/placement-drives/{id}/applicants",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the basic metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// DRIVE MUTATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// createDriveRequest is the body of POST /placement-drives/create.
type createDriveRequest struct {
	CompanyName           string   `json:"companyName"`
	Role                  string   `json:"role"`
	Description           string   `json:"description"`
	MinCGPA               float64  `json:"minCGPA"`
	MaxBacklogs           int      `json:"maxBacklogs"`
	MinSemestersCompleted int      `json:"minSemestersCompleted"`
	EligibleBranches      []string `json:"eligibleBranches"`
	Date                  string   `json:"date"`
}

// handleCreateDrive handles POST /placement-drives/create.
func (s *Server) handleCreateDrive(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateDriveHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Create drive handler not configured")
		return
	}

	var req createDriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD or RFC 3339")
		return
	}

	result, err := s.deps.CreateDriveHandler.Handle(r.Context(), command.CreateDriveCommand{
		CompanyName:           req.CompanyName,
		Role:                  req.Role,
		Description:           req.Description,
		MinCGPA:               req.MinCGPA,
		MaxBacklogs:           req.MaxBacklogs,
		MinSemestersCompleted: req.MinSemestersCompleted,
		EligibleBranches:      req.EligibleBranches,
		Date:                  date,
		CorrelationID:         getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"drive_id":     result.DriveID.String(),
		"company_name": result.Drive.CompanyName,
		"role":         result.Drive.Role,
		"status":       string(result.Drive.Status),
	})
}

// applyRequest is the body of POST /placement-drives/apply/{driveId}.
type applyRequest struct {
	StudentID string `json:"studentId"`
}

// handleApply handles POST /placement-drives/apply/{driveId}.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if s.deps.ApplyHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Apply handler not configured")
		return
	}

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.ApplyHandler.Handle(r.Context(), command.ApplyCommand{
		DriveID:       shared.DriveID(r.PathValue("driveId")),
		StudentID:     shared.StudentID(req.StudentID),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"student_id": string(result.Application.StudentID),
		"status":     string(result.Application.Status),
		"applied_at": result.Application.AppliedAt,
	})
}

// handleAddPhase handles POST /placement-drives/{id}/add-phase.
//
// Multipart form: phaseName, requirements, instructions, shortlistFile
// (required), unattendedFile (optional).
func (s *Server) handleAddPhase(w http.ResponseWriter, r *http.Request) {
	if s.deps.AddPhaseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Add phase handler not configured")
		return
	}

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_multipart", "Request must be multipart/form-data")
		return
	}

	shortlist, ok := formFile(r, "shortlistFile")
	if ok {
		defer shortlist.Close()
	}
	unattended, hasUnattended := formFile(r, "unattendedFile")
	if hasUnattended {
		defer unattended.Close()
	}

	cmd := command.AddPhaseCommand{
		DriveID:       shared.DriveID(r.PathValue("id")),
		PhaseName:     r.FormValue("phaseName"),
		Requirements:  r.FormValue("requirements"),
		Instructions:  r.FormValue("instructions"),
		CorrelationID: getRequestID(r.Context()),
	}
	if ok {
		cmd.ShortlistFile = shortlist
	}
	if hasUnattended {
		cmd.UnattendedFile = unattended
	}

	result, err := s.deps.AddPhaseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithWarnings(w, http.StatusCreated, map[string]interface{}{
		"phase_index": result.Phase.Index,
		"phase_name":  string(result.Phase.Name),
		"shortlisted": result.Phase.Shortlisted.Len(),
		"unattended":  result.Phase.Unattended.Len(),
		"entered":     studentIDs(result.Entered),
		"left":        studentIDs(result.Left),
	}, result.Warnings)
}

// handleEndDrive handles POST /placement-drives/{id}/end.
//
// Multipart form: shortlistFile (required), requirements, instructions.
func (s *Server) handleEndDrive(w http.ResponseWriter, r *http.Request) {
	if s.deps.EndDriveHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "End drive handler not configured")
		return
	}

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_multipart", "Request must be multipart/form-data")
		return
	}

	shortlist, ok := formFile(r, "shortlistFile")
	if ok {
		defer shortlist.Close()
	}

	cmd := command.EndDriveCommand{
		DriveID:       shared.DriveID(r.PathValue("id")),
		Requirements:  r.FormValue("requirements"),
		Instructions:  r.FormValue("instructions"),
		CorrelationID: getRequestID(r.Context()),
	}
	if ok {
		cmd.FinalShortlistFile = shortlist
	}

	result, err := s.deps.EndDriveHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithWarnings(w, http.StatusOK, map[string]interface{}{
		"phase_index": result.FinalPhase.Index,
		"phase_name":  string(result.FinalPhase.Name),
		"selected":    studentIDs(result.Selected),
		"status":      "completed",
	}, result.Warnings)
}

// setStatusRequest is the body of PUT /placement-drives/status/{driveId}/{studentId}.
type setStatusRequest struct {
	Status string `json:"status"`
}

// handleSetStatus handles PUT /placement-drives/status/{driveId}/{studentId}.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.SetStatusHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Set status handler not configured")
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.SetStatusHandler.Handle(r.Context(), command.SetStatusCommand{
		DriveID:       shared.DriveID(r.PathValue("driveId")),
		StudentID:     shared.StudentID(r.PathValue("studentId")),
		Status:        req.Status,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"old_status": string(result.OldStatus),
		"new_status": string(result.NewStatus),
	})
}

// shortlistAddRequest is the body of POST /placement-drives/{id}/shortlist.
type shortlistAddRequest struct {
	Email string `json:"email"`
}

// handleShortlistAdd handles POST /placement-drives/{id}/shortlist.
func (s *Server) handleShortlistAdd(w http.ResponseWriter, r *http.Request) {
	if s.deps.ShortlistHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Shortlist handler not configured")
		return
	}

	var req shortlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.ShortlistHandler.HandleAdd(r.Context(), command.AddStudentToPhaseCommand{
		DriveID:       shared.DriveID(r.PathValue("id")),
		Email:         req.Email,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_id":  string(result.StudentID),
		"phase_index": result.PhaseIndex,
	})
}

// handleShortlistRemove handles DELETE /placement-drives/{id}/shortlist/{studentId}.
func (s *Server) handleShortlistRemove(w http.ResponseWriter, r *http.Request) {
	if s.deps.ShortlistHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Shortlist handler not configured")
		return
	}

	result, err := s.deps.ShortlistHandler.HandleRemove(r.Context(), command.RemoveStudentFromPhaseCommand{
		DriveID:       shared.DriveID(r.PathValue("id")),
		StudentID:     shared.StudentID(r.PathValue("studentId")),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_id":  string(result.StudentID),
		"phase_index": result.PhaseIndex,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListDrives handles GET /placement-drives.
func (s *Server) handleListDrives(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListDrivesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "List drives handler not configured")
		return
	}

	q := query.ListDrivesQuery{
		Status: getQueryParam(r, "status", ""),
		Limit:  getQueryParamInt(r, "limit", 50),
		Offset: getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.ListDrivesHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Drives, &ResponseMeta{
		TotalCount: result.TotalCount,
		PageSize:   q.Limit,
		HasMore:    result.HasMore,
	})
}

// handleGetDrive handles GET /placement-drives/{id}.
func (s *Server) handleGetDrive(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetDriveHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Get drive handler not configured")
		return
	}

	result, err := s.deps.GetDriveHandler.Handle(r.Context(), query.GetDriveQuery{
		DriveID: shared.DriveID(r.PathValue("id")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEligibleDrives handles GET /placement-drives/eligible/{studentId}.
func (s *Server) handleEligibleDrives(w http.ResponseWriter, r *http.Request) {
	if s.deps.EligibleDrivesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Eligible drives handler not configured")
		return
	}

	result, err := s.deps.EligibleDrivesHandler.Handle(r.Context(), query.EligibleDrivesQuery{
		StudentID: shared.StudentID(r.PathValue("studentId")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetApplicants handles GET /placement-drives/{id}/applicants.
func (s *Server) handleGetApplicants(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetApplicantsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Applicants handler not configured")
		return
	}

	result, err := s.deps.GetApplicantsHandler.Handle(r.Context(), query.GetApplicantsQuery{
		DriveID: shared.DriveID(r.PathValue("id")),
		Status:  getQueryParam(r, "status", ""),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTemplate handles GET /placement-drives/template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if s.deps.TemplateBuilder == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Template builder not configured")
		return
	}

	data, err := s.deps.TemplateBuilder()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="shortlist-template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps a domain error to an HTTP status and error code.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrConcurrentModification):
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, http.StatusConflict, "concurrent_modification", "The drive was modified concurrently, retry the operation")
	case errors.Is(err, shared.ErrTerminalState):
		writeJSONError(w, http.StatusConflict, "drive_closed", err.Error())
	case errors.Is(err, shared.ErrStateTransition), errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "invalid_state", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "not_eligible", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	default:
		s.logger.Error("unhandled error",
			logger.String("error", err.Error()),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// formFile fetches a named multipart file, treating absence as "not given".
func formFile(r *http.Request, name string) (multipart.File, bool) {
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, false
	}
	return f, true
}

// parseDate accepts YYYY-MM-DD (interpreted in campus timezone) or RFC 3339.
// An empty string means no date.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := timeutil.ParseDate(raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func studentIDs(ids []shared.StudentID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
