package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"import-service/internal/adapters/archive"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"import-service/internal/core/port/usecases_port"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxRequestBody = 1 << 20

type ImportHandlers struct {
	analyzeUC   usecases_port.AnalyzeArchiveUseCase
	startUC     usecases_port.StartImportUseCase
	jobStatusUC usecases_port.GetJobStatusUseCase
	getListUC   usecases_port.GetListUseCase
}

// NewImportHandlers - конструктор для обработчиков API импорта
func NewImportHandlers(
	analyzeUC usecases_port.AnalyzeArchiveUseCase,
	startUC usecases_port.StartImportUseCase,
	jobStatusUC usecases_port.GetJobStatusUseCase,
	getListUC usecases_port.GetListUseCase,
) *ImportHandlers {
	return &ImportHandlers{
		analyzeUC:   analyzeUC,
		startUC:     startUC,
		jobStatusUC: jobStatusUC,
		getListUC:   getListUC,
	}
}

func (h *ImportHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAnalyzeArchive - обработчик для POST /api/v1/imports/analyze
func (h *ImportHandlers) HandleAnalyzeArchive(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleAnalyzeArchive"})

	var reqDTO AnalyzeRequestDTO
	if !decodeBody(w, r, logger, &reqDTO) {
		return
	}
	if strings.TrimSpace(reqDTO.ArchivePath) == "" {
		WriteJSONError(w, http.StatusBadRequest, "Field 'archivePath' is required")
		return
	}

	lists, err := h.analyzeUC.Execute(r.Context(), reqDTO.ArchivePath)
	if err != nil {
		writeArchiveError(w, logger, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, AnalyzeResponseDTO{Lists: lists})
}

// HandleStartImport - обработчик для POST /api/v1/imports
func (h *ImportHandlers) HandleStartImport(w http.ResponseWriter, r *http.Request) {
	h.startImport(w, r, false)
}

// HandleStartFastImport - обработчик для POST /api/v1/imports/fast (без геокодера)
func (h *ImportHandlers) HandleStartFastImport(w http.ResponseWriter, r *http.Request) {
	h.startImport(w, r, true)
}

func (h *ImportHandlers) startImport(w http.ResponseWriter, r *http.Request, fastPath bool) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":   "HandleStartImport",
		"fast_path": fastPath,
	})

	userID, _ := contextkeys.UserIDFromContext(r.Context())

	var reqDTO StartImportRequestDTO
	if !decodeBody(w, r, logger, &reqDTO) {
		return
	}
	if msg := validateStartRequest(reqDTO); msg != "" {
		WriteJSONError(w, http.StatusBadRequest, msg)
		return
	}

	jobID, err := h.startUC.Execute(r.Context(), userID, reqDTO.toDomain(fastPath))
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			logger.Warn("Import rejected, queue is full", nil)
			w.Header().Set("Retry-After", "5")
			WriteJSONError(w, http.StatusServiceUnavailable, "Import queue is full, try again later")
			return
		}
		logger.Error("Use case execution failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to start import")
		return
	}

	logger.Info("Import job accepted", port.Fields{"job_id": jobID.String()})
	RespondWithJSON(w, http.StatusAccepted, StartImportResponseDTO{JobID: jobID.String()})
}

// HandleGetJobStatus - обработчик для GET /api/v1/imports/{jobID}
func (h *ImportHandlers) HandleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleGetJobStatus"})

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid job ID format")
		return
	}
	userID, _ := contextkeys.UserIDFromContext(r.Context())

	job, err := h.jobStatusUC.Execute(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Import job not found")
			return
		}
		logger.Error("Failed to get job status", err, port.Fields{"job_id": jobID.String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to get job status")
		return
	}
	// чужая задача неотличима от несуществующей
	if job.OwnerID != userID {
		WriteJSONError(w, http.StatusNotFound, "Import job not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, toJobStatusDTO(job))
}

// HandleGetList - обработчик для GET /api/v1/lists/{listID}
func (h *ImportHandlers) HandleGetList(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleGetList"})

	listID, err := uuid.Parse(chi.URLParam(r, "listID"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid list ID format")
		return
	}
	userID, _ := contextkeys.UserIDFromContext(r.Context())

	list, err := h.getListUC.Execute(r.Context(), listID)
	if err != nil {
		if errors.Is(err, domain.ErrListNotFound) {
			WriteJSONError(w, http.StatusNotFound, "List not found")
			return
		}
		logger.Error("Failed to get list", err, port.Fields{"list_id": listID.String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to get list")
		return
	}
	if !visibleTo(list, userID) {
		WriteJSONError(w, http.StatusNotFound, "List not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, list)
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger port.LoggerPort, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(dst); err != nil {
		if err == io.EOF {
			logger.Warn("Request body is empty", nil)
			WriteJSONError(w, http.StatusBadRequest, "Request body is empty")
			return false
		}
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

func validateStartRequest(req StartImportRequestDTO) string {
	if strings.TrimSpace(req.ArchivePath) == "" {
		return "Field 'archivePath' is required"
	}
	seen := make(map[string]bool, len(req.Lists))
	for i, l := range req.Lists {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Sprintf("Field 'lists[%d].name' is required", i)
		}
		if l.Price < 0 {
			return fmt.Sprintf("Field 'lists[%d].price' must not be negative", i)
		}
		// имена списков сопоставляются с файлами без учета регистра
		key := strings.ToLower(l.Name)
		if seen[key] {
			return fmt.Sprintf("List %q is selected more than once", l.Name)
		}
		seen[key] = true
	}
	return ""
}

// writeArchiveError переводит ошибки архива в HTTP-статусы
func writeArchiveError(w http.ResponseWriter, logger port.LoggerPort, err error) {
	switch {
	case archive.IsNotFound(err):
		WriteJSONError(w, http.StatusNotFound, "Archive not found")
	case errors.Is(err, domain.ErrArchiveEmpty), errors.Is(err, domain.ErrArchiveCorrupt):
		logger.Warn("Archive rejected", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("Archive analysis failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to analyze archive")
	}
}
