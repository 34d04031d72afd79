package rest

import (
	"import-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// AnalyzeRequestDTO - тело POST /imports/analyze
type AnalyzeRequestDTO struct {
	ArchivePath string `json:"archivePath"`
}

type AnalyzeResponseDTO struct {
	Lists []domain.ListSummary `json:"lists"`
}

// SelectedListDTO - выбор одного списка для импорта
type SelectedListDTO struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Description string  `json:"description"`
	IsPaid      bool    `json:"isPaid"`
	Price       float64 `json:"price"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// StartImportRequestDTO - тело POST /imports и POST /imports/fast
type StartImportRequestDTO struct {
	ArchivePath string            `json:"archivePath"`
	Lists       []SelectedListDTO `json:"lists"`
}

type StartImportResponseDTO struct {
	JobID string `json:"jobId"`
}

// JobStatusDTO - ответ GET /imports/{jobID}
type JobStatusDTO struct {
	ID              string               `json:"id"`
	Stage           domain.Stage         `json:"stage"`
	Progress        int                  `json:"progress"`
	FastPath        bool                 `json:"fastPath"`
	ListsProcessed  int                  `json:"listsProcessed"`
	TotalLists      int                  `json:"totalLists"`
	PlacesProcessed int                  `json:"placesProcessed"`
	TotalPlaces     int                  `json:"totalPlaces"`
	Errors          []string             `json:"errors"`
	Results         []domain.ListOutcome `json:"results"`
	StartedAt       time.Time            `json:"startedAt"`
	CompletedAt     *time.Time           `json:"completedAt,omitempty"`
}

func (d StartImportRequestDTO) toDomain(fastPath bool) domain.ImportRequest {
	req := domain.ImportRequest{ArchivePath: d.ArchivePath, FastPath: fastPath}
	for _, l := range d.Lists {
		req.Lists = append(req.Lists, domain.SelectedList{
			Name:        l.Name,
			DisplayName: l.DisplayName,
			Description: l.Description,
			IsPaid:      l.IsPaid,
			Price:       l.Price,
			IsPublic:    l.IsPublic,
		})
	}
	return req
}

func toJobStatusDTO(job *domain.ImportJob) JobStatusDTO {
	return JobStatusDTO{
		ID:              job.ID.String(),
		Stage:           job.Stage,
		Progress:        job.Progress,
		FastPath:        job.FastPath,
		ListsProcessed:  job.ListsProcessed,
		TotalLists:      job.TotalLists,
		PlacesProcessed: job.PlacesProcessed,
		TotalPlaces:     job.TotalPlaces,
		Errors:          job.Errors,
		Results:         job.Results,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}
}

// visibleTo - видит ли пользователь список: свои списки и публичные
func visibleTo(list *domain.ListAggregate, userID uuid.UUID) bool {
	return list.IsPublic || list.OwnerID == userID
}
