package rabbitmq

import (
	"import-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// ListCreatedEvent - тело события import.list.created
type ListCreatedEvent struct {
	ListID          uuid.UUID `json:"listId"`
	OwnerID         uuid.UUID `json:"ownerId"`
	ImportJobID     uuid.UUID `json:"importJobId"`
	Title           string    `json:"title"`
	City            *string   `json:"city"`
	Category        *string   `json:"category"`
	IsPaid          bool      `json:"isPaid"`
	IsPublic        bool      `json:"isPublic"`
	Price           float64   `json:"price"`
	PlaceCount      int       `json:"placeCount"`
	CenterLatitude  float64   `json:"centerLatitude"`
	CenterLongitude float64   `json:"centerLongitude"`
	CenterGeohash   string    `json:"centerGeohash"`
	CreatedAt       time.Time `json:"createdAt"`
}

// JobFinishedEvent - тело события import.job.finished
type JobFinishedEvent struct {
	JobID           uuid.UUID    `json:"jobId"`
	OwnerID         uuid.UUID    `json:"ownerId"`
	Stage           domain.Stage `json:"stage"`
	FastPath        bool         `json:"fastPath"`
	ListsCreated    int          `json:"listsCreated"`
	ListsFailed     int          `json:"listsFailed"`
	PlacesProcessed int          `json:"placesProcessed"`
	Errors          []string     `json:"errors"`
	CompletedAt     *time.Time   `json:"completedAt"`
}

func toListCreatedEvent(l *domain.ListAggregate) ListCreatedEvent {
	return ListCreatedEvent{
		ListID:          l.ID,
		OwnerID:         l.OwnerID,
		ImportJobID:     l.ImportJobID,
		Title:           l.Title,
		City:            l.City,
		Category:        l.Category,
		IsPaid:          l.IsPaid,
		IsPublic:        l.IsPublic,
		Price:           l.Price,
		PlaceCount:      l.PlaceCount,
		CenterLatitude:  l.CenterLatitude,
		CenterLongitude: l.CenterLongitude,
		CenterGeohash:   l.CenterGeohash,
		CreatedAt:       l.CreatedAt,
	}
}

func toJobFinishedEvent(j *domain.ImportJob) JobFinishedEvent {
	ev := JobFinishedEvent{
		JobID:           j.ID,
		OwnerID:         j.OwnerID,
		Stage:           j.Stage,
		FastPath:        j.FastPath,
		PlacesProcessed: j.PlacesProcessed,
		Errors:          append([]string{}, j.Errors...),
		CompletedAt:     j.CompletedAt,
	}
	for _, r := range j.Results {
		if r.Status == domain.OutcomeCreated {
			ev.ListsCreated++
		} else {
			ev.ListsFailed++
		}
	}
	return ev
}
