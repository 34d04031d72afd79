package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

// ListPlace - членство места в списке: порядок отображения и заметка
type ListPlace struct {
	PlaceID      uuid.UUID       `json:"placeId"`
	DisplayOrder int             `json:"displayOrder"`
	Note         string          `json:"note,omitempty"`
	Place        NormalizedPlace `json:"place"`
}

// ListAggregate - сохраняемая атомарно единица: список, его места и их порядок
type ListAggregate struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	OwnerID         uuid.UUID   `json:"ownerId"`
	IsPublic        bool        `json:"isPublic"`
	IsPaid          bool        `json:"isPaid"`
	Price           float64     `json:"price"`
	CenterLatitude  float64     `json:"centerLatitude"`
	CenterLongitude float64     `json:"centerLongitude"`
	CenterGeohash   string      `json:"centerGeohash"`
	City            *string     `json:"city"`
	Category        *string     `json:"category"`
	PlaceCount      int         `json:"placeCount"`
	SourceFile      string      `json:"sourceFile"`
	ImportJobID     uuid.UUID   `json:"importJobId"`
	CreatedAt       time.Time   `json:"createdAt"`
	Places          []ListPlace `json:"places"`
}

// ListDraft - все, что нужно для сборки агрегата списка
type ListDraft struct {
	OwnerID   uuid.UUID
	JobID     uuid.UUID
	Source    ListSource
	Selection SelectedList
	Places    []NormalizedPlace
	City      *string
	Category  *string
}

// Centroid возвращает среднее по валидным координатам и их количество
func Centroid(places []NormalizedPlace) (Coordinates, int) {
	var sumLat, sumLng float64
	valid := 0
	for _, p := range places {
		c := p.Coordinates()
		if !c.Valid() {
			continue
		}
		sumLat += c.Latitude
		sumLng += c.Longitude
		valid++
	}
	if valid == 0 {
		return Coordinates{}, 0
	}
	return Coordinates{
		Latitude:  sumLat / float64(valid),
		Longitude: sumLng / float64(valid),
	}, valid
}

// DeriveListCity - город списка: из правил по названию, иначе самый частый
// город среди мест. При равенстве побеждает город, встретившийся раньше.
func DeriveListCity(list ListContext, places []NormalizedPlace) *string {
	if list.City != nil && *list.City != "" {
		city := *list.City
		return &city
	}

	counts := make(map[string]int)
	var order []string
	for _, p := range places {
		if p.City == nil || *p.City == "" {
			continue
		}
		if counts[*p.City] == 0 {
			order = append(order, *p.City)
		}
		counts[*p.City]++
	}
	if len(order) == 0 {
		return nil
	}

	best := order[0]
	for _, city := range order[1:] {
		if counts[city] > counts[best] {
			best = city
		}
	}
	return &best
}

// BuildListAggregate собирает агрегат из черновика. Список без единой валидной
// координаты не создается.
func BuildListAggregate(d ListDraft) (*ListAggregate, error) {
	center, valid := Centroid(d.Places)
	if valid == 0 {
		return nil, fmt.Errorf("%w: %d places, none with usable coordinates", ErrNoValidCoordinates, len(d.Places))
	}

	isPublic := !d.Selection.IsPaid
	if d.Selection.IsPublic != nil {
		isPublic = *d.Selection.IsPublic
	}

	agg := &ListAggregate{
		ID:              uuid.New(),
		Title:           d.Selection.Title(),
		Description:     d.Selection.Description,
		OwnerID:         d.OwnerID,
		IsPublic:        isPublic,
		IsPaid:          d.Selection.IsPaid,
		Price:           d.Selection.Price,
		CenterLatitude:  center.Latitude,
		CenterLongitude: center.Longitude,
		CenterGeohash:   geohash.Encode(center.Latitude, center.Longitude),
		City:            d.City,
		Category:        d.Category,
		PlaceCount:      len(d.Places),
		SourceFile:      d.Source.FileName,
		ImportJobID:     d.JobID,
		CreatedAt:       time.Now().UTC(),
		Places:          make([]ListPlace, 0, len(d.Places)),
	}
	if !d.Selection.IsPaid {
		agg.Price = 0
	}

	for i, p := range d.Places {
		if p.Geohash == "" && p.Coordinates().Valid() {
			p.Geohash = geohash.Encode(p.Latitude, p.Longitude)
		}
		agg.Places = append(agg.Places, ListPlace{
			PlaceID:      uuid.New(),
			DisplayOrder: i,
			Note:         p.Note,
			Place:        p,
		})
	}
	return agg, nil
}

// ListSummary - результат шага analyze по одному списку
type ListSummary struct {
	Name       string `json:"name"`
	FileName   string `json:"fileName"`
	Format     Format `json:"format"`
	PlaceCount int    `json:"placeCount"`
	Error      string `json:"error,omitempty"`
}
