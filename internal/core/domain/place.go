package domain

import "math"

// Format - формат экспорта одного списка
type Format string

const (
	FormatTabular    Format = "tabular"
	FormatStructured Format = "structured"
	FormatUnknown    Format = "unknown"
)

// Precision показывает, откуда взялись координаты места
type Precision string

const (
	PrecisionSource      Precision = "source"      // координаты были в самом экспорте
	PrecisionGeocoded    Precision = "geocoded"    // получены от внешнего геокодера
	PrecisionPlaceholder Precision = "placeholder" // детерминированная заглушка
)

// DefaultPlaceCategory - категория места, если ни одно правило не сработало
const DefaultPlaceCategory = "other"

// Coordinates - пара широта/долгота в градусах
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid проверяет, что координаты конечны и лежат в допустимом диапазоне.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) || math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// ListSource - один файл-экспорт списка, найденный в архиве
type ListSource struct {
	Name     string // имя списка (имя файла без расширения)
	FileName string // полный путь записи внутри архива
	Data     []byte
	// Err - запись не удалось прочитать (слишком большая, битая). Ошибка относится
	// только к этому списку и всплывает, если список выбран.
	Err error
}

// SelectedList - выбор пользователя после шага analyze
type SelectedList struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Description string  `json:"description"`
	IsPaid      bool    `json:"isPaid"`
	Price       float64 `json:"price"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// Title возвращает отображаемое имя списка
func (s SelectedList) Title() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// RawRecord - строка экспорта до нормализации
type RawRecord struct {
	Title           string
	Note            string
	URL             string
	Address         string
	CountryCode     string
	ExternalPlaceID string
	Hint            *Coordinates
}

// NormalizedPlace - место, приведенное к единой схеме
type NormalizedPlace struct {
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	Geohash         string    `json:"geohash"`
	City            *string   `json:"city,omitempty"`
	Country         *string   `json:"country,omitempty"`
	Category        string    `json:"category"`
	Rating          *float64  `json:"rating,omitempty"`
	PriceLevel      *int      `json:"priceLevel,omitempty"`
	ExternalPlaceID *string   `json:"externalPlaceId,omitempty"`
	Note            string    `json:"note,omitempty"`
	Precision       Precision `json:"precision"`
}

// Coordinates возвращает координаты места
func (p NormalizedPlace) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// GeocodeResult - ответ внешнего геокодера
type GeocodeResult struct {
	Coordinates Coordinates
	City        string
	Country     string
	PlaceID     string
}

// ListContext - контекст списка, нужный при разрешении координат
type ListContext struct {
	Title    string
	City     *string
	Category *string
}
