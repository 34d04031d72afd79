package domain

import (
	"errors"
	"fmt"
)

var (
	ErrArchiveCorrupt       = errors.New("archive is corrupt or cannot be opened")
	ErrArchiveEmpty         = errors.New("archive contains no saved lists")
	ErrParse                = errors.New("list export cannot be parsed")
	ErrListMissing          = errors.New("selected list is not present in the archive")
	ErrNoValidCoordinates   = errors.New("list has no places with valid coordinates")
	ErrGeocodingUnavailable = errors.New("geocoding service unavailable")
	ErrGeocodeNoMatch       = errors.New("geocoder found no match")
	ErrPersistence          = errors.New("failed to persist list")

	ErrJobNotFound  = errors.New("import job not found")
	ErrListNotFound = errors.New("list not found")
	ErrQueueFull    = errors.New("import queue is full")
)

// ErrorKind - машинно-читаемый тип ошибки обработки одного списка
type ErrorKind string

const (
	KindParse              ErrorKind = "parse_error"
	KindListMissing        ErrorKind = "list_missing"
	KindNoValidCoordinates ErrorKind = "no_valid_coordinates"
	KindPersistence        ErrorKind = "persistence_error"
	KindInternal           ErrorKind = "internal_error"
)

// ListError описывает восстановимую ошибку на уровне одного списка.
// Задача при этом продолжает работу со следующим списком.
type ListError struct {
	Kind ErrorKind
	List string
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("%s: %v", e.List, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// NewListError классифицирует ошибку по sentinel-значениям домена.
func NewListError(list string, err error) *ListError {
	return &ListError{Kind: KindOf(err), List: list, Err: err}
}

// KindOf возвращает ErrorKind для ошибки уровня списка
func KindOf(err error) ErrorKind {
	var listErr *ListError
	switch {
	case errors.As(err, &listErr):
		return listErr.Kind
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrListMissing):
		return KindListMissing
	case errors.Is(err, ErrNoValidCoordinates):
		return KindNoValidCoordinates
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
