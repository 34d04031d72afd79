package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Stage - этап конечного автомата задачи импорта
type Stage string

const (
	StageUploading  Stage = "uploading"
	StageExtracting Stage = "extracting"
	StageDetecting  Stage = "detecting"
	StageParsing    Stage = "parsing"
	StageGeocoding  Stage = "geocoding"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// stageOrder задает единственный допустимый порядок этапов.
// StageError в порядок не входит: в него можно перейти из любого нетерминального этапа.
var stageOrder = map[Stage]int{
	StageUploading:  0,
	StageExtracting: 1,
	StageDetecting:  2,
	StageParsing:    3,
	StageGeocoding:  4,
	StageSaving:     5,
	StageComplete:   6,
}

// Terminal сообщает, является ли этап конечным
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Before сообщает, идет ли этап s строго раньше other в фиксированном порядке
func (s Stage) Before(other Stage) bool {
	a, okA := stageOrder[s]
	b, okB := stageOrder[other]
	return okA && okB && a < b
}

var ErrInvalidTransition = errors.New("invalid stage transition")

// Веса прогресса
const (
	ProgressUploading  = 0
	ProgressExtracting = 5
	ProgressDetecting  = 10
	ProgressComplete   = 100

	parseWeight   = 0.2
	geocodeWeight = 0.5
	saveWeight    = 0.3
)

// ListPhase - фаза обработки одного списка внутри задачи
type ListPhase int

const (
	PhaseParse ListPhase = iota
	PhaseGeocode
	PhaseSave
)

// ListProgress вычисляет общий прогресс задачи, когда список listIndex (из totalLists)
// находится в фазе phase и выполнен на долю fraction (0..1).
// Диапазон 10..100 делится поровну между списками, доля списка - 20/50/30
// между разбором, геокодированием и сохранением.
func ListProgress(listIndex, totalLists int, phase ListPhase, fraction float64) int {
	if totalLists <= 0 {
		return ProgressDetecting
	}
	fraction = math.Max(0, math.Min(1, fraction))

	var done float64
	switch phase {
	case PhaseParse:
		done = parseWeight * fraction
	case PhaseGeocode:
		done = parseWeight + geocodeWeight*fraction
	case PhaseSave:
		done = parseWeight + geocodeWeight + saveWeight*fraction
	}

	span := float64(ProgressComplete - ProgressDetecting)
	value := float64(ProgressDetecting) + span*(float64(listIndex)+done)/float64(totalLists)
	return int(math.Min(math.Floor(value), ProgressComplete))
}

// OutcomeStatus - итог обработки одного списка
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeFailed  OutcomeStatus = "failed"
)

// ListOutcome - тегированный результат по одному списку (успех со значением
// или неудача с причиной)
type ListOutcome struct {
	Name       string        `json:"name"`
	Status     OutcomeStatus `json:"status"`
	ListID     *uuid.UUID    `json:"listId,omitempty"`
	PlaceCount int           `json:"placeCount"`
	Kind       ErrorKind     `json:"kind,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// ImportRequest - параметры запуска импорта
type ImportRequest struct {
	ArchivePath string
	Lists       []SelectedList
	FastPath    bool
}

// ImportJob - отслеживаемая единица работы по обработке одного архива
type ImportJob struct {
	ID          uuid.UUID      `json:"id"`
	OwnerID     uuid.UUID      `json:"ownerId"`
	ArchivePath string         `json:"-"`
	FastPath    bool           `json:"fastPath"`
	Selection   []SelectedList `json:"-"`

	Stage           Stage         `json:"stage"`
	Progress        int           `json:"progress"`
	ListsProcessed  int           `json:"listsProcessed"`
	TotalLists      int           `json:"totalLists"`
	PlacesProcessed int           `json:"placesProcessed"`
	TotalPlaces     int           `json:"totalPlaces"`
	Errors          []string      `json:"errors"`
	Results         []ListOutcome `json:"results"`
	StartedAt       time.Time     `json:"startedAt"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
}

// NewImportJob - конструктор задачи в начальном этапе
func NewImportJob(ownerID uuid.UUID, req ImportRequest) *ImportJob {
	return &ImportJob{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ArchivePath: req.ArchivePath,
		FastPath:    req.FastPath,
		Selection:   append([]SelectedList(nil), req.Lists...),
		Stage:       StageUploading,
		Progress:    ProgressUploading,
		Errors:      []string{},
		Results:     []ListOutcome{},
		StartedAt:   time.Now().UTC(),
	}
}

// Advance переводит задачу вперед на этап stage.
// Запрос на более ранний или тот же этап ничего не меняет (списки обрабатываются
// по очереди, поэтому этап показывает самую дальнюю достигнутую фазу).
func (j *ImportJob) Advance(stage Stage) error {
	if j.Stage.Terminal() {
		return fmt.Errorf("%w: job is already %s", ErrInvalidTransition, j.Stage)
	}
	if stage.Terminal() {
		return fmt.Errorf("%w: use Complete or Fail to reach %s", ErrInvalidTransition, stage)
	}
	if _, ok := stageOrder[stage]; !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, stage)
	}
	if j.Stage.Before(stage) {
		j.Stage = stage
	}
	return nil
}

// SetProgress обновляет прогресс, не позволяя ему уменьшаться
func (j *ImportJob) SetProgress(p int) {
	if j.Stage.Terminal() {
		return
	}
	if p > ProgressComplete {
		p = ProgressComplete
	}
	if p > j.Progress {
		j.Progress = p
	}
}

// AddPlaces увеличивает общее число мест (после разбора очередного списка)
func (j *ImportJob) AddPlaces(n int) {
	j.TotalPlaces += n
}

// PlaceProcessed отмечает обработку одного места
func (j *ImportJob) PlaceProcessed() {
	if j.PlacesProcessed < j.TotalPlaces {
		j.PlacesProcessed++
	}
}

// RecordCreated фиксирует успешно сохраненный список
func (j *ImportJob) RecordCreated(name string, listID uuid.UUID, placeCount int) {
	id := listID
	j.Results = append(j.Results, ListOutcome{
		Name:       name,
		Status:     OutcomeCreated,
		ListID:     &id,
		PlaceCount: placeCount,
	})
	j.listDone()
}

// RecordFailure фиксирует восстановимую ошибку по списку
func (j *ImportJob) RecordFailure(listErr *ListError) {
	j.Errors = append(j.Errors, listErr.Error())
	j.Results = append(j.Results, ListOutcome{
		Name:   listErr.List,
		Status: OutcomeFailed,
		Kind:   listErr.Kind,
		Reason: listErr.Err.Error(),
	})
	j.listDone()
}

func (j *ImportJob) listDone() {
	if j.ListsProcessed < j.TotalLists {
		j.ListsProcessed++
	}
}

// Complete переводит задачу в конечный этап complete
func (j *ImportJob) Complete() error {
	if j.Stage.Terminal() {
		return fmt.Errorf("%w: job is already %s", ErrInvalidTransition, j.Stage)
	}
	j.Stage = StageComplete
	j.Progress = ProgressComplete
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

// Fail переводит задачу в поглощающий этап error. Прогресс не меняется.
func (j *ImportJob) Fail(err error) error {
	if j.Stage.Terminal() {
		return fmt.Errorf("%w: job is already %s", ErrInvalidTransition, j.Stage)
	}
	j.Stage = StageError
	if err != nil {
		j.Errors = append(j.Errors, err.Error())
	}
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

// Clone возвращает глубокую копию задачи для безопасной отдачи читателям
func (j *ImportJob) Clone() *ImportJob {
	c := *j
	c.Selection = append([]SelectedList(nil), j.Selection...)
	c.Errors = append([]string{}, j.Errors...)
	c.Results = make([]ListOutcome, len(j.Results))
	for i, r := range j.Results {
		c.Results[i] = r
		if r.ListID != nil {
			id := *r.ListID
			c.Results[i].ListID = &id
		}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
