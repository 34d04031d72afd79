package usecase

import (
	"context"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
)

type RunImportUseCase struct {
	jobs      port.JobStorePort
	inspector port.ArchiveInspectorPort
	parser    port.ExportParserPort
	resolver  port.PlaceResolverPort
	writer    *ListWriter
	reporter  port.ImportReporterPort
}

func NewRunImportUseCase(
	jobs port.JobStorePort,
	inspector port.ArchiveInspectorPort,
	parser port.ExportParserPort,
	resolver port.PlaceResolverPort,
	writer *ListWriter,
	reporter port.ImportReporterPort,
) *RunImportUseCase {
	return &RunImportUseCase{
		jobs:      jobs,
		inspector: inspector,
		parser:    parser,
		resolver:  resolver,
		writer:    writer,
		reporter:  reporter,
	}
}

// plannedList - выбранный пользователем список и найденный для него файл
// (nil, если в архиве такого списка нет)
type plannedList struct {
	selection domain.SelectedList
	source    *domain.ListSource
}

// importRun - состояние одного прогона. Горутина прогона - единственный
// писатель задачи; читатели видят только снимки из JobStore.
type importRun struct {
	uc     *RunImportUseCase
	job    *domain.ImportJob
	logger port.LoggerPort
}

// Execute выполняет задачу импорта целиком. Ошибки уровня списка попадают
// в результаты задачи, ошибки уровня архива переводят задачу в error.
func (uc *RunImportUseCase) Execute(ctx context.Context, jobID uuid.UUID) (err error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "RunImport",
		"job_id":   jobID.String(),
	})
	ctx = contextkeys.ContextWithLogger(ctx, ucLogger)

	job, err := uc.jobs.Get(ctx, jobID)
	if err != nil {
		ucLogger.Error("Failed to load import job", err, nil)
		return err
	}
	if job.Stage.Terminal() {
		ucLogger.Warn("Import job is already finished, skipping", port.Fields{"stage": string(job.Stage)})
		return nil
	}

	run := &importRun{uc: uc, job: job, logger: ucLogger}

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("internal error: %v", r)
			ucLogger.Error("Import pipeline panicked", panicErr, port.Fields{"stack": string(debug.Stack())})
			run.fail(ctx, panicErr)
			err = panicErr
		}
	}()

	return run.execute(ctx)
}

func (r *importRun) execute(ctx context.Context) error {
	r.logger.Info("Import job started", port.Fields{"fast_path": r.job.FastPath})

	r.advance(domain.StageExtracting, domain.ProgressExtracting)
	r.save(ctx)

	sources, err := r.uc.inspector.Inspect(ctx, r.job.ArchivePath)
	if err != nil {
		r.logger.Error("Archive cannot be processed", err, nil)
		r.fail(ctx, err)
		return err
	}

	r.advance(domain.StageDetecting, domain.ProgressDetecting)
	plan := planLists(sources, r.job.Selection)
	r.job.TotalLists = len(plan)
	r.save(ctx)

	r.logger.Info("Archive inspected", port.Fields{
		"lists_in_archive": len(sources),
		"lists_selected":   len(plan),
	})

	for i, pl := range plan {
		r.processList(ctx, i, pl)
	}

	if err := r.job.Complete(); err != nil {
		r.logger.Error("Failed to complete import job", err, nil)
		return err
	}
	r.save(ctx)
	r.reportFinished(ctx)

	r.logger.Info("Import job completed", port.Fields{
		"lists_processed":  r.job.ListsProcessed,
		"places_processed": r.job.PlacesProcessed,
		"errors":           len(r.job.Errors),
	})
	return nil
}

// processList проводит один список через разбор, разрешение координат и сохранение.
// Любая ошибка фиксируется как результат списка; задача продолжается.
func (r *importRun) processList(ctx context.Context, index int, pl plannedList) {
	name := pl.selection.Name
	total := r.job.TotalLists
	listLogger := r.logger.WithFields(port.Fields{"list": name, "list_index": index})
	ctx = contextkeys.ContextWithLogger(ctx, listLogger)

	if pl.source == nil {
		r.listFailed(ctx, listLogger, index, domain.NewListError(name, fmt.Errorf("%w: %q", domain.ErrListMissing, name)))
		return
	}

	r.advance(domain.StageParsing, domain.ListProgress(index, total, domain.PhaseParse, 0))
	r.save(ctx)

	if pl.source.Err != nil {
		r.listFailed(ctx, listLogger, index, domain.NewListError(name, fmt.Errorf("%s: %w", pl.source.FileName, pl.source.Err)))
		return
	}

	records, err := r.uc.parser.Parse(pl.source.Data)
	if err != nil {
		r.listFailed(ctx, listLogger, index, domain.NewListError(name, err))
		return
	}
	r.job.AddPlaces(len(records))
	r.job.SetProgress(domain.ListProgress(index, total, domain.PhaseParse, 1))
	r.save(ctx)
	listLogger.Debug("List parsed", port.Fields{"records": len(records), "file": pl.source.FileName})

	if !r.job.FastPath {
		r.advance(domain.StageGeocoding, r.job.Progress)
		r.save(ctx)
	}

	listCtx := r.uc.resolver.ListContext(pl.source.Name, records)
	places := r.resolve(ctx, index, listCtx, records)

	r.advance(domain.StageSaving, domain.ListProgress(index, total, domain.PhaseSave, 0))
	r.save(ctx)

	agg, err := r.uc.writer.Commit(ctx, domain.ListDraft{
		OwnerID:   r.job.OwnerID,
		JobID:     r.job.ID,
		Source:    *pl.source,
		Selection: pl.selection,
		Places:    places,
		City:      domain.DeriveListCity(listCtx, places),
		Category:  listCtx.Category,
	})
	if err != nil {
		r.listFailed(ctx, listLogger, index, domain.NewListError(name, err))
		return
	}

	r.job.RecordCreated(name, agg.ID, agg.PlaceCount)
	r.job.SetProgress(domain.ListProgress(index, total, domain.PhaseSave, 1))
	r.save(ctx)
	listLogger.Info("List created", port.Fields{"list_id": agg.ID.String(), "places": agg.PlaceCount})

	if err := r.uc.reporter.ReportListImported(ctx, agg); err != nil {
		listLogger.Warn("Failed to report created list", port.Fields{"error": err.Error()})
	}
}

// resolve собирает результаты резолвера в исходном порядке записей,
// обновляя счетчик мест по мере готовности
func (r *importRun) resolve(ctx context.Context, index int, listCtx domain.ListContext, records []domain.RawRecord) []domain.NormalizedPlace {
	places := make([]domain.NormalizedPlace, len(records))
	if len(records) == 0 {
		return places
	}

	out := make(chan port.ResolvedPlace, len(records))
	go func() {
		r.uc.resolver.ResolveAll(ctx, listCtx, records, r.job.FastPath, out)
		close(out)
	}()

	done := 0
	for rp := range out {
		places[rp.Index] = rp.Place
		done++
		r.job.PlaceProcessed()
		r.job.SetProgress(domain.ListProgress(index, r.job.TotalLists, domain.PhaseGeocode, float64(done)/float64(len(records))))
		r.save(ctx)
	}
	return places
}

func (r *importRun) listFailed(ctx context.Context, logger port.LoggerPort, index int, listErr *domain.ListError) {
	logger.Warn("List skipped", port.Fields{"kind": string(listErr.Kind), "reason": listErr.Err.Error()})
	r.job.RecordFailure(listErr)
	r.job.SetProgress(domain.ListProgress(index, r.job.TotalLists, domain.PhaseSave, 1))
	r.save(ctx)
}

func (r *importRun) advance(stage domain.Stage, progress int) {
	if err := r.job.Advance(stage); err != nil {
		r.logger.Warn("Stage transition rejected", port.Fields{"from": string(r.job.Stage), "to": string(stage)})
		return
	}
	r.job.SetProgress(progress)
}

func (r *importRun) fail(ctx context.Context, cause error) {
	if err := r.job.Fail(cause); err != nil {
		return
	}
	r.save(ctx)
	r.reportFinished(ctx)
}

func (r *importRun) save(ctx context.Context) {
	if err := r.uc.jobs.Update(ctx, r.job); err != nil {
		r.logger.Error("Failed to store job progress", err, nil)
	}
}

func (r *importRun) reportFinished(ctx context.Context) {
	if err := r.uc.reporter.ReportJobFinished(ctx, r.job); err != nil {
		r.logger.Warn("Failed to report finished job", port.Fields{"error": err.Error()})
	}
}

// planLists сопоставляет выбор пользователя с файлами архива. Пустой выбор
// означает все списки архива в порядке их путей.
func planLists(sources []domain.ListSource, selection []domain.SelectedList) []plannedList {
	if len(selection) == 0 {
		plan := make([]plannedList, len(sources))
		for i := range sources {
			plan[i] = plannedList{selection: domain.SelectedList{Name: sources[i].Name}, source: &sources[i]}
		}
		return plan
	}

	plan := make([]plannedList, 0, len(selection))
	planned := make(map[*domain.ListSource]bool, len(selection))
	for _, sel := range selection {
		src := findSource(sources, sel.Name)
		if src != nil {
			// один файл импортируется один раз, даже если выбран под разными написаниями
			if planned[src] {
				continue
			}
			planned[src] = true
		}
		plan = append(plan, plannedList{selection: sel, source: src})
	}
	return plan
}

// findSource ищет файл списка по имени: сначала точное совпадение, затем без учета регистра
func findSource(sources []domain.ListSource, name string) *domain.ListSource {
	for i := range sources {
		if sources[i].Name == name {
			return &sources[i]
		}
	}
	for i := range sources {
		if strings.EqualFold(sources[i].Name, name) {
			return &sources[i]
		}
	}
	return nil
}
