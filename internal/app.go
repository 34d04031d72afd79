package internal

import (
	"context"
	"fmt"
	"import-service/internal/adapters/archive"
	"import-service/internal/adapters/exportparser"
	"import-service/internal/adapters/gcs"
	"import-service/internal/adapters/jobqueue"
	logger_adapter "import-service/internal/adapters/logger"
	"import-service/internal/adapters/memory"
	"import-service/internal/adapters/nominatim"
	postgres_adapter "import-service/internal/adapters/postgres"
	"import-service/internal/adapters/rest"
	"import-service/internal/adapters/rules"
	"import-service/internal/configs"
	"import-service/internal/constants"
	"import-service/internal/core/geocoding"
	"import-service/internal/core/port"
	"import-service/internal/core/usecase"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	fluentlogger "import-service/pkg/fluent_logger"
	"import-service/pkg/postgres"
	"import-service/pkg/rabbitmq/rabbitmq_common"
	"import-service/pkg/rabbitmq/rabbitmq_producer"

	rabbitmq_adapter "import-service/internal/adapters/rabbitmq"

	"cloud.google.com/go/storage"
	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 2 * time.Minute

type App struct {
	config    *configs.AppConfig
	apiServer *rest.Server
	queue     *jobqueue.Queue

	dbPool        *pgxpool.Pool
	gcsClient     *storage.Client
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher
	logger        port.LoggerPort
	fluentClient  *fluent.Fluent
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	app := &App{config: appConfig}
	ok := false
	defer func() {
		if !ok {
			app.closeResources()
		}
	}()

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	if appConfig.FluentBit.Enabled {
		app.fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(app.fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	// --- 2. БАЗОВЫЙ ЛОГГЕР ПРИЛОЖЕНИЯ ---
	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	app.logger = appLogger
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// --- 3. ХРАНИЛИЩА ---
	jobStore := memory.NewJobStore()

	var listRepo port.ListRepositoryPort
	switch appConfig.Database.Driver {
	case "postgres":
		app.dbPool, err = postgres.NewClient(startupCtx, postgres.Config{
			DatabaseURL:    appConfig.Database.URL,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			appLogger.Error("Failed to connect to PostgreSQL", err, nil)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres_adapter.EnsureSchema(startupCtx, app.dbPool); err != nil {
			return nil, fmt.Errorf("failed to apply database schema: %w", err)
		}
		pgRepo, err := postgres_adapter.NewListRepository(app.dbPool)
		if err != nil {
			return nil, err
		}
		listRepo = pgRepo
		appLogger.Info("PostgreSQL list repository initialized", nil)
	default:
		listRepo = memory.NewListRepository()
		appLogger.Warn("Using in-memory list repository, lists are lost on restart", nil)
	}

	// --- 4. АРХИВЫ И ПАРСЕР ---
	localFetcher, err := archive.NewLocalFetcher(appConfig.Archive.UploadRoot)
	if err != nil {
		return nil, err
	}
	var bucketFetcher port.ArchiveFetcherPort
	if appConfig.Archive.GCSEnabled {
		app.gcsClient, err = storage.NewClient(startupCtx)
		if err != nil {
			appLogger.Error("Failed to create GCS client", err, nil)
			return nil, fmt.Errorf("failed to create gcs client: %w", err)
		}
		gcsFetcher, err := gcs.NewFetcher(gcs.NewStorageOpener(app.gcsClient), appConfig.Archive.TmpDir)
		if err != nil {
			return nil, err
		}
		bucketFetcher = gcsFetcher
		appLogger.Info("GCS archive fetcher enabled", nil)
	}
	inspector, err := archive.NewZipInspector(archive.NewSchemeFetcher(localFetcher, bucketFetcher), appConfig.Archive.MaxEntryBytes)
	if err != nil {
		return nil, err
	}
	parser := exportparser.NewParser()

	// --- 5. ГЕОКОДИРОВАНИЕ ---
	ruleSet, err := rules.Load(appConfig.Import.RulesPath)
	if err != nil {
		appLogger.Error("Failed to load keyword rules", err, port.Fields{"path": appConfig.Import.RulesPath})
		return nil, err
	}

	var geocoder port.GeocoderPort
	if appConfig.Geocoder.URL != "" {
		geocoder = nominatim.NewClient(appConfig.Geocoder.URL, appConfig.Geocoder.UserAgent, appConfig.Geocoder.Timeout)
	} else {
		appLogger.Warn("GEOCODER_URL is not set, places without coordinates will get placeholders", nil)
	}
	resolver, err := geocoding.NewResolver(geocoder, ruleSet, geocoding.Config{
		Concurrency: appConfig.Geocoder.Concurrency,
		RPS:         appConfig.Geocoder.RPS,
		MaxRetries:  appConfig.Geocoder.MaxRetries,
		Backoff:     appConfig.Geocoder.Backoff,
		Timeout:     appConfig.Geocoder.Timeout,
	})
	if err != nil {
		return nil, err
	}

	// --- 6. СОБЫТИЯ ---
	var reporter port.ImportReporterPort = rabbitmq_adapter.NoopReporter{}
	if appConfig.RabbitMQ.Enabled {
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
		app.connManager, err = rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL}, connManagerBridge)
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}

		app.eventProducer, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             appConfig.RabbitMQ.Exchange,
			ExchangeType:             constants.ImportExchangeType,
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
		}, app.connManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}

		importReporter, err := rabbitmq_adapter.NewImportReporter(app.eventProducer)
		if err != nil {
			return nil, err
		}
		reporter = importReporter
		appLogger.Info("RabbitMQ import reporter initialized", port.Fields{"exchange": appConfig.RabbitMQ.Exchange})
	}

	// --- 7. USE CASES И ОЧЕРЕДЬ ---
	runImportUseCase := usecase.NewRunImportUseCase(jobStore, inspector, parser, resolver, usecase.NewListWriter(listRepo), reporter)

	app.queue, err = jobqueue.NewQueue(runImportUseCase, appConfig.Import.Workers, appConfig.Import.QueueSize, baseLogger)
	if err != nil {
		return nil, err
	}

	startImportUseCase := usecase.NewStartImportUseCase(jobStore, app.queue)
	analyzeUseCase := usecase.NewAnalyzeArchiveUseCase(inspector, parser)
	jobStatusUseCase := usecase.NewGetJobStatusUseCase(jobStore)
	getListUseCase := usecase.NewGetListUseCase(listRepo)
	appLogger.Info("All use cases initialized", nil)

	apiHandlers := rest.NewImportHandlers(analyzeUseCase, startImportUseCase, jobStatusUseCase, getListUseCase)
	app.apiServer = rest.NewServer(appConfig.Rest.PORT, apiHandlers, baseLogger)

	ok = true
	return app, nil
}

// Run запускает компоненты и ждет сигнала остановки. При остановке сначала
// закрывается HTTP-сервер, затем очередь дорабатывает принятые задачи.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	defer a.shutdown()

	a.logger.Info("Application is starting...", nil)
	a.queue.Start(appCtx)

	serverErrors := make(chan error, 1)
	go func() {
		if err := a.apiServer.Start(); err != nil {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", port.Fields{"port": a.config.Rest.PORT})
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
		return nil
	case err := <-serverErrors:
		a.logger.Error("HTTP server failed, shutting down", err, nil)
		return err
	}
}

func (a *App) shutdown() {
	a.logger.Info("Shutdown sequence initiated...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.apiServer.Stop(ctx); err != nil {
		a.logger.Error("Error during API server shutdown", err, nil)
	}
	if err := a.queue.Shutdown(ctx); err != nil {
		a.logger.Error("Import queue did not drain in time", err, nil)
	}

	a.closeResources()
}

// closeResources закрывает внешние соединения в порядке, обратном созданию
func (a *App) closeResources() {
	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil && a.logger != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil && a.logger != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil && a.logger != nil {
			a.logger.Error("Error closing GCS client", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.logger != nil {
		a.logger.Info("Application shut down gracefully.", nil)
	}
	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			// fluent может быть уже недоступен, поэтому только stdout
			fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
		}
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
