package constants

const (
	// Обменник событий импорта
	ImportExchangeType = "topic"

	// Ключи маршрутизации событий импорта
	ListCreatedRoutingKey = "import.list.created"
	JobFinishedRoutingKey = "import.job.finished"

	// Типы событий и версия схемы, уходят в заголовки x-event-type и x-event-version
	ListCreatedEventType = "ListCreatedEvent"
	JobFinishedEventType = "JobFinishedEvent"
	EventVersion         = "1.0.0"
)
