package rabbitmq_common

// Logger - минимальный логгер пакета в стиле key/value, чтобы pkg не зависел
// от логгера конкретного сервиса. Сервис подключает свой логгер через мост.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})        {}
func (noopLogger) Info(string, ...interface{})         {}
func (noopLogger) Warn(string, ...interface{})         {}
func (noopLogger) Error(error, string, ...interface{}) {}

// OrNoop возвращает l или, если он nil, пустой логгер
func OrNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
