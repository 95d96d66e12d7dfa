package bot

// Field is one structured attribute on a log event. Pipeline events
// carry the chat id being served plus whatever the event is about,
// like the completion fault or the index of a failed chunk.
type Field struct {
	Key   string
	Value interface{}
}

// Logger receives the pipeline's log events. The default is
// NoopLogger; processes that want output install an adapter such as
// pkg/bot/logger/zerolog.
type Logger interface {
	// Debug records per-update noise, like an ignored payload or a
	// failed typing action.
	Debug(msg string, fields ...Field)

	// Info records ordinary milestones, like a quota refusal or a
	// tone change.
	Info(msg string, fields ...Field)

	// Warn records trouble that was absorbed, such as a canned
	// completion fallback or a dropped voice reply.
	Warn(msg string, fields ...Field)

	// Error records failures the handler could not make good.
	Error(msg string, fields ...Field)
}

// NoopLogger drops every event. It is the default when Config names
// no logger.
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string, fields ...Field) {}
func (n *NoopLogger) Info(msg string, fields ...Field)  {}
func (n *NoopLogger) Warn(msg string, fields ...Field)  {}
func (n *NoopLogger) Error(msg string, fields ...Field) {}
