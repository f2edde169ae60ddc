package reports

import "context"

type logSink struct {
	id  string
	log Logger
}

func newLogSink(_ context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	return &logSink{id: cfg.ID, log: ensureLogger(log)}, nil
}

// NewLogSink returns a sink that writes reports to the logger.
func NewLogSink(id string, log Logger) Sink {
	return &logSink{id: id, log: ensureLogger(log)}
}

func (l *logSink) ID() string   { return l.id }
func (l *logSink) Type() string { return TypeLog }

func (l *logSink) Send(_ context.Context, r Report) error {
	if r.Status == StatusFailure {
		l.log.WarnObj("refresh cycle report", "cycle_report", r)
		return nil
	}
	l.log.InfoObj("refresh cycle report", "cycle_report", r)
	return nil
}
