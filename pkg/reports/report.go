// Package reports delivers operator-facing cycle reports to configured sinks.
package reports

import (
	"context"
	"time"
)

// Report statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Report triggers.
const (
	TriggerInitial   = "initial"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Report summarises one refresh cycle. It never carries article content.
type Report struct {
	CycleID             string    `json:"cycle_id"`
	Status              string    `json:"status"`
	Trigger             string    `json:"trigger"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	DurationMS          int64     `json:"duration_ms"`
	HeadlineCount       int       `json:"headline_count"`
	ThemeCount          int       `json:"theme_count"`
	RelatedArticleCount int       `json:"related_article_count"`
	Error               string    `json:"error,omitempty"`
}

// Sink sends reports to a downstream destination (log, HTTP, SQS, etc).
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, r Report) error
}

// Logger defines the logging surface sinks rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// attributes are attached as message metadata by the queue sinks. Empty
// values are omitted.
func (r Report) attributes() map[string]string {
	out := make(map[string]string, 3)
	for k, v := range map[string]string{
		"cycle_id": r.CycleID,
		"status":   r.Status,
		"trigger":  r.Trigger,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
