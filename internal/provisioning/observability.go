package provisioning

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/go-logr/logr"
)

// Logger is the printf-style surface shared by every observer.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "reservation", "fabric")
	Message   string            // Human-readable message
	Resource  string            // Resource name if applicable (job, host, vnode)
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
	Err       error             // Cause, for failures
}

// EventType represents the type of provisioning event.
type EventType string

// Phase lifecycle, emitted by RunPhases.
const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"
)

// Resources created or adopted by a phase: the job and the virtual network.
const (
	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	EventResourceExists   EventType = "resource.exists"
)

const (
	// EventAnomaly reports something unexpected that does not stop the pipeline.
	EventAnomaly EventType = "anomaly"
	// EventPartialFailure reports that part of a set failed and was dropped.
	EventPartialFailure EventType = "partial_failure"
	// EventDebug carries detail only shown at high verbosity.
	EventDebug EventType = "debug"
	// EventValidationWarning is a configuration issue that does not block the run.
	EventValidationWarning EventType = "validation.warning"
	EventProgress          EventType = "progress"
)

// Verbosity levels used by LogrObserver.
const (
	levelWarning = 0
	levelInfo    = 1
	levelDebug   = 2
)

// level returns the logr verbosity an event type is logged at.
func (t EventType) level() int {
	switch t {
	case EventAnomaly, EventPartialFailure, EventValidationWarning:
		return levelWarning
	case EventDebug:
		return levelDebug
	default:
		return levelInfo
	}
}

// LogrObserver implements Observer on top of a logr.Logger.
// Warnings are logged at V(0), progress at V(1) and debug detail at V(2).
type LogrObserver struct {
	log           logr.Logger
	contextFields map[string]string
	now           func() time.Time
}

// NewLogrObserver creates an observer writing to log.
func NewLogrObserver(log logr.Logger) *LogrObserver {
	return &LogrObserver{
		log:           log,
		contextFields: make(map[string]string),
		now:           time.Now,
	}
}

// Printf implements Logger at the info level.
func (o *LogrObserver) Printf(format string, v ...any) {
	o.log.V(levelInfo).Info(fmt.Sprintf(format, v...), o.keysAndValues(nil)...)
}

// Event implements Observer interface.
func (o *LogrObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = o.now()
	}

	kv := make([]any, 0, 8)
	kv = append(kv, "event", string(event.Type))
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	kv = append(kv, o.keysAndValues(event.Fields)...)

	switch {
	case event.Type == EventPhaseFailed:
		o.log.Error(event.Err, event.Message, kv...)
	case event.Err != nil:
		o.log.V(event.Type.level()).Info(event.Message, append(kv, "error", event.Err.Error())...)
	default:
		o.log.V(event.Type.level()).Info(event.Message, kv...)
	}
}

// Progress implements Observer interface.
func (o *LogrObserver) Progress(phase string, current, total int) {
	kv := []any{"event", string(EventProgress), "phase", phase, "current", current, "total", total}
	if total > 0 {
		kv = append(kv, "percent", (current*100)/total)
	}
	o.log.V(levelInfo).Info("progress", append(kv, o.keysAndValues(nil)...)...)
}

// WithFields implements Observer interface.
func (o *LogrObserver) WithFields(fields map[string]string) Observer {
	newFields := maps.Clone(o.contextFields)
	maps.Copy(newFields, fields)
	return &LogrObserver{
		log:           o.log,
		contextFields: newFields,
		now:           o.now,
	}
}

// keysAndValues merges context fields under the event's own fields and
// flattens them in key order.
func (o *LogrObserver) keysAndValues(fields map[string]string) []any {
	merged := maps.Clone(o.contextFields)
	maps.Copy(merged, fields)
	kv := make([]any, 0, 2*len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		kv = append(kv, k, merged[k])
	}
	return kv
}

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{Type: EventPhaseStarted, Phase: phase, Message: "starting"})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{Type: EventPhaseFailed, Phase: phase, Message: "failed", Err: err})
}

// LogResource reports a resource event. kind is "job" or "vnetwork"; id is
// the job UID or the network address once known.
func LogResource(observer Observer, typ EventType, phase, kind, name, id string) {
	var msg string
	switch typ {
	case EventResourceCreating:
		msg = "creating " + kind
	case EventResourceExists:
		msg = kind + " already exists"
	default:
		msg = kind + " created"
	}

	fields := map[string]string{"type": kind}
	if id != "" {
		fields["id"] = id
	}
	observer.Event(Event{Type: typ, Phase: phase, Resource: name, Message: msg, Fields: fields})
}

// Note emits a message-only event such as EventAnomaly, EventPartialFailure
// or EventDebug.
func Note(observer Observer, typ EventType, phase, message string, fields map[string]string) {
	observer.Event(Event{Type: typ, Phase: phase, Message: message, Fields: fields})
}
