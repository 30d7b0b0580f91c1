// Package provisioningtest provides a recording observer and context
// constructor for testing phases.
package provisioningtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
)

// RecordingObserver keeps every event and message. It is safe for
// concurrent use and shares its log with observers derived by WithFields.
type RecordingObserver struct {
	mu       *sync.Mutex
	events   *[]provisioning.Event
	messages *[]string
	fields   map[string]string
}

// NewRecordingObserver returns an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{
		mu:       &sync.Mutex{},
		events:   &[]provisioning.Event{},
		messages: &[]string{},
		fields:   map[string]string{},
	}
}

func (o *RecordingObserver) Printf(format string, v ...interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.messages = append(*o.messages, fmt.Sprintf(format, v...))
}

func (o *RecordingObserver) Event(event provisioning.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.events = append(*o.events, event)
}

func (o *RecordingObserver) Progress(phase string, current, total int) {
	o.Event(provisioning.Event{
		Type:    provisioning.EventProgress,
		Phase:   phase,
		Message: "progress",
		Fields: map[string]string{
			"current": fmt.Sprint(current),
			"total":   fmt.Sprint(total),
		},
	})
}

func (o *RecordingObserver) WithFields(fields map[string]string) provisioning.Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &RecordingObserver{mu: o.mu, events: o.events, messages: o.messages, fields: merged}
}

// Events returns a copy of every recorded event.
func (o *RecordingObserver) Events() []provisioning.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]provisioning.Event(nil), *o.events...)
}

// EventsOfType returns the recorded events of type t.
func (o *RecordingObserver) EventsOfType(t provisioning.EventType) []provisioning.Event {
	var out []provisioning.Event
	for _, e := range o.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns a copy of every Printf message.
func (o *RecordingObserver) Messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), *o.messages...)
}

// NewContext returns a provisioning context for cfg and svc that records
// events and polls fast. It is cancelled when the test ends.
func NewContext(t *testing.T, cfg *config.Config, svc provisioning.Services) (*provisioning.Context, *RecordingObserver) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	obs := NewRecordingObserver()
	return &provisioning.Context{
		Context:  ctx,
		Config:   cfg,
		State:    provisioning.NewState(),
		Services: svc,
		Observer: obs,
		Metrics:  provisioning.NopMetrics{},
		Timeouts: &config.Timeouts{
			Reservation:       time.Second,
			Deploy:            time.Second,
			Command:           time.Second,
			PollInterval:      time.Millisecond,
			PlanningHorizon:   72 * time.Hour,
			RetryMaxAttempts:  1,
			RetryInitialDelay: time.Millisecond,
		},
	}, obs
}
