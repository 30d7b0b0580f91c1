package orchestration

import (
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/ui"
)

// bannerObserver prints a step banner when a titled phase starts and
// forwards everything to the wrapped observer.
type bannerObserver struct {
	provisioning.Observer
	printer *ui.Printer
}

func (o *bannerObserver) Event(e provisioning.Event) {
	if e.Type == provisioning.EventPhaseStarted {
		if title := ui.StepTitle(e.Phase); title != "" {
			o.printer.Step(title)
		}
	}
	o.Observer.Event(e)
}

func (o *bannerObserver) WithFields(fields map[string]string) provisioning.Observer {
	return &bannerObserver{Observer: o.Observer.WithFields(fields), printer: o.printer}
}
