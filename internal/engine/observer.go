package engine

import "github.com/kode4food/stepflow/pkg/api"

type (
	// Observer receives lifecycle events as a run progresses. Notify is
	// called synchronously from the goroutine driving the step, so
	// implementations must not block
	Observer interface {
		Notify(ev *api.Event)
	}

	// ObserverFunc adapts a function to the Observer interface
	ObserverFunc func(ev *api.Event)

	observers []Observer
)

// Notify calls f(ev)
func (f ObserverFunc) Notify(ev *api.Event) {
	f(ev)
}

// Observers fans events out to each non-nil observer in order
func Observers(obs ...Observer) Observer {
	res := make(observers, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			res = append(res, o)
		}
	}
	return res
}

func (o observers) Notify(ev *api.Event) {
	for _, obs := range o {
		obs.Notify(ev)
	}
}
