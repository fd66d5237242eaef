package events

import "github.com/kode4food/stepflow/pkg/api"

type EventFilter func(*api.Event) bool

func All(*api.Event) bool {
	return true
}

func FilterEvents(eventTypes ...api.EventType) EventFilter {
	lookup := map[api.EventType]bool{}
	for _, et := range eventTypes {
		lookup[et] = true
	}
	return func(ev *api.Event) bool {
		return lookup[ev.Type]
	}
}

func FilterRun(runID api.RunID) EventFilter {
	return func(ev *api.Event) bool {
		return ev.RunID == runID
	}
}

func FilterStep(name api.StepName) EventFilter {
	return func(ev *api.Event) bool {
		return ev.IsStepEvent() && ev.Step == name
	}
}

func OrFilters(filters ...EventFilter) EventFilter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}

func AndFilters(filters ...EventFilter) EventFilter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}
