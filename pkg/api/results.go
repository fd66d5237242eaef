package api

import "maps"

// Results maps each completed step to the value it produced
type Results map[StepName]any

// Clone returns a shallow copy of the results map
func (r Results) Clone() Results {
	if r == nil {
		return Results{}
	}
	return maps.Clone(r)
}

// Has reports whether the named step produced a result
func (r Results) Has(name StepName) bool {
	_, ok := r[name]
	return ok
}

// ResultAs retrieves a step result and converts it to the requested type. It
// accepts both values and pointers to values of type T
func ResultAs[T any](r Results, name StepName) (T, bool) {
	var zero T
	raw, ok := r[name]
	if !ok {
		return zero, false
	}
	switch v := raw.(type) {
	case T:
		return v, true
	case *T:
		if v == nil {
			return zero, false
		}
		return *v, true
	default:
		return zero, false
	}
}
