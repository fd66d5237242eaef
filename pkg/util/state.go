package util

// StateTransitions maps each state to the set of states it may move to. A
// state with an empty set is terminal
type StateTransitions[T comparable] map[T]Set[T]

// CanTransition reports whether moving from one state to another is allowed
func (st StateTransitions[T]) CanTransition(from, to T) bool {
	next, ok := st[from]
	if !ok {
		return false
	}
	return next.Contains(to)
}

// IsTerminal reports whether a known state allows no further transitions
func (st StateTransitions[T]) IsTerminal(state T) bool {
	next, ok := st[state]
	if !ok {
		return false
	}
	return next.IsEmpty()
}
