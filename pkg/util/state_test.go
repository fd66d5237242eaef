package util

import (
	"testing"
)

type TestState string

const (
	StateInit     TestState = "init"
	StateRunning  TestState = "running"
	StateComplete TestState = "complete"
	StateFailed   TestState = "failed"
)

var testTransitions = StateTransitions[TestState]{
	StateInit:     SetOf(StateRunning, StateFailed),
	StateRunning:  SetOf(StateComplete, StateFailed),
	StateComplete: {},
	StateFailed:   {},
}

func TestStateTransitionsCanTransition(t *testing.T) {
	if !testTransitions.CanTransition(StateInit, StateRunning) {
		t.Error("should allow init -> running")
	}
	if !testTransitions.CanTransition(StateRunning, StateComplete) {
		t.Error("should allow running -> complete")
	}

	if testTransitions.CanTransition(StateInit, StateComplete) {
		t.Error("should not allow init -> complete")
	}
	if testTransitions.CanTransition(StateFailed, StateRunning) {
		t.Error("should not allow failed -> running")
	}

	// Unknown state
	if testTransitions.CanTransition("unknown", StateRunning) {
		t.Error("should not allow transition from unknown state")
	}
}

func TestStateTransitionsIsTerminal(t *testing.T) {
	if testTransitions.IsTerminal(StateInit) {
		t.Error("init should not be terminal")
	}
	if testTransitions.IsTerminal(StateRunning) {
		t.Error("running should not be terminal")
	}
	if !testTransitions.IsTerminal(StateComplete) {
		t.Error("complete should be terminal")
	}
	if !testTransitions.IsTerminal(StateFailed) {
		t.Error("failed should be terminal")
	}
	if testTransitions.IsTerminal("unknown") {
		t.Error("unknown state should not be terminal")
	}
}
