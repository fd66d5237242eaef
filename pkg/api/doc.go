// Package api defines the public contract of the workflow engine
//
// It contains step definitions, the step function signature, per-step runtime
// state, the workflow result, lifecycle events, and the error taxonomy shared
// by the dependency resolver, the step executor, and step authors
package api
