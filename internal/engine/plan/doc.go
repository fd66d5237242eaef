// Package plan contains the dependency resolver. It validates a set of step
// definitions and computes a deterministic execution order, failing with a
// cyclic dependency error when no such order exists
package plan
