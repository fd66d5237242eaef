// Package stepflow holds the identity of the workflow host binary
package stepflow

const (
	Name    = "stepflow"
	Version = "1.0.0"
)
