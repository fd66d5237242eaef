// Package client talks to the external services that caller step functions
// depend on: a text completion service and a grocery price service. Errors
// that retrying cannot fix are marked permanent so the step executor stops
// early
package client
