// Package server implements the HTTP API for the workflow host
//
// It exposes the shopping and coaching graphs, archived run lookup, a
// websocket stream of lifecycle events, and the metrics endpoint
package server
