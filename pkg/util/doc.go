// Package util provides common utility functions and data structures
//
// This package includes a generic set implementation and the state transition
// table helper used to guard step status changes in the workflow engine
package util
