// Package builder provides a fluent API for assembling workflow step
// definitions
//
// Every builder method returns a modified copy, so partially configured steps
// can be shared and specialized without affecting each other
package builder
