// Package events fans workflow lifecycle events out to live subscribers
package events
