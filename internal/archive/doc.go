// Package archive stores finished workflow results in Redis or in a gocloud
// blob bucket, keyed by run id
package archive
