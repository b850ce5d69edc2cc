// Package demux defines the control protocol between a container demuxer
// and its host: the Demuxer interface, the closed set of typed control
// queries, the title/seekpoint navigation model, and the update
// notification contract the host consumes after each demux step.
//
// The protocol is single-writer: exactly one goroutine drives a Demuxer's
// Step and Control calls. Nothing in this package is safe for concurrent
// use unless documented otherwise.
package demux
