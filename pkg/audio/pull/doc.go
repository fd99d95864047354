// Package pull adapts push-style producers to pull-style audio devices.
//
// A producer calls Write with whatever it has and never blocks; the device
// callback calls Read at its own pace and gets silence for anything that is
// not there yet. In between, every plane of the stream has its own bounded
// ring buffer. The adapter tracks an Idle/Playing/Paused state, forwards
// pause, resume, reset and control requests to its Driver, and keeps a
// running estimate of output latency from the end times the driver reports.
//
// Write and Read may run concurrently from exactly one producer and one
// consumer goroutine. Everything else is meant for the producer side.
package pull
