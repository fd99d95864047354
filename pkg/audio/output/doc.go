// ABOUTME: Audio output package for playing audio
// ABOUTME: Device drivers that pull from a pull.Adapter
// Package output provides device drivers for the pull adapter.
//
// Each driver implements pull.Driver together with the optional hooks it
// can honour. The adapter opens the device through the driver's Init hook
// and the device callback pulls audio with Host.Read.
//
// Example:
//
//	drv, err := output.New("malgo", output.Options{PeriodFrames: 480})
//	adapter, err := pull.New(pull.ConfigFor(format, 9600), drv)
//	n := adapter.Write(planes, frames)
package output
