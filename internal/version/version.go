// ABOUTME: Build and product identification
// ABOUTME: Reported by the version subcommand and the startup log line
package version

import "fmt"

const (
	Version      = "0.1.0"
	Product      = "pullbridge"
	Manufacturer = "Sendspin"
)

// String is the one-line banner, e.g. "pullbridge 0.1.0 (Sendspin)"
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
