// ABOUTME: Version information for reel
// ABOUTME: Shared by the CLI, the probe tool and the HTTP User-Agent
package version

const (
	// Version is the release of this build
	Version = "0.3.0"

	// Product is the product name
	Product = "reel"

	// Manufacturer identifies the maintainers
	Manufacturer = "Resonate"
)

// UserAgent is sent by network sources.
const UserAgent = Product + "/" + Version
