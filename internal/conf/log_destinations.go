// ABOUTME: Log destinations configuration type
// ABOUTME: Maps "stdout" and "file" to logger destinations
package conf

import (
	"encoding/json"
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

// LogDestination is a log destination.
type LogDestination logger.Destination

// MarshalJSON implements json.Marshaler.
func (d LogDestination) MarshalJSON() ([]byte, error) {
	switch logger.Destination(d) {
	case logger.DestinationStdout:
		return json.Marshal("stdout")
	case logger.DestinationFile:
		return json.Marshal("file")
	}
	return nil, fmt.Errorf("invalid log destination: %v", int(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *LogDestination) UnmarshalJSON(b []byte) error {
	var in string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	switch in {
	case "stdout":
		*d = LogDestination(logger.DestinationStdout)

	case "file":
		*d = LogDestination(logger.DestinationFile)

	default:
		return fmt.Errorf("invalid log destination: '%s'", in)
	}

	return nil
}

// LogDestinations is the logDestinations parameter.
type LogDestinations []LogDestination

// ToDestinations converts to logger.Destination slice.
func (d LogDestinations) ToDestinations() []logger.Destination {
	out := make([]logger.Destination, len(d))
	for i, v := range d {
		out[i] = logger.Destination(v)
	}
	return out
}

// Has reports whether the destination is enabled.
func (d LogDestinations) Has(dest logger.Destination) bool {
	for _, v := range d {
		if logger.Destination(v) == dest {
			return true
		}
	}
	return false
}
