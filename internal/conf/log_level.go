// ABOUTME: Log level configuration type
// ABOUTME: Maps "debug", "info", "warn" and "error" to logger levels
package conf

import (
	"encoding/json"
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

// LogLevel is the logLevel parameter.
type LogLevel logger.Level

// MarshalJSON implements json.Marshaler.
func (d LogLevel) MarshalJSON() ([]byte, error) {
	switch logger.Level(d) {
	case logger.Debug, logger.Info, logger.Warn, logger.Error:
		return json.Marshal(logger.Level(d).String())
	}
	return nil, fmt.Errorf("invalid log level: %v", int(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *LogLevel) UnmarshalJSON(b []byte) error {
	var in string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	switch in {
	case "error":
		*d = LogLevel(logger.Error)

	case "warn":
		*d = LogLevel(logger.Warn)

	case "info":
		*d = LogLevel(logger.Info)

	case "debug":
		*d = LogLevel(logger.Debug)

	default:
		return fmt.Errorf("invalid log level: '%s'", in)
	}

	return nil
}
