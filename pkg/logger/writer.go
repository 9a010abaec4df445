// ABOUTME: Writer interface and helpers shared by all log producers
// ABOUTME: Components take a Writer and prefix their own messages
package logger

// Writer is an object that provides a log method.
type Writer interface {
	Log(Level, string, ...interface{})
}

type discard struct{}

func (discard) Log(Level, string, ...interface{}) {}

// Discard is a Writer that drops every entry.
var Discard Writer = discard{}

type prefixed struct {
	parent Writer
	prefix string
}

func (p *prefixed) Log(level Level, format string, args ...interface{}) {
	p.parent.Log(level, "["+p.prefix+"] "+format, args...)
}

// WithPrefix returns a Writer that tags every entry with "[prefix] ".
// A nil parent yields Discard.
func WithPrefix(parent Writer, prefix string) Writer {
	if parent == nil {
		return Discard
	}
	return &prefixed{parent: parent, prefix: prefix}
}

// OrDiscard returns w, or Discard when w is nil.
func OrDiscard(w Writer) Writer {
	if w == nil {
		return Discard
	}
	return w
}
