// logger.go — The structured logging seam the rest of the broker codes
// against. Keeping this as a small interface (rather than importing
// zap directly everywhere) lets tests substitute a no-op or recording
// logger without pulling in the zap core.
package telemetrylog

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// String builds a string-valued Field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Err builds a Field carrying an error, keyed "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Int builds an int-valued Field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool builds a bool-valued Field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Logger is the structured logging surface every broker component
// depends on. Concrete implementations live alongside this interface
// (zap.go wraps go.uber.org/zap); tests use a recording fake.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}
