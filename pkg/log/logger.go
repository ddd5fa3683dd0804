package log

import "time"

// Logger provides structured logging capabilities.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// Well-known field keys.
const (
	KeyState  = "state"
	KeyOp     = "op"
	KeyMount  = "mount"
	KeyReason = "reason"
)

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Uint64 creates a uint64 field.
func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// State tags a line with the lifecycle state it was emitted in.
func State(s string) Field {
	return Field{Key: KeyState, Value: s}
}

// Op tags a line with the operation being performed (load, step, import...).
func Op(op string) Field {
	return Field{Key: KeyOp, Value: op}
}

// Mount tags a line with a persistence mount point.
func Mount(path string) Field {
	return Field{Key: KeyMount, Value: path}
}

// Reason tags a line with a transition or failure reason.
func Reason(r string) Field {
	return Field{Key: KeyReason, Value: r}
}
