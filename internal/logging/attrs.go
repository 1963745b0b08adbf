package logging

import (
	"log/slog"
	"time"
)

// Attribute constructors used across prism. They mirror slog's so call sites
// read logging.String instead of mixing both packages.

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func String(key, value string) slog.Attr { return slog.String(key, value) }

// Kind labels a failure with its services classification.
func Kind(label string) slog.Attr { return slog.String(FieldErrorKind, label) }

func Group(key string, attrs ...slog.Attr) slog.Attr {
	return slog.Group(key, toArgs(attrs)...)
}

// Error records err under the "error" key. A nil error is logged as "<nil>"
// so the key is always present.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func toArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that drops every record.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger yields a
// tagged nop logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const defaultHint = "check logs for details"

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Caller-supplied values win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultHint),
		String(FieldImpact, "asset processed with warnings"))
	logger.Warn(msg, toArgs(attrs)...)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultHint))
	logger.Error(msg, toArgs(attrs)...)
}

// withDefaults appends each default whose key attrs does not already set.
func withDefaults(attrs []slog.Attr, defaults ...slog.Attr) []slog.Attr {
	for _, def := range defaults {
		present := false
		for _, attr := range attrs {
			if attr.Key == def.Key {
				present = true
				break
			}
		}
		if !present {
			attrs = append(attrs, def)
		}
	}
	return attrs
}
