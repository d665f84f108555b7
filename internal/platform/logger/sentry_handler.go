package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// tagKeys are attributes promoted to Sentry tags so events can be searched by them.
var tagKeys = map[string]bool{
	"component": true,
	"service":   true,
	"post_id":   true,
	"user_id":   true,
	"result":    true,
}

// WrapWithSentry returns a logger that forwards error logs to Sentry.
func WrapWithSentry(base *slog.Logger) *slog.Logger {
	if base == nil {
		return base
	}
	return slog.New(&sentryHandler{next: base.Handler()})
}

type sentryHandler struct {
	next  slog.Handler
	attrs []slog.Attr
}

func (h *sentryHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sentryHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.next.Handle(ctx, record)
	if record.Level < slog.LevelError {
		return err
	}

	attrs := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})
	extras, tags, capturedErr := splitAttrs(attrs)

	if record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.PC != 0 {
			extras["source.file"] = frame.File
			extras["source.line"] = frame.Line
			extras["source.function"] = frame.Function
		}
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetExtras(extras)
		scope.SetTags(tags)
		scope.SetExtra("message", record.Message)
		if capturedErr != nil {
			hub.CaptureException(capturedErr)
			return
		}
		hub.CaptureMessage(record.Message)
	})

	return err
}

func (h *sentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &sentryHandler{next: h.next.WithAttrs(attrs), attrs: merged}
}

func (h *sentryHandler) WithGroup(name string) slog.Handler {
	return &sentryHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}

// splitAttrs separates tag-worthy attributes from extras and picks the first error value.
func splitAttrs(attrs []slog.Attr) (map[string]any, map[string]string, error) {
	var capturedErr error
	extras := map[string]any{}
	tags := map[string]string{}
	for _, attr := range attrs {
		if attr.Key == "" {
			continue
		}
		value := attrValue(attr.Value, &capturedErr)
		if tagKeys[attr.Key] {
			tags[attr.Key] = fmt.Sprint(value)
			continue
		}
		extras[attr.Key] = value
	}
	return extras, tags, capturedErr
}

func attrValue(value slog.Value, capturedErr *error) any {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindAny:
		anyValue := value.Any()
		if err, ok := anyValue.(error); ok {
			if *capturedErr == nil {
				*capturedErr = err
			}
			return err.Error()
		}
		if s, ok := anyValue.(fmt.Stringer); ok {
			return s.String()
		}
		return anyValue
	case slog.KindBool:
		return value.Bool()
	case slog.KindDuration:
		return value.Duration()
	case slog.KindFloat64:
		return value.Float64()
	case slog.KindInt64:
		return value.Int64()
	case slog.KindString:
		return value.String()
	case slog.KindTime:
		return value.Time()
	case slog.KindUint64:
		return value.Uint64()
	case slog.KindGroup:
		group := map[string]any{}
		for _, attr := range value.Group() {
			if attr.Key == "" {
				continue
			}
			group[attr.Key] = attrValue(attr.Value, capturedErr)
		}
		return group
	default:
		return value.String()
	}
}
